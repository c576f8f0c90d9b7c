package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/regionspider/internal/database"
	"github.com/nao1215/regionspider/internal/model"
)

// historyTimeFormat is how crawl times are shown.
const historyTimeFormat = "2006-01-02 15:04:05"

// crawlHistory is the read side of the history database.
type crawlHistory interface {
	ListCrawls(ctx context.Context) ([]database.Crawl, error)
	LatestCrawls(ctx context.Context, n int) ([]database.Crawl, error)
	GetCrawl(ctx context.Context, id string) (*database.Crawl, error)
	GetRows(ctx context.Context, crawlID string) ([]model.Row, error)
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	compare  bool
	from     string
	to       string
	json     bool
	markdown bool
	limit    int
}

// NewHistoryCmd creates the history command.
// It lists stored crawls and compares two of them.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded crawls and compare editions",
		Long: `History shows the crawls recorded in the history database.

With --compare it compares two crawls region by region and reports:
- Regions added in the newer crawl
- Regions removed since the older crawl
- Regions whose name changed

Regions are matched by level and code. Without --from and --to the two
most recent crawls are compared.

Examples:
  # List all recorded crawls
  regionspider history

  # Compare the latest two crawls
  regionspider history --compare

  # Compare two specific crawls, as JSON
  regionspider history --compare --from <id> --to <id> --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("compare", false, "Compare two crawls instead of listing them")
	cmd.Flags().String("from", "", "ID of the older crawl (default: second most recent)")
	cmd.Flags().String("to", "", "ID of the newer crawl (default: most recent)")
	cmd.Flags().IntP("limit", "n", 0, "List at most this many crawls (0 lists all)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")

	return cmd
}

// parseHistoryOptions reads and validates the history flags.
func parseHistoryOptions(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()

	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.from, err = flags.GetString("from"); err != nil {
		return opts, err
	}
	if opts.to, err = flags.GetString("to"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}

	if opts.json && opts.markdown {
		return opts, errors.New("--json and --markdown cannot be used together")
	}
	if !opts.compare && (opts.from != "" || opts.to != "") {
		return opts, errors.New("--from and --to require --compare")
	}
	if opts.limit < 0 {
		return opts, fmt.Errorf("--limit must not be negative (got %d)", opts.limit)
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	// Validate flags before opening the database
	opts, err := parseHistoryOptions(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadBaseConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(ctx, db, opts, cmd.OutOrStdout())
}

// runHistory lists or compares crawls from store and writes to out.
func runHistory(ctx context.Context, store crawlHistory, opts historyOptions, out io.Writer) error {
	if !opts.compare {
		return listCrawls(ctx, store, opts, out)
	}

	comparison, err := compareCrawls(ctx, store, opts.from, opts.to)
	if err != nil {
		return err
	}

	switch {
	case opts.json:
		return writeJSON(out, comparison)
	case opts.markdown:
		return outputComparisonMarkdown(out, comparison)
	default:
		outputComparisonText(out, comparison)
		return nil
	}
}

// listCrawls prints the stored crawls, newest first.
func listCrawls(ctx context.Context, store crawlHistory, opts historyOptions, out io.Writer) error {
	var (
		crawls []database.Crawl
		err    error
	)
	if opts.limit > 0 {
		crawls, err = store.LatestCrawls(ctx, opts.limit)
	} else {
		crawls, err = store.ListCrawls(ctx)
	}
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, crawls)
	}

	if len(crawls) == 0 {
		fmt.Fprintln(out, "No crawls found in the history database.")
		fmt.Fprintln(out, "\nRun 'regionspider' to crawl the latest standard.")
		return nil
	}

	if opts.markdown {
		return outputCrawlsMarkdown(out, crawls)
	}

	fmt.Fprintf(out, "Recorded crawls (%d):\n\n", len(crawls))
	fmt.Fprintf(out, "  %-36s  %-10s  %-5s  %-8s  %s\n", "ID", "Standard", "Level", "Regions", "Started")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 86))
	for _, c := range crawls {
		fmt.Fprintf(out, "  %-36s  %-10s  %-5d  %-8d  %s\n",
			c.ID,
			c.StandardDate,
			c.MaxLevel,
			c.RegionCount,
			c.StartedAt.Local().Format(historyTimeFormat),
		)
	}
	fmt.Fprintln(out, "\nUse 'regionspider history --compare' to compare the latest two crawls.")

	return nil
}

// outputCrawlsMarkdown writes the crawl list as a Markdown table.
func outputCrawlsMarkdown(out io.Writer, crawls []database.Crawl) error {
	rows := make([][]string, 0, len(crawls))
	for _, c := range crawls {
		rows = append(rows, []string{
			"`" + c.ID + "`",
			c.StandardDate,
			strconv.Itoa(c.MaxLevel),
			strconv.Itoa(c.RegionCount),
			c.StartedAt.Local().Format(historyTimeFormat),
		})
	}

	return markdown.NewMarkdown(out).
		H1("Recorded Crawls").
		PlainText("").
		Table(markdown.TableSet{
			Header: []string{"ID", "Standard", "Level", "Regions", "Started"},
			Rows:   rows,
		}).
		Build()
}

// RegionChange is one region that differs between two crawls.
type RegionChange struct {
	Type       string `json:"type"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	ParentCode string `json:"parent_code,omitempty"`

	// PreviousName is set for renamed regions.
	PreviousName string `json:"previous_name,omitempty"`
}

// ComparisonResult holds the result of comparing two crawls.
type ComparisonResult struct {
	// Previous is the older crawl.
	Previous database.Crawl `json:"previous"`

	// Current is the newer crawl.
	Current database.Crawl `json:"current"`

	// Added regions appear only in Current, in Current's order.
	Added []RegionChange `json:"added"`

	// Removed regions appear only in Previous, in Previous's order.
	Removed []RegionChange `json:"removed"`

	// Renamed regions have the same level and code but another name.
	Renamed []RegionChange `json:"renamed"`

	// UnchangedCount is the number of regions present in both with the same name.
	UnchangedCount int `json:"unchanged_count"`
}

// compareCrawls loads two crawls and compares them.
// Empty ids select the second most recent (from) and most recent (to) crawl.
func compareCrawls(ctx context.Context, store crawlHistory, fromID, toID string) (*ComparisonResult, error) {
	var previous, current *database.Crawl

	if fromID == "" || toID == "" {
		latest, err := store.LatestCrawls(ctx, 2)
		if err != nil {
			return nil, err
		}
		if toID == "" {
			if len(latest) == 0 {
				return nil, errors.New("no crawls found in the history database")
			}
			current = &latest[0]
		}
		if fromID == "" {
			if len(latest) < 2 {
				return nil, fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(latest))
			}
			previous = &latest[1]
		}
	}

	var err error
	if current == nil {
		if current, err = store.GetCrawl(ctx, toID); err != nil {
			return nil, err
		}
	}
	if previous == nil {
		if previous, err = store.GetCrawl(ctx, fromID); err != nil {
			return nil, err
		}
	}

	previousRows, err := store.GetRows(ctx, previous.ID)
	if err != nil {
		return nil, err
	}
	currentRows, err := store.GetRows(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	result := compareRows(previousRows, currentRows)
	result.Previous = *previous
	result.Current = *current
	return result, nil
}

// regionKey identifies a region across crawls.
type regionKey struct {
	typ  string
	code string
}

// compareRows compares two crawls' rows by level and code.
func compareRows(previous, current []model.Row) *ComparisonResult {
	result := &ComparisonResult{
		Added:   make([]RegionChange, 0),
		Removed: make([]RegionChange, 0),
		Renamed: make([]RegionChange, 0),
	}

	previousByKey := make(map[regionKey]model.Row, len(previous))
	for _, row := range previous {
		key := regionKey{row.Type, row.Code}
		if _, dup := previousByKey[key]; !dup {
			previousByKey[key] = row
		}
	}

	seen := make(map[regionKey]bool, len(current))
	for _, row := range current {
		key := regionKey{row.Type, row.Code}
		if seen[key] {
			continue
		}
		seen[key] = true

		old, ok := previousByKey[key]
		switch {
		case !ok:
			result.Added = append(result.Added, changeOf(row))
		case old.Name != row.Name:
			change := changeOf(row)
			change.PreviousName = old.Name
			result.Renamed = append(result.Renamed, change)
		default:
			result.UnchangedCount++
		}
	}

	for _, row := range previous {
		key := regionKey{row.Type, row.Code}
		if seen[key] {
			continue
		}
		seen[key] = true
		result.Removed = append(result.Removed, changeOf(row))
	}

	return result
}

func changeOf(row model.Row) RegionChange {
	change := RegionChange{Type: row.Type, Code: row.Code, Name: row.Name}
	if row.ParentCode != nil {
		change.ParentCode = *row.ParentCode
	}
	return change
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// outputComparisonText writes the comparison in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) {
	fmt.Fprintf(out, "Crawl Comparison: %s -> %s\n", result.Previous.StandardDate, result.Current.StandardDate)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious crawl: %s (%s, %d regions)\n",
		result.Previous.ID, result.Previous.StartedAt.Local().Format(historyTimeFormat), result.Previous.RegionCount)
	fmt.Fprintf(out, "Current crawl:  %s (%s, %d regions)\n",
		result.Current.ID, result.Current.StartedAt.Local().Format(historyTimeFormat), result.Current.RegionCount)

	if result.Previous.MaxLevel != result.Current.MaxLevel {
		fmt.Fprintf(out, "\nNote: the crawls cover different levels (%d and %d).\n",
			result.Previous.MaxLevel, result.Current.MaxLevel)
	}

	fmt.Fprintf(out, "\nAdded: %d  Removed: %d  Renamed: %d  Unchanged: %d\n",
		len(result.Added), len(result.Removed), len(result.Renamed), result.UnchangedCount)

	if len(result.Added) > 0 {
		fmt.Fprintf(out, "\nAdded Regions (%d):\n", len(result.Added))
		for _, c := range result.Added {
			fmt.Fprintf(out, "  [+] [%s] %s %s\n", c.Type, c.Code, c.Name)
		}
	}

	if len(result.Removed) > 0 {
		fmt.Fprintf(out, "\nRemoved Regions (%d):\n", len(result.Removed))
		for _, c := range result.Removed {
			fmt.Fprintf(out, "  [-] [%s] %s %s\n", c.Type, c.Code, c.Name)
		}
	}

	if len(result.Renamed) > 0 {
		fmt.Fprintf(out, "\nRenamed Regions (%d):\n", len(result.Renamed))
		for _, c := range result.Renamed {
			fmt.Fprintf(out, "  [~] [%s] %s %s -> %s\n", c.Type, c.Code, c.PreviousName, c.Name)
		}
	}
}

// outputComparisonMarkdown writes the comparison in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Crawl Comparison: " + result.Previous.StandardDate + " to " + result.Current.StandardDate)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current"},
		Rows: [][]string{
			{"Crawl ID", "`" + result.Previous.ID + "`", "`" + result.Current.ID + "`"},
			{"Standard", result.Previous.StandardDate, result.Current.StandardDate},
			{"Levels", strconv.Itoa(result.Previous.MaxLevel), strconv.Itoa(result.Current.MaxLevel)},
			{"Regions", strconv.Itoa(result.Previous.RegionCount), strconv.Itoa(result.Current.RegionCount)},
		},
	})
	md.PlainText("")

	if result.Previous.MaxLevel != result.Current.MaxLevel {
		md.Notef("The crawls cover different levels (%d and %d).",
			result.Previous.MaxLevel, result.Current.MaxLevel)
	}

	writeChangeTable(md, "Added Regions", result.Added, false)
	writeChangeTable(md, "Removed Regions", result.Removed, false)
	writeChangeTable(md, "Renamed Regions", result.Renamed, true)

	md.HorizontalRule()
	md.PlainTextf("*%d regions unchanged*", result.UnchangedCount)

	return md.Build()
}

// writeChangeTable writes one section of changes, if there are any.
func writeChangeTable(md *markdown.Markdown, title string, changes []RegionChange, renamed bool) {
	if len(changes) == 0 {
		return
	}

	md.H2(fmt.Sprintf("%s (%d)", title, len(changes)))
	md.PlainText("")

	header := []string{"Type", "Code", "Name", "Parent"}
	if renamed {
		header = []string{"Type", "Code", "Previous Name", "Name"}
	}

	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		if renamed {
			rows = append(rows, []string{c.Type, c.Code, c.PreviousName, c.Name})
			continue
		}
		rows = append(rows, []string{c.Type, c.Code, c.Name, c.ParentCode})
	}

	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")
}
