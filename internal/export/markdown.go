package export

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/regionspider/internal/model"
)

// MarkdownWriter outputs a crawl summary in Markdown format: the standard,
// counts per level, and one line per province.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the crawl summary.
func (w *MarkdownWriter) Write(result *model.CrawlResult) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeLevels(md, result)
	w.writeProvinces(md, result)
	w.writeFooter(md)

	return md.Build()
}

// writeHeader writes the crawl information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Region Crawl Summary")
	md.PlainText("")

	rows := [][]string{
		{"Standard", result.Standard.URL},
		{"Publication Date", result.Standard.Date},
		{"Levels", strconv.Itoa(result.MaxLevel)},
		{"Regions", strconv.Itoa(len(result.Regions))},
	}
	if result.CrawlID != "" {
		rows = append(rows, []string{"Crawl ID", "`" + result.CrawlID + "`"})
	}
	if elapsed := result.Elapsed(); elapsed > 0 {
		rows = append(rows, []string{"Elapsed", elapsed.Round(time.Millisecond).String()})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(result.Regions) == 0 {
		md.Warningf("No regions were found at %s.", result.Standard.URL)
	}
}

// writeLevels writes the per-level counts and their distribution.
func (w *MarkdownWriter) writeLevels(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Regions by Level")
	md.PlainText("")

	counts := model.CountByLevel(result.Regions)
	rows := make([][]string, 0, result.MaxLevel)
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Regions by Level"),
		piechart.WithShowData(true),
	)
	for _, level := range model.Levels() {
		if int(level) >= result.MaxLevel {
			break
		}
		rows = append(rows, []string{level.String(), strconv.Itoa(counts[level])})
		if counts[level] > 0 {
			chart.LabelAndIntValue(level.String(), uint64(counts[level]))
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Level", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if result.MaxLevel > 1 && len(result.Regions) > 0 {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

// writeProvinces writes one line per province with the number of regions
// below it. Regions are in pre-order, so a province's descendants are the
// run of regions up to the next province.
func (w *MarkdownWriter) writeProvinces(md *markdown.Markdown, result *model.CrawlResult) {
	if len(result.Regions) == 0 {
		return
	}

	md.H2("Provinces")
	md.PlainText("")

	var rows [][]string
	descendants := 0
	flush := func() {
		if len(rows) > 0 {
			rows[len(rows)-1][2] = strconv.Itoa(descendants)
		}
	}
	for _, r := range result.Regions {
		if r.Level == model.LevelProvince {
			flush()
			rows = append(rows, []string{r.Code, r.Name, ""})
			descendants = 0
			continue
		}
		descendants++
	}
	flush()

	md.Table(markdown.TableSet{
		Header: []string{"Code", "Name", "Subregions"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainTextf("*Generated by [regionspider](https://github.com/nao1215/regionspider)*")
}
