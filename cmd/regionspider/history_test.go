package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/regionspider/internal/database"
	"github.com/nao1215/regionspider/internal/export"
	"github.com/nao1215/regionspider/internal/model"
)

func testRow(typ, code, name, parent string) model.Row {
	r := model.Row{Type: typ, Code: code, Name: name}
	if parent != "" {
		r.ParentCode = &parent
	}
	return r
}

// TestCompareRows tests region matching by level and code.
func TestCompareRows(t *testing.T) {
	t.Parallel()

	previous := []model.Row{
		testRow("PROVINCE", "11", "北京市", ""),
		testRow("CITY", "1101", "市辖区", "11"),
		testRow("CITY", "1102", "县", "11"),
		testRow("PROVINCE", "13", "河北省", ""),
	}
	current := []model.Row{
		testRow("PROVINCE", "11", "北京市", ""),
		testRow("CITY", "1101", "北京市辖区", "11"),
		testRow("PROVINCE", "13", "河北省", ""),
		testRow("CITY", "133100", "雄安新区", "13"),
		// same code at another level is a different region
		testRow("COUNTY", "13", "某县", "1301"),
	}

	result := compareRows(previous, current)

	if result.UnchangedCount != 2 {
		t.Errorf("expected 2 unchanged, got %d", result.UnchangedCount)
	}

	if len(result.Added) != 2 {
		t.Fatalf("expected 2 added, got %+v", result.Added)
	}
	if result.Added[0].Code != "133100" || result.Added[0].ParentCode != "13" {
		t.Errorf("unexpected first addition: %+v", result.Added[0])
	}
	if result.Added[1].Type != "COUNTY" || result.Added[1].Code != "13" {
		t.Errorf("unexpected second addition: %+v", result.Added[1])
	}

	if len(result.Removed) != 1 || result.Removed[0].Code != "1102" {
		t.Errorf("expected 1102 removed, got %+v", result.Removed)
	}

	if len(result.Renamed) != 1 {
		t.Fatalf("expected 1 renamed, got %+v", result.Renamed)
	}
	renamed := result.Renamed[0]
	if renamed.Code != "1101" || renamed.PreviousName != "市辖区" || renamed.Name != "北京市辖区" {
		t.Errorf("unexpected rename: %+v", renamed)
	}
}

func TestCompareRowsIdentical(t *testing.T) {
	t.Parallel()

	rows := []model.Row{testRow("PROVINCE", "11", "北京市", ""), testRow("CITY", "1101", "市辖区", "11")}
	result := compareRows(rows, rows)

	if len(result.Added) != 0 || len(result.Removed) != 0 || len(result.Renamed) != 0 {
		t.Errorf("expected no changes, got %+v", result)
	}
	if result.UnchangedCount != 2 {
		t.Errorf("expected 2 unchanged, got %d", result.UnchangedCount)
	}
}

// seedHistory stores two crawls an hour apart and returns the database path
// with the ids of the older and newer crawl.
func seedHistory(t *testing.T) (dbPath, olderID, newerID string) {
	t.Helper()

	dbPath = filepath.Join(t.TempDir(), "history.db")
	db, err := database.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	save := func(date string, started time.Time, regions ...model.Region) string {
		t.Helper()
		result := model.NewCrawlResult(2)
		result.Standard = model.Standard{URL: "https://example.test/" + date + "/index.html", Date: date}
		result.Regions = regions
		result.Rows = export.BuildRows(regions, result.Standard)
		result.StartedAt = started
		result.FinishedAt = started.Add(time.Minute)

		id, err := db.SaveCrawl(context.Background(), result)
		if err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
		return id
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	olderID = save("2022-10-31", base,
		model.NewRegion("11", "北京市", model.LevelProvince),
		model.NewRegion("1101", "市辖区", model.LevelCity).WithParent("11"),
		model.NewRegion("13", "河北省", model.LevelProvince),
	)
	newerID = save("2023-09-11", base.Add(time.Hour),
		model.NewRegion("11", "北京市", model.LevelProvince),
		model.NewRegion("1101", "市辖区", model.LevelCity).WithParent("11"),
		model.NewRegion("13", "河北省", model.LevelProvince),
		model.NewRegion(model.FallbackCode, "雄安新区", model.LevelCity).WithParent("13"),
	)
	return dbPath, olderID, newerID
}

// runHistoryWith executes the history subcommand through the root command.
func runHistoryWith(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"history"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

// TestHistoryCmd tests listing and comparing stored crawls.
func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dbPath, olderID, newerID := seedHistory(t)

	t.Run("lists crawls newest first", func(t *testing.T) {
		t.Parallel()

		output, err := runHistoryWith(t, "--db", dbPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "Recorded crawls (2)") {
			t.Errorf("unexpected output: %q", output)
		}
		newer := strings.Index(output, newerID)
		older := strings.Index(output, olderID)
		if newer < 0 || older < 0 || newer > older {
			t.Errorf("expected %s before %s in %q", newerID, olderID, output)
		}
	})

	t.Run("limit keeps the newest crawls", func(t *testing.T) {
		t.Parallel()

		output, err := runHistoryWith(t, "--db", dbPath, "--limit", "1", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var crawls []database.Crawl
		if err := json.Unmarshal([]byte(output), &crawls); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(crawls) != 1 || crawls[0].ID != newerID {
			t.Errorf("expected only %s, got %+v", newerID, crawls)
		}
	})

	t.Run("lists crawls as markdown", func(t *testing.T) {
		t.Parallel()

		output, err := runHistoryWith(t, "--db", dbPath, "--markdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "# Recorded Crawls") || !strings.Contains(output, "2023-09-11") {
			t.Errorf("unexpected output: %q", output)
		}
	})

	t.Run("compares the latest two crawls", func(t *testing.T) {
		t.Parallel()

		output, err := runHistoryWith(t, "--db", dbPath, "--compare")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Crawl Comparison: 2022-10-31 -> 2023-09-11",
			"Added: 1  Removed: 0  Renamed: 0  Unchanged: 3",
			"[+] [CITY] 133100 雄安新区",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})

	t.Run("compares explicit crawls as JSON", func(t *testing.T) {
		t.Parallel()

		output, err := runHistoryWith(t, "--db", dbPath, "--compare",
			"--from", newerID, "--to", olderID, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal([]byte(output), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result.Previous.ID != newerID || result.Current.ID != olderID {
			t.Errorf("unexpected crawls: %s -> %s", result.Previous.ID, result.Current.ID)
		}
		if len(result.Removed) != 1 || result.Removed[0].Code != model.FallbackCode {
			t.Errorf("expected Xiong'an removed, got %+v", result.Removed)
		}
	})

	t.Run("compares as markdown", func(t *testing.T) {
		t.Parallel()

		output, err := runHistoryWith(t, "--db", dbPath, "--compare", "--markdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Crawl Comparison", "## Added Regions (1)", "雄安新区", "*3 regions unchanged*"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})

	t.Run("unknown crawl id", func(t *testing.T) {
		t.Parallel()

		_, err := runHistoryWith(t, "--db", dbPath, "--compare", "--from", "missing")
		if !errors.Is(err, database.ErrCrawlNotFound) {
			t.Errorf("expected ErrCrawlNotFound, got %v", err)
		}
	})
}

// TestHistoryCmdNeedsTwoCrawls tests comparison with too little history.
func TestHistoryCmdNeedsTwoCrawls(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "history.db")

	output, err := runHistoryWith(t, "--db", dbPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "No crawls found") {
		t.Errorf("unexpected output: %q", output)
	}

	_, err = runHistoryWith(t, "--db", dbPath, "--compare")
	if err == nil || !strings.Contains(err.Error(), "no crawls found") {
		t.Errorf("expected no crawls error, got %v", err)
	}
}

// TestParseHistoryOptions tests flag validation.
func TestParseHistoryOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"json and markdown", []string{"--json", "--markdown"}, "cannot be used together"},
		{"from without compare", []string{"--from", "abc"}, "require --compare"},
		{"negative limit", []string{"--limit=-1"}, "must not be negative"},
		{"valid", []string{"--compare", "--to", "abc", "-j"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewHistoryCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			opts, err := parseHistoryOptions(cmd)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !opts.compare || opts.to != "abc" || !opts.json {
					t.Errorf("unexpected options: %+v", opts)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
