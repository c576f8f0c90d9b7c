package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/regionspider/internal/model"
)

// Format identifies an output format.
type Format int

const (
	// FormatCSV is the primary region export.
	FormatCSV Format = iota
	// FormatXLSX is the spreadsheet export.
	FormatXLSX
	// FormatMarkdown is the crawl summary.
	FormatMarkdown
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	case FormatMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// NewWriter returns the Writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(output), nil
	case FormatXLSX:
		return NewXLSXWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unsupported output format %d", format)
	}
}

// Target is one file to write.
type Target struct {
	Path   string
	Format Format
}

// WriteFiles writes result to every target. Targets are written
// concurrently; each file is created or truncated. The rows are built
// before the writers start and are only read by them.
func WriteFiles(ctx context.Context, result *model.CrawlResult, targets ...Target) error {
	if result.Rows == nil {
		result.Rows = BuildRows(result.Regions, result.Standard)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writeFile(target, result); err != nil {
				return fmt.Errorf("failed to write %s file %s: %w", target.Format, target.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// writeFile creates target.Path, creating missing parent directories.
func writeFile(target Target, result *model.CrawlResult) (err error) {
	if target.Format.String() == "unknown" {
		return fmt.Errorf("unsupported output format %d", target.Format)
	}

	if dir := filepath.Dir(target.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	f, err := os.Create(filepath.Clean(target.Path))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := NewWriter(target.Format, f)
	if err != nil {
		return err
	}
	return w.Write(result)
}
