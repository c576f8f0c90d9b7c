package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/nao1215/regionspider/internal/model"
)

// CSVWriter writes the header and one record per region.
// Records end in CRLF, the conventional CSV line ending that spreadsheet
// imports expect.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the crawl as CSV.
func (w *CSVWriter) Write(result *model.CrawlResult) error {
	cw := csv.NewWriter(w.output)
	cw.UseCRLF = true

	if err := cw.Write(model.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rowsOf(result) {
		if err := cw.Write(row.Values()); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", row.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
