package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/regionspider/internal/model"
)

// SheetName is the worksheet holding the regions.
const SheetName = "regions"

// XLSXWriter writes the regions to a single-sheet workbook with the same
// columns as the CSV export. Rows are streamed, so a village-level crawl
// does not hold a second copy of every cell in memory.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the crawl as an XLSX workbook.
func (w *XLSXWriter) Write(result *model.CrawlResult) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open sheet: %w", err)
	}

	header := make([]any, len(model.Columns))
	for i, col := range model.Columns {
		header[i] = excelize.Cell{StyleID: bold, Value: col}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rowsOf(result) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxValues(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.ID, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w.output); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// xlsxValues keeps numeric columns numeric and leaves a missing parent
// code as an empty cell.
func xlsxValues(row model.Row) []any {
	var parent any
	if row.ParentCode != nil {
		parent = *row.ParentCode
	}
	return []any{
		row.ID,
		row.Code,
		row.Name,
		row.Type,
		parent,
		row.CreateTime,
		row.UpdateTime,
		row.IsDeleted,
	}
}
