package snapshot

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// ExcelWorkbook hydrates and exports a table snapshot as one worksheet,
// header row as column names, used for operator-facing import/export
// rather than as the system's primary store.
type ExcelWorkbook struct {
	path  string
	sheet string
}

func NewExcelWorkbook(path, sheet string) *ExcelWorkbook {
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &ExcelWorkbook{path: path, sheet: sheet}
}

// Hydrate reads every data row of the sheet (first row is the header) and
// pushes a change.SourceAdd for each into src.
func (w *ExcelWorkbook) Hydrate(src *source.Source) error {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("open workbook %q failed: %w", w.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q failed: %w", w.sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	for _, cells := range rows[1:] {
		r := make(row.Row, len(header))
		for i, col := range header {
			if i >= len(cells) {
				r[col] = nil
				continue
			}
			r[col] = parseCell(cells[i])
		}
		if err := src.Push(change.NewSourceAdd(r)); err != nil {
			return fmt.Errorf("hydrate workbook row into source %q failed: %w", src.Name(), err)
		}
	}
	return nil
}

// Export writes rows as one sheet, columns in declared order.
func (w *ExcelWorkbook) Export(columns []row.Column, rows []row.Row) error {
	f := excelize.NewFile()
	defer f.Close()
	if w.sheet != "Sheet1" {
		if _, err := f.NewSheet(w.sheet); err != nil {
			return err
		}
		f.SetActiveSheet(0)
		f.DeleteSheet("Sheet1")
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(w.sheet, cell, col.Name); err != nil {
			return err
		}
	}
	for rIdx, r := range rows {
		for cIdx, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(cIdx+1, rIdx+2)
			if err := f.SetCellValue(w.sheet, cell, r[col.Name]); err != nil {
				return err
			}
		}
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %q failed: %w", w.path, err)
	}
	return nil
}

func parseCell(s string) interface{} {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
