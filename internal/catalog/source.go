package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// Source yields the raw catalog table, header row first.
type Source interface {
	Name() string
	Rows(ctx context.Context) ([][]string, error)
}

// WorkbookSource reads the catalog from an .xlsx file exported from the ERP.
type WorkbookSource struct {
	Path  string
	Sheet string
}

func (w WorkbookSource) Name() string { return w.Path }

// Rows returns the raw cell values of the configured sheet, or the first sheet
// when none is configured.
func (w WorkbookSource) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(w.Path); err != nil {
		return nil, fmt.Errorf("catalog workbook %q: %w", w.Path, err)
	}

	f, err := excelize.OpenFile(w.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("catalog workbook %q has no sheets", w.Path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// StaticSource serves rows held in memory.
type StaticSource struct {
	Label string
	Table [][]string
}

func (s StaticSource) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

func (s StaticSource) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Table == nil {
		return nil, fmt.Errorf("static catalog has no rows")
	}
	return s.Table, nil
}
