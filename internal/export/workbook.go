package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single sheet of the exported workbook.
const SheetName = "Relatorio"

var columnWidths = map[string]float64{
	"A": 14, "B": 16, "C": 14, "D": 42, "E": 16, "F": 10,
	"G": 18, "H": 12, "I": 12, "J": 12, "K": 12,
}

// WriteWorkbook renders rows as an .xlsx document. Mass cells are written as
// pt-BR formatted text so the file reads the same in any spreadsheet locale.
func WriteWorkbook(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	virtualStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true, Color: "7F7F7F"},
	})
	if err != nil {
		return fmt.Errorf("virtual style: %w", err)
	}

	for i, title := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, title); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return err
		}
	}

	for i, row := range rows {
		line := i + 2
		values := []any{
			row.Lot,
			row.Reservation,
			strconv.FormatInt(row.ProductCode, 10),
			row.Description,
			row.Status,
			row.Quantity,
			FormatMass(row.TheoreticalMass),
			row.RealWidth,
			row.CutWidth,
			row.RealLength,
			row.CutLength,
		}
		start, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", line, err)
		}
		if row.Virtual {
			end, _ := excelize.CoordinatesToCellName(len(Columns), line)
			if err := f.SetCellStyle(SheetName, start, end, virtualStyle); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
