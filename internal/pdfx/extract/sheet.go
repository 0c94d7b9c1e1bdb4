package extract

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Extracted"

// WriteWorkbook writes the recovered table to an xlsx file at path.
// The format requires at least one visible sheet, so the writer forces
// the first sheet visible if every sheet would otherwise be hidden.
func WriteWorkbook(path string, table *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	for ri, row := range table.Rows {
		for ci, cell := range row {
			name, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err != nil {
				return fmt.Errorf("cell (%d,%d): %w", ri+1, ci+1, err)
			}
			if err := f.SetCellValue(sheetName, name, cell); err != nil {
				return err
			}
		}
	}

	if err := ensureVisibleSheet(f); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func ensureVisibleSheet(f *excelize.File) error {
	names := f.GetSheetList()
	for _, n := range names {
		visible, err := f.GetSheetVisible(n)
		if err != nil {
			return err
		}
		if visible {
			return nil
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("workbook has no sheets")
	}
	return f.SetSheetVisible(names[0], true)
}
