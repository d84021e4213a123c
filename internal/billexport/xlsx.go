package billexport

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"freightx/internal/freight"
)

// SheetName is the worksheet holding the bill.
const SheetName = "Bill Information"

const maxColWidth = 255

// XLSX renders the flattened bill as a single-sheet workbook. Column widths follow the
// longest cell in each column.
func XLSX(bill *freight.BillInfo) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := Rows(bill)
	widths := make([]int, len(columns))
	for r, row := range rows {
		for c, v := range row {
			if len(v) > widths[c] {
				widths[c] = len(v)
			}
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}

	for c, w := range widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetColWidth(SheetName, col, col, float64(min(w+2, maxColWidth)))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
