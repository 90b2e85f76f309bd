package tabular

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExtractXLSX parses an Excel workbook into a Table. Options.SheetName
// selects a sheet by exact name; when empty the first sheet with any content
// is used. Options.HeaderRow (1-based) marks the header line, rows above it
// are skipped.
func ExtractXLSX(raw []byte, opts Options) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q contains no rows", sheet)
	}

	headerRow := opts.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	if headerRow > len(rows) {
		return nil, fmt.Errorf("header row %d beyond end of sheet %q", headerRow, sheet)
	}

	table := &Table{Headers: rows[headerRow-1]}
	for i := headerRow; i < len(rows); i++ {
		row := Row{Origin: i + 1, Cells: make([]Cell, len(rows[i]))}
		for j, v := range rows[i] {
			row.Cells[j] = StringCell(v)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func pickSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook contains no sheets")
	}
	if name != "" {
		for _, s := range sheets {
			if s == name {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found in workbook", name)
	}
	for _, s := range sheets {
		rows, err := f.GetRows(s)
		if err == nil && len(rows) > 0 {
			return s, nil
		}
	}
	return sheets[0], nil
}

// ListSheets returns the workbook's sheet names, for upload previews.
func ListSheets(raw []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
