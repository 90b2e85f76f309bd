package tabular

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// ExtractCSV decodes and parses CSV bytes into a Table. The delimiter is
// semicolon by default per the French spreadsheet convention, switching to
// comma only when the header line contains commas and no semicolons.
func ExtractCSV(raw []byte, opts Options) (*Table, error) {
	text, err := DecodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding CSV file: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV file: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("file contains no rows")
	}

	headerRow := opts.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	if headerRow > len(lines) {
		return nil, fmt.Errorf("header row %d beyond end of file", headerRow)
	}

	table := &Table{Headers: lines[headerRow-1]}
	for i := headerRow; i < len(lines); i++ {
		row := Row{Origin: i + 1, Cells: make([]Cell, len(lines[i]))}
		for j, v := range lines[i] {
			row.Cells[j] = StringCell(v)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func sniffDelimiter(text string) rune {
	firstLine := text
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		firstLine = text[:idx]
	}
	if strings.ContainsRune(firstLine, ',') && !strings.ContainsRune(firstLine, ';') {
		return ','
	}
	return ';'
}
