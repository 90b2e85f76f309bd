package tabular

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// cellGapPoints is the horizontal whitespace, in PDF points, beyond which two
// text fragments on the same line are treated as separate columns.
const cellGapPoints = 12.0

// ExtractPDF pulls tabular text out of a PDF. Fragments that share a visual
// row are grouped into cells by their horizontal gaps; when positional data
// is unusable the plain text stream is split on runs of whitespace instead.
// Options.PageStart and PageEnd bound the pages read (1-based, inclusive).
func ExtractPDF(raw []byte, opts Options) (*Table, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	total := reader.NumPage()
	start, end := opts.PageStart, opts.PageEnd
	if start < 1 {
		start = 1
	}
	if end < 1 || end > total {
		end = total
	}
	if start > total {
		return nil, fmt.Errorf("page %d beyond end of document (%d pages)", start, total)
	}
	if start > end {
		return nil, fmt.Errorf("invalid page range %d-%d", start, end)
	}

	var lines [][]string
	for n := start; n <= end; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		pageLines, err := pageCells(page)
		if err != nil || len(pageLines) == 0 {
			pageLines = plainTextCells(page)
		}
		lines = append(lines, pageLines...)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no tabular text found in PDF")
	}

	headerRow := opts.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	if headerRow > len(lines) {
		return nil, fmt.Errorf("header row %d beyond extracted content", headerRow)
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

// pageCells extracts one page as rows of cells from positioned fragments.
func pageCells(page pdf.Page) ([][]string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}
	var out [][]string
	for _, r := range rows {
		frags := append([]pdf.Text(nil), r.Content...)
		sort.Slice(frags, func(i, j int) bool { return frags[i].X < frags[j].X })

		var cells []string
		var current strings.Builder
		var prevEnd float64
		for i, t := range frags {
			s := strings.TrimSpace(t.S)
			if s == "" {
				continue
			}
			if i > 0 && t.X-prevEnd > cellGapPoints && current.Len() > 0 {
				cells = append(cells, current.String())
				current.Reset()
			} else if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(s)
			prevEnd = t.X + t.W
		}
		if current.Len() > 0 {
			cells = append(cells, current.String())
		}
		if len(cells) > 0 {
			out = append(out, cells)
		}
	}
	return out, nil
}

// plainTextCells reads the page's plain text and splits each line into cells
// on runs of two or more spaces.
func plainTextCells(page pdf.Page) [][]string {
	text, err := page.GetPlainText(nil)
	if err != nil {
		return nil
	}
	var out [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var cells []string
		for _, c := range strings.Split(line, "  ") {
			c = strings.TrimSpace(c)
			if c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			out = append(out, cells)
		}
	}
	return out
}

// PDFPageCount reports how many pages a PDF has, for upload-time validation
// of a requested page range.
func PDFPageCount(raw []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return 0, fmt.Errorf("opening PDF: %w", err)
	}
	return reader.NumPage(), nil
}
