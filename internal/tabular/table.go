package tabular

import (
	"fmt"
	"strings"
)

// Row is one positional row with its origin line number in the source file.
// Origin is 1-based and counts the header row, so the first data row of a
// file with a header on line 1 has Origin 2.
type Row struct {
	Origin int
	Cells  []Cell
}

// Table is the format-independent result of extracting a tabular file.
type Table struct {
	Headers []string
	Rows    []Row
}

// Record is a row keyed by normalized header names.
type Record struct {
	Origin int
	Cells  map[string]Cell
}

// Get returns the cell for a normalized key; an absent key yields a zero Cell.
func (r Record) Get(key string) Cell { return r.Cells[key] }

// Records converts positional rows to keyed records. Header names are
// normalized; blank or duplicate headers fall back to a synthetic positional
// label so no column is silently dropped. Short rows read as Absent cells,
// extra cells beyond the headers are ignored.
func (t Table) Records() []Record {
	keys := make([]string, len(t.Headers))
	seen := make(map[string]bool, len(t.Headers))
	for i, h := range t.Headers {
		key := NormalizeHeader(h)
		if key == "" || seen[key] {
			key = fmt.Sprintf("column_%d", i+1)
		}
		seen[key] = true
		keys[i] = key
	}

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := Record{Origin: row.Origin, Cells: make(map[string]Cell, len(keys))}
		for i, key := range keys {
			if i < len(row.Cells) {
				rec.Cells[key] = row.Cells[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

// IsEmpty reports whether every cell of the row is blank.
func (r Row) IsEmpty() bool {
	for _, c := range r.Cells {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// IsEmpty reports whether every cell of the record is blank.
func (r Record) IsEmpty() bool {
	for _, c := range r.Cells {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// DisplayHeaders returns the raw headers with blanks replaced by positional
// labels, for column-mapping UIs.
func (t Table) DisplayHeaders() []string {
	out := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Colonne %d", i+1)
		}
		out[i] = h
	}
	return out
}
