package tabular

import (
	"strconv"
	"strings"
)

// CellKind tags what a source format actually carried in a cell, so that
// downstream parsing can distinguish a typed number from its text rendering.
type CellKind int

const (
	// Absent marks a column the row never had a value for.
	Absent CellKind = iota
	// String is raw text from the source.
	String
	// Number is a typed numeric value (XLSX cells, PDF-extracted numerics).
	Number
	// Bool is a typed boolean value.
	Bool
)

// Cell is one value in a record. The zero value is an Absent cell.
type Cell struct {
	Kind  CellKind
	Str   string
	Num   float64
	Truth bool
}

// StringCell wraps raw text.
func StringCell(s string) Cell { return Cell{Kind: String, Str: s} }

// NumberCell wraps a typed numeric value.
func NumberCell(f float64) Cell { return Cell{Kind: Number, Num: f} }

// BoolCell wraps a typed boolean value.
func BoolCell(b bool) Cell { return Cell{Kind: Bool, Truth: b} }

// Present reports whether the cell carried any value at all.
func (c Cell) Present() bool { return c.Kind != Absent }

// Text renders the cell as a string. Whole-number floats render without a
// fractional part so spreadsheet quantities round-trip as integers.
func (c Cell) Text() string {
	switch c.Kind {
	case String:
		return c.Str
	case Number:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case Bool:
		if c.Truth {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// IsBlank reports whether the cell is absent or only whitespace.
func (c Cell) IsBlank() bool {
	if !c.Present() {
		return true
	}
	if c.Kind == String {
		return strings.TrimSpace(c.Str) == ""
	}
	return false
}
