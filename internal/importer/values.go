// Package importer turns extracted tabular records into warehouse entities:
// products, locations, categories, contacts and users, with per-row error
// isolation and quantity reconciliation against the stock ledger.
package importer

import (
	"strings"

	"github.com/shopspring/decimal"

	"wms-service/internal/tabular"
)

// ValidationError marks a row-level input problem (bad value, missing
// required field). Orchestrators record it against the row and continue,
// unlike infrastructure errors which abort the batch.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError.
func Invalid(msg string) *ValidationError { return &ValidationError{Message: msg} }

var trueValues = map[string]bool{
	"true": true, "1": true, "yes": true, "y": true,
	"oui": true, "o": true, "vrai": true,
}

var falseValues = map[string]bool{
	"false": true, "0": true, "no": true, "n": true,
	"non": true, "faux": true,
}

// GetValue returns the first present cell among the given normalized keys.
// Column aliases ("quantity", "quantite", "stock", "qty") resolve through
// this: first key wins even if its cell is blank.
func GetValue(rec tabular.Record, keys ...string) tabular.Cell {
	for _, k := range keys {
		if c, ok := rec.Cells[k]; ok && c.Present() {
			return c
		}
	}
	return tabular.Cell{}
}

// ParseStr returns the trimmed text of a cell and whether the cell carried
// a non-blank value.
func ParseStr(c tabular.Cell) (string, bool) {
	if !c.Present() {
		return "", false
	}
	s := strings.TrimSpace(c.Text())
	if s == "" {
		return "", false
	}
	return s, true
}

// ParseBool interprets a yes/no cell in both English and French. Blank
// means absent, anything outside the two known vocabularies is an error.
func ParseBool(c tabular.Cell) (value, ok bool, err error) {
	if c.Kind == tabular.Bool {
		return c.Truth, true, nil
	}
	s, present := ParseStr(c)
	if !present {
		return false, false, nil
	}
	key := strings.ToLower(s)
	if trueValues[key] {
		return true, true, nil
	}
	if falseValues[key] {
		return false, true, nil
	}
	return false, false, Invalid("Invalid boolean value: " + s)
}

// ParseDecimal reads a decimal cell, accepting a comma as the decimal
// separator. Blank means absent.
func ParseDecimal(c tabular.Cell) (*decimal.Decimal, error) {
	s, present := ParseStr(c)
	if !present {
		return nil, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, Invalid("Invalid decimal value: " + c.Text())
	}
	return &d, nil
}

// ParseInt reads an integer cell. Fractional input rounds half away from
// zero, so "2.5" becomes 3. Blank means absent.
func ParseInt(c tabular.Cell) (*int, error) {
	d, err := ParseDecimal(c)
	if err != nil || d == nil {
		return nil, err
	}
	n := int(d.Round(0).IntPart())
	return &n, nil
}

// ParseTokens splits a multi-value cell on pipes and commas, trimming and
// dropping empty tokens. Used for tag lists.
func ParseTokens(c tabular.Cell) []string {
	s, present := ParseStr(c)
	if !present {
		return nil
	}
	var out []string
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ','
	}) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
