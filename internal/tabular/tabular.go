// Package tabular extracts rows and columns from uploaded files regardless
// of source format. CSV, XLSX and PDF inputs all produce the same Table
// model so importers never branch on file type.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Options tune extraction for formats that need them. Zero values mean
// "first sheet, header on line 1, all pages".
type Options struct {
	SheetName string
	HeaderRow int
	PageStart int
	PageEnd   int
}

// ExtractFunc parses raw file bytes into a Table.
type ExtractFunc func(raw []byte, opts Options) (*Table, error)

// Registry maps file extensions to extraction functions.
type Registry struct {
	byExt map[string]ExtractFunc
}

// NewRegistry builds the default registry covering .csv, .xlsx, .xlsm and
// .pdf. Legacy .xls workbooks are recognized but rejected with a clear error
// since no decoder for the binary format is available.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]ExtractFunc)}
	r.Register(".csv", ExtractCSV)
	r.Register(".xlsx", ExtractXLSX)
	r.Register(".xlsm", ExtractXLSX)
	r.Register(".pdf", ExtractPDF)
	return r
}

// Register installs an extractor for a file extension (with leading dot).
func (r *Registry) Register(ext string, fn ExtractFunc) {
	r.byExt[strings.ToLower(ext)] = fn
}

// Supports reports whether the registry can extract the named file.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract parses the file's bytes according to its extension.
func (r *Registry) Extract(filename string, raw []byte, opts Options) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	fn, ok := r.byExt[ext]
	if !ok {
		if ext == ".xls" {
			return nil, fmt.Errorf("legacy .xls format is not supported, save the file as .xlsx")
		}
		return nil, fmt.Errorf("unsupported file format %q", ext)
	}
	table, err := fn(raw, opts)
	if err != nil {
		return nil, err
	}
	return table, nil
}
