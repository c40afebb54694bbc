// Package ingest decodes uploaded timefiles into payroll rows.
//
// Every decoder keys cells by the header row. Header names are trimmed and
// lower-cased; a column missing from the header is absent from every row,
// which the row validator reports as a missing field.
package ingest

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/warp/payroll-engine/payroll"
)

// Open returns a RowSource for r, choosing the decoder from the extension
// of filename: .xlsx is read as an Excel workbook, anything else as CSV.
func Open(filename string, r io.Reader) (payroll.RowSource, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return NewXLSXSource(r)
	default:
		return NewCSVSource(r), nil
	}
}

// RowSlice is a RowSource over decoded rows.
type RowSlice struct {
	rows []payroll.RawRow
}

// Rows returns a RowSource yielding rows in order.
func Rows(rows []payroll.RawRow) *RowSlice {
	return &RowSlice{rows: rows}
}

// Next returns the next row, or io.EOF once all rows were returned.
func (s *RowSlice) Next() (payroll.RawRow, error) {
	if len(s.rows) == 0 {
		return nil, io.EOF
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}

// normalizeHeader trims and lower-cases header cells. A UTF-8 byte order
// mark on the first cell is dropped.
func normalizeHeader(cells []string) []string {
	header := make([]string, len(cells))
	for i, c := range cells {
		if i == 0 {
			c = strings.TrimPrefix(c, "\ufeff")
		}
		header[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return header
}

// rowFromCells keys cells by header. Cells beyond the header are dropped;
// trailing cells a decoder trimmed are present and empty.
func rowFromCells(header, cells []string) payroll.RawRow {
	row := make(payroll.RawRow, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if i < len(cells) {
			row[name] = cells[i]
		} else {
			row[name] = ""
		}
	}
	return row
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
