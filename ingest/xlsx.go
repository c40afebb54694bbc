package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/payroll-engine/payroll"
)

// ErrNoWorksheet is returned for a workbook without sheets.
var ErrNoWorksheet = errors.New("workbook has no worksheet")

// XLSXSource yields rows of the first worksheet of an Excel workbook.
type XLSXSource struct {
	header []string
	rows   [][]string
	date   int // index of the date column, -1 if absent
}

// NewXLSXSource reads the whole workbook from r.
//
// Cells are read raw, so a date typed as an Excel date arrives as a serial
// number and is rendered back to dd/mm/yyyy. Text cells are kept as is.
func NewXLSXSource(r io.Reader) (*XLSXSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoWorksheet
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	src := &XLSXSource{date: -1}
	if len(rows) == 0 {
		return src, nil
	}

	src.header = normalizeHeader(rows[0])
	src.rows = rows[1:]
	for i, name := range src.header {
		if name == payroll.FieldDate {
			src.date = i
			break
		}
	}
	return src, nil
}

// Next returns the next non-blank sheet row keyed by header name, or io.EOF.
func (s *XLSXSource) Next() (payroll.RawRow, error) {
	for len(s.rows) > 0 {
		cells := s.rows[0]
		s.rows = s.rows[1:]
		if blank(cells) {
			continue
		}

		row := rowFromCells(s.header, cells)
		if s.date >= 0 {
			row[payroll.FieldDate] = excelDate(row[payroll.FieldDate])
		}
		return row, nil
	}
	return nil, io.EOF
}

// excelDate converts a serial date cell to dd/mm/yyyy. Anything that is not
// a plain number is returned unchanged.
func excelDate(v string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || serial <= 0 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format(payroll.ClientDateLayout)
}
