package ingest

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/warp/payroll-engine/payroll"
)

// CSVSource streams rows from a comma separated file with a header row.
type CSVSource struct {
	r      *csv.Reader
	header []string
}

// NewCSVSource reads r lazily; the header is consumed by the first Next.
// Rows may be shorter or longer than the header.
func NewCSVSource(r io.Reader) *CSVSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &CSVSource{r: cr}
}

// Next returns the next non-blank row keyed by header name, or io.EOF.
// Missing trailing cells are present and empty.
func (s *CSVSource) Next() (payroll.RawRow, error) {
	if s.header == nil {
		cells, err := s.r.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read csv header: %w", err)
		}
		s.header = normalizeHeader(cells)
	}

	for {
		cells, err := s.r.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		if blank(cells) {
			continue
		}
		return rowFromCells(s.header, cells), nil
	}
}
