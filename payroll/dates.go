package payroll

import (
	"fmt"
	"strings"
	"time"
)

// Date conventions at the two boundaries.
const (
	DateLayout       = "2006-01-02" // storage
	ClientDateLayout = "02/01/2006" // files and API output
)

// ReverseDate flips a date between the client convention (dd/mm/yyyy) and
// the storage convention (yyyy-mm-dd).
//
// With toClient false the input is split on "/" and joined with "-";
// with toClient true it is split on "-" and joined with "/". The input must
// split into exactly three components.
func ReverseDate(date string, toClient bool) (string, error) {
	splitter, joiner := "/", "-"
	if toClient {
		splitter, joiner = "-", "/"
	}

	parts := strings.Split(date, splitter)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: %q has %d %q-separated components, want 3",
			ErrMalformedDate, date, len(parts), splitter)
	}

	return parts[2] + joiner + parts[1] + joiner + parts[0], nil
}

// ParseStorageDate parses a yyyy-mm-dd date into UTC midnight. Month and day
// may be unpadded. A time suffix (some drivers return DATETIME text) is cut.
func ParseStorageDate(s string) (time.Time, error) {
	if i := strings.IndexAny(s, " T"); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedDate, err)
	}
	return t, nil
}
