package payroll

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROW VALIDATOR
// =============================================================================

// Limits shared with the SQL schemas (VARCHAR(64), DECIMAL(10,4)).
const (
	MaxIDLength    = 64
	MaxHoursDigits = 4
)

var (
	requiredFields = []string{FieldDate, FieldEmployeeID, FieldHoursWorked, FieldJobGroup}
	minHours       = decimal.NewFromInt(1)
	maxHours       = decimal.NewFromInt(1_000_000)
)

// IsValid reports whether row satisfies the timefile row schema.
func IsValid(row RawRow) bool {
	return ValidateRow(row) == nil
}

// ValidateRow checks row against the schema and returns a *RowError for the
// first violation:
//   - date, employee id, hours worked and job group are present
//   - employee id is not empty and at most MaxIDLength characters
//   - hours worked is a number of at least 1, below 1,000,000, with at most
//     MaxHoursDigits decimals
//   - job group is A, B or empty
func ValidateRow(row RawRow) error {
	for _, field := range requiredFields {
		if _, ok := row.Get(field); !ok {
			return &RowError{Field: field, Reason: "is required"}
		}
	}

	employeeID := strings.TrimSpace(row[FieldEmployeeID])
	if employeeID == "" {
		return &RowError{Field: FieldEmployeeID, Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(employeeID) > MaxIDLength {
		return &RowError{Field: FieldEmployeeID, Value: employeeID, Reason: tooLong}
	}

	raw := row[FieldHoursWorked]
	hours, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return &RowError{Field: FieldHoursWorked, Value: raw, Reason: "must be a number"}
	}
	if hours.LessThan(minHours) {
		return &RowError{Field: FieldHoursWorked, Value: raw, Reason: "must be at least 1"}
	}
	if !hours.LessThan(maxHours) {
		return &RowError{Field: FieldHoursWorked, Value: raw, Reason: "must be below 1000000"}
	}
	if hours.Exponent() < -MaxHoursDigits && !hours.Equal(hours.Round(MaxHoursDigits)) {
		return &RowError{Field: FieldHoursWorked, Value: raw, Reason: fmt.Sprintf("must have at most %d decimals", MaxHoursDigits)}
	}

	if group := JobGroup(row[FieldJobGroup]); !group.Valid() {
		return &RowError{Field: FieldJobGroup, Value: row[FieldJobGroup], Reason: `must be "A", "B" or empty`}
	}

	return nil
}

var tooLong = fmt.Sprintf("must be at most %d characters", MaxIDLength)

// ValidateReportIDRow checks the sentinel row. Only the report id matters;
// the other columns of that row are ignored.
func ValidateReportIDRow(row RawRow) (string, error) {
	id := strings.TrimSpace(row[FieldHoursWorked])
	if id == "" {
		return "", &RowError{Field: FieldHoursWorked, Reason: "must hold the report id"}
	}
	if utf8.RuneCountInString(id) > MaxIDLength {
		return "", &RowError{Field: FieldHoursWorked, Value: id, Reason: tooLong}
	}
	return id, nil
}

// =============================================================================
// ROW NORMALIZER
// =============================================================================

// NormalizeRow reshapes a validated row into a TimeRecord: fields are mapped
// to their internal names and the dd/mm/yyyy date is reversed and parsed.
// The report id is assigned later, at submission.
func NormalizeRow(row RawRow) (TimeRecord, error) {
	date, err := ReverseDate(strings.TrimSpace(row[FieldDate]), false)
	if err != nil {
		return TimeRecord{}, &RowError{Field: FieldDate, Value: row[FieldDate], Reason: "must be dd/mm/yyyy"}
	}
	parsed, err := ParseStorageDate(date)
	if err != nil {
		return TimeRecord{}, &RowError{Field: FieldDate, Value: row[FieldDate], Reason: "is not a calendar date"}
	}

	hours, err := decimal.NewFromString(strings.TrimSpace(row[FieldHoursWorked]))
	if err != nil {
		return TimeRecord{}, &RowError{Field: FieldHoursWorked, Value: row[FieldHoursWorked], Reason: "must be a number"}
	}

	return TimeRecord{
		EmployeeID:  strings.TrimSpace(row[FieldEmployeeID]),
		HoursWorked: hours,
		JobGroup:    JobGroup(row[FieldJobGroup]),
		Date:        parsed,
	}, nil
}
