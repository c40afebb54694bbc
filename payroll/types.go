/*
Package payroll provides the timefile ingestion and payroll aggregation engine.

PURPOSE:
  Turns raw attendance rows from submitted timefiles into a payroll report.
  Rows are validated, normalized into TimeRecords, stored under a report id,
  and the whole report is recomputed from every stored record afterwards.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeRecord: One attendance entry (employee, hours, job group, date)
  - PayrollRow: One aggregated amount for an employee and pay period
  - JobGroup:   Classification that decides the hourly rate
  - RawRow:     A decoded file row, keyed by its external column names

DESIGN PRINCIPLES:
  1. Precision: hours and amounts use decimal.Decimal
  2. Full replace: the report is never patched, only recomputed
  3. Typed boundary: RawRow is validated before a TimeRecord exists

SEE ALSO:
  - row.go: Validation and normalization of RawRows
  - aggregate.go: TimeRecord -> PayrollRow map/reduce
  - pipeline.go: The ingestion state machine
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// JOB GROUP
// =============================================================================

// JobGroup is the coarse employee classification used for pricing.
type JobGroup string

const (
	JobGroupA            JobGroup = "A"
	JobGroupB            JobGroup = "B"
	JobGroupUnclassified JobGroup = ""
)

// Valid reports whether g is one of the accepted groups.
func (g JobGroup) Valid() bool {
	switch g {
	case JobGroupA, JobGroupB, JobGroupUnclassified:
		return true
	default:
		return false
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// TimeRecord is one attendance entry. (EmployeeID, Date) is unique in the store.
type TimeRecord struct {
	EmployeeID  string
	HoursWorked decimal.Decimal
	JobGroup    JobGroup
	Date        time.Time // UTC midnight
	ReportID    string
}

// StorageDate renders the date in the internal yyyy-mm-dd convention.
func (r TimeRecord) StorageDate() string {
	return r.Date.Format(DateLayout)
}

// ClientDate renders the date back to the dd/mm/yyyy convention used in files.
func (r TimeRecord) ClientDate() string {
	d, err := ReverseDate(r.StorageDate(), true)
	if err != nil {
		// StorageDate always has three components.
		return r.StorageDate()
	}
	return d
}

// PayrollRow is one line of the payroll report.
type PayrollRow struct {
	EmployeeID string
	AmountPaid decimal.Decimal
	PayPeriod  string
}

// =============================================================================
// RAW ROWS
// =============================================================================

// External column names of a timefile.
const (
	FieldDate        = "date"
	FieldEmployeeID  = "employee id"
	FieldHoursWorked = "hours worked"
	FieldJobGroup    = "job group"
)

// ReportIDMarker is the date value of the row that carries the report id.
const ReportIDMarker = "report id"

// RawRow is a decoded file row keyed by column name.
// A key that is absent means the column did not exist in the file.
type RawRow map[string]string

// Get returns the field value and whether the field is present.
func (r RawRow) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// IsReportIDRow reports whether this is the report id sentinel row.
func (r RawRow) IsReportIDRow() bool {
	return r[FieldDate] == ReportIDMarker
}

// RowSource yields decoded rows one at a time. Next returns io.EOF when
// the stream is exhausted.
type RowSource interface {
	Next() (RawRow, error)
}
