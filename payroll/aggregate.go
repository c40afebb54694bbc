/*
aggregate.go - Payroll report computation

PURPOSE:
  Computes one amount per (employee, pay period) from the full set of
  stored TimeRecords. The report is always derived from every record in
  the store, never from a single submission, so it stays consistent with
  the timefiles table.

ALGORITHM:
  1. Map:     each TimeRecord -> PayrollRow (rate * hours, PayPeriod(date))
  2. Group:   partition rows by employee id, in first-seen order
  3. Reduce:  within an employee, sum amounts that share a pay period;
              the first row of a period fixes its position
  4. Flatten: concatenate the reduced groups in group order

ORDERING:
  The output order depends only on the input order. Records read back from
  the store arrive sorted by employee id then date, so the report is
  sorted the same way.

RATES:
  Job group A is paid 20/hour. Every other group, including the empty
  one, is paid 30/hour.
*/
package payroll

import "github.com/shopspring/decimal"

var (
	rateGroupA   = decimal.NewFromInt(20)
	rateFallback = decimal.NewFromInt(30)
)

// HourlyRate returns the hourly rate for a job group.
func HourlyRate(g JobGroup) decimal.Decimal {
	if g == JobGroupA {
		return rateGroupA
	}
	return rateFallback
}

// RowFor maps a single TimeRecord to its payroll candidate.
func RowFor(r TimeRecord) PayrollRow {
	return PayrollRow{
		EmployeeID: r.EmployeeID,
		AmountPaid: HourlyRate(r.JobGroup).Mul(r.HoursWorked),
		PayPeriod:  PayPeriod(r.Date),
	}
}

// Aggregate computes the payroll report for records.
func Aggregate(records []TimeRecord) []PayrollRow {
	candidates := make([]PayrollRow, len(records))
	for i, r := range records {
		candidates[i] = RowFor(r)
	}

	var report []PayrollRow
	for _, group := range GroupByEmployee(candidates) {
		report = append(report, ReduceByPeriod(group)...)
	}
	if report == nil {
		return []PayrollRow{}
	}
	return report
}

// GroupByEmployee partitions rows by employee id. Groups are returned in the
// order their employee first appears; rows keep their relative order.
func GroupByEmployee(rows []PayrollRow) [][]PayrollRow {
	index := make(map[string]int)
	var groups [][]PayrollRow

	for _, row := range rows {
		i, ok := index[row.EmployeeID]
		if !ok {
			i = len(groups)
			index[row.EmployeeID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], row)
	}
	return groups
}

// ReduceByPeriod sums the amounts of rows sharing a pay period. It is meant
// for the rows of a single employee; the result holds one row per period in
// first-seen order.
func ReduceByPeriod(rows []PayrollRow) []PayrollRow {
	index := make(map[string]int)
	reduced := make([]PayrollRow, 0, len(rows))

	for _, row := range rows {
		if i, ok := index[row.PayPeriod]; ok {
			reduced[i].AmountPaid = reduced[i].AmountPaid.Add(row.AmountPaid)
			continue
		}
		index[row.PayPeriod] = len(reduced)
		reduced = append(reduced, row)
	}
	return reduced
}
