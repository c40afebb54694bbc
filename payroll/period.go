package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// PAY PERIOD - Half-month buckets used as the aggregation key
// =============================================================================

// Period is a half-month pay period: [1, 15] or [16, month end].
type Period struct {
	Year     int
	Month    time.Month
	StartDay int
	EndDay   int
}

// String returns the label "start/month/year - end/month/year" without
// zero padding, e.g. "16/2/2016 - 29/2/2016".
func (p Period) String() string {
	m := int(p.Month)
	return fmt.Sprintf("%d/%d/%d - %d/%d/%d", p.StartDay, m, p.Year, p.EndDay, m, p.Year)
}

// PayPeriodOf returns the pay period containing the UTC calendar date of t.
func PayPeriodOf(t time.Time) Period {
	t = t.UTC()
	year, month, day := t.Date()

	if day > 15 {
		return Period{Year: year, Month: month, StartDay: 16, EndDay: PeriodEnd(month, year)}
	}
	return Period{Year: year, Month: month, StartDay: 1, EndDay: 15}
}

// PayPeriod returns the pay period label for t.
func PayPeriod(t time.Time) string {
	return PayPeriodOf(t).String()
}

// PeriodEnd returns the last day of the given month.
func PeriodEnd(month time.Month, year int) int {
	switch month {
	case time.January, time.March, time.May, time.July, time.August, time.October, time.December:
		return 31
	case time.February:
		if LeapYear(year) {
			return 29
		}
		return 28
	default:
		return 30
	}
}

// LeapYear reports whether year is a Gregorian leap year.
func LeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}
