package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/payroll-engine/payroll"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// PAY PERIOD TESTS
// =============================================================================

func TestPayPeriod_Labels(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"first half", date(2016, time.November, 4), "1/11/2016 - 15/11/2016"},
		{"day 15 closes the first half", date(2016, time.November, 15), "1/11/2016 - 15/11/2016"},
		{"day 16 opens the second half", date(2016, time.November, 16), "16/11/2016 - 30/11/2016"},
		{"31 day month", date(2023, time.January, 20), "16/1/2023 - 31/1/2023"},
		{"february leap year", date(2016, time.February, 20), "16/2/2016 - 29/2/2016"},
		{"february common year", date(2017, time.February, 20), "16/2/2017 - 28/2/2017"},
		{"february century not leap", date(1900, time.February, 28), "16/2/1900 - 28/2/1900"},
		{"february 400 year leap", date(2000, time.February, 29), "16/2/2000 - 29/2/2000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payroll.PayPeriod(tt.date))
		})
	}
}

func TestPayPeriodOf_UsesUTCCalendarDate(t *testing.T) {
	// GIVEN: 23:30 on the 15th at UTC-5, which is the 16th in UTC
	loc := time.FixedZone("UTC-5", -5*60*60)
	local := time.Date(2016, time.March, 15, 23, 30, 0, 0, loc)

	// THEN: The second half of the month is selected
	p := payroll.PayPeriodOf(local)
	assert.Equal(t, 16, p.StartDay)
	assert.Equal(t, 31, p.EndDay)
}

func TestPeriod_Bounds(t *testing.T) {
	p := payroll.PayPeriodOf(date(2024, time.April, 20))

	assert.Equal(t, payroll.Period{Year: 2024, Month: time.April, StartDay: 16, EndDay: 30}, p)
	assert.Equal(t, p, payroll.PayPeriodOf(date(2024, time.April, 16)))
	assert.Equal(t, p, payroll.PayPeriodOf(date(2024, time.April, 30)))
	assert.NotEqual(t, p, payroll.PayPeriodOf(date(2024, time.April, 15)))
	assert.NotEqual(t, p, payroll.PayPeriodOf(date(2024, time.May, 1)))
}

func TestPeriodEnd(t *testing.T) {
	assert.Equal(t, 31, payroll.PeriodEnd(time.December, 2020))
	assert.Equal(t, 30, payroll.PeriodEnd(time.September, 2020))
	assert.Equal(t, 29, payroll.PeriodEnd(time.February, 2020))
	assert.Equal(t, 28, payroll.PeriodEnd(time.February, 2021))
}

func TestLeapYear(t *testing.T) {
	assert.True(t, payroll.LeapYear(2024))
	assert.True(t, payroll.LeapYear(2000))
	assert.False(t, payroll.LeapYear(1900))
	assert.False(t, payroll.LeapYear(2023))
}
