package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

func record(emp string, hours string, group payroll.JobGroup, d time.Time) payroll.TimeRecord {
	return payroll.TimeRecord{
		EmployeeID:  emp,
		HoursWorked: decimal.RequireFromString(hours),
		JobGroup:    group,
		Date:        d,
	}
}

func amounts(rows []payroll.PayrollRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.EmployeeID + " " + r.PayPeriod + " " + r.AmountPaid.StringFixed(2)
	}
	return out
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestHourlyRate(t *testing.T) {
	assert.True(t, payroll.HourlyRate(payroll.JobGroupA).Equal(decimal.NewFromInt(20)))
	assert.True(t, payroll.HourlyRate(payroll.JobGroupB).Equal(decimal.NewFromInt(30)))
	assert.True(t, payroll.HourlyRate(payroll.JobGroupUnclassified).Equal(decimal.NewFromInt(30)))
}

func TestAggregate_SumsPerEmployeeAndPeriod(t *testing.T) {
	// GIVEN: Records sorted by employee id then date, as the store returns them
	records := []payroll.TimeRecord{
		record("1", "10", payroll.JobGroupA, date(2016, time.November, 4)),
		record("1", "5", payroll.JobGroupA, date(2016, time.November, 14)),
		record("1", "3", payroll.JobGroupA, date(2016, time.November, 20)),
		record("2", "4", payroll.JobGroupB, date(2016, time.November, 20)),
		record("2", "3.5", payroll.JobGroupB, date(2016, time.December, 1)),
	}

	// WHEN
	report := payroll.Aggregate(records)

	// THEN: One row per (employee, period), in input order
	assert.Equal(t, []string{
		"1 1/11/2016 - 15/11/2016 300.00",
		"1 16/11/2016 - 30/11/2016 60.00",
		"2 16/11/2016 - 30/11/2016 120.00",
		"2 1/12/2016 - 15/12/2016 105.00",
	}, amounts(report))
}

func TestAggregate_MixedGroupsInOnePeriod(t *testing.T) {
	// GIVEN: An employee who changed job group inside a period
	records := []payroll.TimeRecord{
		record("7", "2", payroll.JobGroupA, date(2023, time.January, 2)),
		record("7", "2", payroll.JobGroupB, date(2023, time.January, 3)),
		record("7", "1", payroll.JobGroupUnclassified, date(2023, time.January, 4)),
	}

	report := payroll.Aggregate(records)

	require.Len(t, report, 1)
	assert.Equal(t, "130.00", report[0].AmountPaid.StringFixed(2))
}

func TestAggregate_FirstSeenOrder(t *testing.T) {
	// GIVEN: Unsorted input
	records := []payroll.TimeRecord{
		record("9", "1", payroll.JobGroupA, date(2020, time.May, 20)),
		record("3", "1", payroll.JobGroupA, date(2020, time.May, 1)),
		record("9", "1", payroll.JobGroupA, date(2020, time.May, 2)),
		record("9", "1", payroll.JobGroupA, date(2020, time.May, 21)),
	}

	// THEN: Employee and period order follow first appearance
	assert.Equal(t, []string{
		"9 16/5/2020 - 31/5/2020 40.00",
		"9 1/5/2020 - 15/5/2020 20.00",
		"3 1/5/2020 - 15/5/2020 20.00",
	}, amounts(payroll.Aggregate(records)))
}

func TestAggregate_Empty(t *testing.T) {
	report := payroll.Aggregate(nil)
	assert.NotNil(t, report)
	assert.Empty(t, report)
}

func TestAggregate_Deterministic(t *testing.T) {
	records := []payroll.TimeRecord{
		record("1", "8", payroll.JobGroupB, date(2016, time.February, 28)),
		record("1", "8", payroll.JobGroupB, date(2016, time.February, 29)),
		record("2", "1.25", payroll.JobGroupA, date(2016, time.February, 1)),
	}

	first := payroll.Aggregate(records)
	second := payroll.Aggregate(records)
	assert.Equal(t, amounts(first), amounts(second))
	assert.Equal(t, []string{
		"1 16/2/2016 - 29/2/2016 480.00",
		"2 1/2/2016 - 15/2/2016 25.00",
	}, amounts(first))
}
