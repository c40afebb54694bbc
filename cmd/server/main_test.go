package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/payroll"
)

var sampleReport = []payroll.PayrollRow{
	{EmployeeID: "1", PayPeriod: "1/11/2016 - 15/11/2016", AmountPaid: decimal.NewFromInt(150)},
	{EmployeeID: "2", PayPeriod: "1/11/2016 - 15/11/2016", AmountPaid: decimal.RequireFromString("120.5")},
}

func TestPrintReport_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, "csv", sampleReport))

	assert.Equal(t, "Employee ID,Pay Period,Amount Paid\n"+
		"1,1/11/2016 - 15/11/2016,150.00\n"+
		"2,1/11/2016 - 15/11/2016,120.50\n", buf.String())
}

func TestPrintReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, "json", sampleReport))

	var lines []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &lines))
	require.Len(t, lines, 2)
	assert.Equal(t, "120.50", lines[1]["amount_paid"])
}

func TestPrintReport_UnknownFormat(t *testing.T) {
	assert.Error(t, printReport(&bytes.Buffer{}, "xml", sampleReport))
}

func TestOpenStore_SQLite(t *testing.T) {
	// GIVEN: A sqlite path in a directory that does not exist yet
	path := filepath.Join(t.TempDir(), "nested", "payroll.db")

	// WHEN
	store, version, err := openStore(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})

	// THEN: The database is created and migrated
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, uint(2), version)
	assert.NoError(t, store.Ping(context.Background()))

	report, err := store.LoadReport(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report)
}
