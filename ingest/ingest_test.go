package ingest_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/payroll-engine/ingest"
	"github.com/warp/payroll-engine/payroll"
)

func drain(t *testing.T, src payroll.RowSource) []payroll.RawRow {
	t.Helper()
	var out []payroll.RawRow
	for {
		row, err := src.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, row)
	}
}

const sampleCSV = `date,hours worked,employee id,job group
14/11/2016,7.5,1,A
9/11/2016,4,2,B

report id,43,,
`

// =============================================================================
// CSV
// =============================================================================

func TestCSVSource_KeysByHeader(t *testing.T) {
	rows := drain(t, ingest.NewCSVSource(strings.NewReader(sampleCSV)))

	require.Len(t, rows, 3, "blank lines are skipped")
	assert.Equal(t, payroll.RawRow{
		"date":         "14/11/2016",
		"hours worked": "7.5",
		"employee id":  "1",
		"job group":    "A",
	}, rows[0])
	assert.True(t, rows[2].IsReportIDRow())
	assert.Equal(t, "43", rows[2]["hours worked"])
}

func TestCSVSource_NormalizesHeader(t *testing.T) {
	in := "\ufeffDate, Hours Worked ,EMPLOYEE ID,Job Group\n14/11/2016,8,1,A\n"
	rows := drain(t, ingest.NewCSVSource(strings.NewReader(in)))

	require.Len(t, rows, 1)
	assert.NoError(t, payroll.ValidateRow(rows[0]))
}

func TestCSVSource_MissingColumnIsAbsent(t *testing.T) {
	in := "date,hours worked,employee id\n14/11/2016,8,1\n"
	rows := drain(t, ingest.NewCSVSource(strings.NewReader(in)))

	require.Len(t, rows, 1)
	_, ok := rows[0].Get(payroll.FieldJobGroup)
	assert.False(t, ok)
}

func TestCSVSource_ShortRows(t *testing.T) {
	// GIVEN: Rows that stop before the last columns
	in := "date,hours worked,employee id,job group\n" +
		"14/11/2016,8,1\n" +
		"14/11/2016,8\n" +
		"report id,43\n"
	src := ingest.NewCSVSource(strings.NewReader(in))

	// WHEN: The rows are read
	first, err := src.Next()
	require.NoError(t, err)
	second, err := src.Next()
	require.NoError(t, err)
	sentinel, err := src.Next()
	require.NoError(t, err)

	// THEN: Missing cells are empty and left to the validator
	assert.Equal(t, payroll.RawRow{"date": "14/11/2016", "hours worked": "8", "employee id": "1", "job group": ""}, first)
	assert.True(t, payroll.IsValid(first))

	assert.Equal(t, "", second["employee id"])
	assert.ErrorIs(t, payroll.ValidateRow(second), payroll.ErrBadInput)

	assert.True(t, sentinel.IsReportIDRow())
	id, err := payroll.ValidateReportIDRow(sentinel)
	require.NoError(t, err)
	assert.Equal(t, "43", id)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCSVSource_Empty(t *testing.T) {
	_, err := ingest.NewCSVSource(strings.NewReader("")).Next()
	assert.Equal(t, io.EOF, err)
}

// =============================================================================
// XLSX
// =============================================================================

func workbook(t *testing.T, rows [][]any) *strings.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return strings.NewReader(buf.String())
}

func TestXLSXSource(t *testing.T) {
	in := workbook(t, [][]any{
		{"Date", "Hours Worked", "Employee ID", "Job Group"},
		{"14/11/2016", "7.5", "1", "A"},
		{time.Date(2016, time.November, 9, 0, 0, 0, 0, time.UTC), 4, 2, "B"},
		{"report id", "43"},
	})

	src, err := ingest.NewXLSXSource(in)
	require.NoError(t, err)
	rows := drain(t, src)

	require.Len(t, rows, 3)
	assert.Equal(t, "14/11/2016", rows[0]["date"])
	assert.Equal(t, "09/11/2016", rows[1]["date"], "date cells are rendered as dd/mm/yyyy")
	assert.Equal(t, "4", rows[1]["hours worked"])
	assert.True(t, rows[2].IsReportIDRow())

	group, ok := rows[2].Get(payroll.FieldJobGroup)
	assert.True(t, ok, "trimmed trailing cells are present")
	assert.Empty(t, group)
}

func TestXLSXSource_NotAWorkbook(t *testing.T) {
	_, err := ingest.NewXLSXSource(strings.NewReader("date,hours worked\n"))
	assert.Error(t, err)
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestOpen_ByExtension(t *testing.T) {
	src, err := ingest.Open("time-report-43.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.IsType(t, &ingest.CSVSource{}, src)

	src, err = ingest.Open("TIME-REPORT.XLSX", workbook(t, [][]any{{"date"}}))
	require.NoError(t, err)
	assert.IsType(t, &ingest.XLSXSource{}, src)
}

func TestRows(t *testing.T) {
	src := ingest.Rows([]payroll.RawRow{{"date": "a"}, {"date": "b"}})
	rows := drain(t, src)
	assert.Len(t, rows, 2)

	_, err := src.Next()
	assert.Equal(t, io.EOF, err)
}
