package payroll_test

import (
	"context"
	"io"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// faultyStore wraps the memory store and injects failures per operation.
type faultyStore struct {
	*store.Memory

	existsErr  error
	insertErr  error
	deleteErr  error
	loadErr    error
	replaceErr error

	// rowByRow inserts records one at a time, like a store without
	// transactions, so a duplicate leaves the earlier rows behind.
	rowByRow bool

	deletes []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: store.NewMemory()}
}

func (s *faultyStore) ReportExists(ctx context.Context, reportID string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.Memory.ReportExists(ctx, reportID)
}

func (s *faultyStore) InsertTimeRecords(ctx context.Context, records []payroll.TimeRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if !s.rowByRow {
		return s.Memory.InsertTimeRecords(ctx, records)
	}
	for _, r := range records {
		if err := s.Memory.InsertTimeRecords(ctx, []payroll.TimeRecord{r}); err != nil {
			return err
		}
	}
	return nil
}

func (s *faultyStore) DeleteReport(ctx context.Context, reportID string) (int64, error) {
	s.deletes = append(s.deletes, reportID)
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	return s.Memory.DeleteReport(ctx, reportID)
}

func (s *faultyStore) LoadTimeRecords(ctx context.Context) ([]payroll.TimeRecord, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.Memory.LoadTimeRecords(ctx)
}

func (s *faultyStore) ReplaceReport(ctx context.Context, rows []payroll.PayrollRow) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	return s.Memory.ReplaceReport(ctx, rows)
}

// rows is a RowSource over a fixed slice.
type rows []payroll.RawRow

func (r *rows) Next() (payroll.RawRow, error) {
	if len(*r) == 0 {
		return nil, io.EOF
	}
	row := (*r)[0]
	*r = (*r)[1:]
	return row, nil
}

// failingSource yields its rows, then err.
type failingSource struct {
	rows
	err error
}

func (s *failingSource) Next() (payroll.RawRow, error) {
	row, err := s.rows.Next()
	if err == io.EOF {
		return nil, s.err
	}
	return row, err
}

func timeRow(d, emp, hours, group string) payroll.RawRow {
	return payroll.RawRow{
		payroll.FieldDate:        d,
		payroll.FieldEmployeeID:  emp,
		payroll.FieldHoursWorked: hours,
		payroll.FieldJobGroup:    group,
	}
}

func reportIDRow(id string) payroll.RawRow {
	return timeRow(payroll.ReportIDMarker, "", id, "")
}

func source(rs ...payroll.RawRow) *rows {
	r := rows(rs)
	return &r
}
