/*
Package sqlstore implements payroll.Store on top of database/sql.

PURPOSE:
  Holds the queries shared by every relational backend. Driver packages
  (store/sqlite, store/mysql) open the connection, run migrations and pass
  a Dialect describing what differs between engines.

KEY TABLES:
  timefiles:      One row per TimeRecord, UNIQUE(employee_id, date)
  payroll_report: One row per (employee_id, pay_period)

TRANSACTIONS:
  InsertTimeRecords and ReplaceReport each run in a single transaction.
  Statements inside a transaction only use the *sql.Tx so a store limited
  to one connection (sqlite :memory:) cannot deadlock on itself.

SEE ALSO:
  - payroll/store.go: Interface contract
  - store/sqlite, store/mysql: Drivers and migrations
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Dialect captures the engine specific parts of the store.
type Dialect struct {
	// Name prefixes every error returned by the store.
	Name string

	// UpsertReportSQL inserts one payroll_report row with parameters
	// (employee_id, pay_period, amount_paid), overwriting amount_paid when
	// the (employee_id, pay_period) key already exists.
	UpsertReportSQL string

	// IsDuplicateKey reports whether err is a unique constraint violation.
	IsDuplicateKey func(err error) bool
}

// Store implements payroll.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ payroll.Store = (*Store)(nil)

// New wraps an open, migrated database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// TIMEFILES
// =============================================================================

// ReportExists reports whether any timefile row carries reportID.
func (s *Store) ReportExists(ctx context.Context, reportID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM timefiles WHERE report_id = ? LIMIT 1`, reportID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, s.errorf("failed to check report id: %w", err)
	}
	return true, nil
}

// InsertTimeRecords inserts all records in one transaction.
func (s *Store) InsertTimeRecords(ctx context.Context, records []payroll.TimeRecord) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO timefiles (employee_id, hours_worked, job_group, date, report_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return s.errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.EmployeeID,
			r.HoursWorked.String(),
			string(r.JobGroup),
			r.StorageDate(),
			r.ReportID,
			now,
		)
		if err != nil {
			if s.dialect.IsDuplicateKey(err) {
				return s.errorf("%w: employee %s on %s: %v",
					payroll.ErrDuplicateKey, r.EmployeeID, r.StorageDate(), err)
			}
			return s.errorf("failed to insert timefile row: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return s.errorf("failed to commit timefile: %w", err)
	}
	return nil
}

// DeleteReport removes every timefile row carrying reportID.
func (s *Store) DeleteReport(ctx context.Context, reportID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timefiles WHERE report_id = ?`, reportID)
	if err != nil {
		return 0, s.errorf("failed to delete report %s: %w", reportID, err)
	}
	return res.RowsAffected()
}

// LoadTimeRecords returns every timefile row ordered by employee id, then date.
func (s *Store) LoadTimeRecords(ctx context.Context) ([]payroll.TimeRecord, error) {
	return s.queryTimeRecords(ctx, `
		SELECT employee_id, hours_worked, job_group, date, report_id
		FROM timefiles
		ORDER BY employee_id, date
	`)
}

// LoadReportRecords returns the rows submitted under reportID.
func (s *Store) LoadReportRecords(ctx context.Context, reportID string) ([]payroll.TimeRecord, error) {
	return s.queryTimeRecords(ctx, `
		SELECT employee_id, hours_worked, job_group, date, report_id
		FROM timefiles
		WHERE report_id = ?
		ORDER BY employee_id, date
	`, reportID)
}

func (s *Store) queryTimeRecords(ctx context.Context, query string, args ...any) ([]payroll.TimeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.errorf("failed to query timefiles: %w", err)
	}
	defer rows.Close()

	records := []payroll.TimeRecord{}
	for rows.Next() {
		r, err := s.scanTimeRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) scanTimeRecord(rows *sql.Rows) (payroll.TimeRecord, error) {
	var (
		r        payroll.TimeRecord
		group    string
		dateText string
	)
	if err := rows.Scan(&r.EmployeeID, &r.HoursWorked, &group, &dateText, &r.ReportID); err != nil {
		return r, s.errorf("failed to scan timefile row: %w", err)
	}

	d, err := payroll.ParseStorageDate(dateText)
	if err != nil {
		return r, s.errorf("failed to parse stored date: %w", err)
	}
	r.Date = d
	r.JobGroup = payroll.JobGroup(group)
	return r, nil
}

// =============================================================================
// PAYROLL REPORT
// =============================================================================

// ReplaceReport empties payroll_report and upserts rows, in one transaction.
func (s *Store) ReplaceReport(ctx context.Context, rows []payroll.PayrollRow) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM payroll_report`); err != nil {
		return s.errorf("failed to clear payroll report: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, s.dialect.UpsertReportSQL)
	if err != nil {
		return s.errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.EmployeeID, row.PayPeriod, row.AmountPaid.String()); err != nil {
			return s.errorf("failed to upsert payroll row for %s: %w", row.EmployeeID, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return s.errorf("failed to commit payroll report: %w", err)
	}
	return nil
}

// LoadReport returns payroll_report in insertion order.
func (s *Store) LoadReport(ctx context.Context) ([]payroll.PayrollRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, pay_period, amount_paid
		FROM payroll_report
		ORDER BY id
	`)
	if err != nil {
		return nil, s.errorf("failed to query payroll report: %w", err)
	}
	defer rows.Close()

	report := []payroll.PayrollRow{}
	for rows.Next() {
		var (
			row    payroll.PayrollRow
			amount decimal.Decimal
		)
		if err := rows.Scan(&row.EmployeeID, &row.PayPeriod, &amount); err != nil {
			return nil, s.errorf("failed to scan payroll row: %w", err)
		}
		row.AmountPaid = amount
		report = append(report, row)
	}
	return report, rows.Err()
}

// errorf formats an error prefixed with the dialect name.
func (s *Store) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: "+format, append([]any{s.dialect.Name}, args...)...)
}
