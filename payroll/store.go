/*
store.go - Persistence interfaces for timefiles and the payroll report

PURPOSE:
  Defines the boundary between the pipeline and the relational store.
  Implementations are injected into Timefiles and Pipeline; the engine
  never opens a connection itself.

KEY INTERFACES:
  TimefileStore: bulk insert, existence check, delete by report id, reads
  ReportStore:   full replace and full read of the payroll report

CONTRACT:
  - InsertTimeRecords is atomic: all rows commit or none do.
  - A violation of the (employee id, date) uniqueness constraint is
    returned as an error matching ErrDuplicateKey.
  - LoadTimeRecords orders by employee id, then date, ascending.
  - ReplaceReport leaves exactly the given rows in the report, keyed by
    (employee id, pay period), amounts overwritten rather than summed.

IMPLEMENTATIONS:
  - store/sqlstore: database/sql implementation shared by sqlite and mysql
  - payroll/store: in-memory implementation for tests

SEE ALSO:
  - timefile.go: Rollback protocol on top of TimefileStore
*/
package payroll

import "context"

// TimefileStore persists TimeRecords.
type TimefileStore interface {
	// ReportExists reports whether any record carries reportID.
	ReportExists(ctx context.Context, reportID string) (bool, error)

	// InsertTimeRecords inserts records atomically. Every record already
	// carries its ReportID.
	InsertTimeRecords(ctx context.Context, records []TimeRecord) error

	// DeleteReport removes every record carrying reportID and returns the
	// number of rows removed.
	DeleteReport(ctx context.Context, reportID string) (int64, error)

	// LoadTimeRecords returns every record ordered by employee id, date.
	LoadTimeRecords(ctx context.Context) ([]TimeRecord, error)

	// LoadReportRecords returns the records of one submission, same order.
	LoadReportRecords(ctx context.Context, reportID string) ([]TimeRecord, error)
}

// ReportStore persists the payroll report.
type ReportStore interface {
	// ReplaceReport makes the persisted report equal to rows.
	ReplaceReport(ctx context.Context, rows []PayrollRow) error

	// LoadReport returns the persisted report in store-native order.
	LoadReport(ctx context.Context) ([]PayrollRow, error)
}

// Store is implemented by backends that hold both tables.
type Store interface {
	TimefileStore
	ReportStore
}
