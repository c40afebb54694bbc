/*
Package sqlite provides the SQLite backend of the payroll store.

PURPOSE:
  Opens a SQLite database, applies the embedded migrations and returns a
  sqlstore.Store configured with the SQLite dialect. Used for local runs,
  the CLI and tests (":memory:").

KEY TABLES:
  timefiles:      One row per TimeRecord
  payroll_report: Current payroll report

INDEXES:
  - idx_timefiles_employee_date: Enforces one entry per employee per day
  - idx_timefiles_report:        Existence check and rollback by report id

CONCURRENCY:
  The pool is limited to one connection. SQLite allows a single writer and
  every ":memory:" connection is a separate database, so one connection
  keeps both cases correct.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging) and a busy
  timeout.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Versioned migrations live in migrations/ and are applied with
  golang-migrate on New().

SEE ALSO:
  - store/sqlstore: Queries shared with MySQL
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/payroll-engine/store/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Dialect is the SQLite flavor of the shared store.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	UpsertReportSQL: `
		INSERT INTO payroll_report (employee_id, pay_period, amount_paid)
		VALUES (?, ?, ?)
		ON CONFLICT (employee_id, pay_period) DO UPDATE SET amount_paid = excluded.amount_paid
	`,
	IsDuplicateKey: isUniqueConstraintError,
}

// New opens the database at dbPath, migrates it and returns the store.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*sqlstore.Store, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return sqlstore.New(db, Dialect), nil
}

// Open opens the database without running migrations.
func Open(dbPath string) (*sql.DB, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	if dbPath != ":memory:" {
		dsn += "&_journal_mode=WAL"
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Migrate applies pending migrations and returns the resulting version.
func Migrate(db *sql.DB) (uint, error) {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return 0, err
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, err
	}

	// Closing m would close db as well; it is left to the caller.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return 0, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, err
	}
	return version, nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
