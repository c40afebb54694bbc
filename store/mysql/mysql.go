// Package mysql provides the MySQL backend of the payroll store.
//
// The schema matches store/sqlite; only the upsert statement and the
// duplicate key classification differ. Connections are expected to use
// ParseTime=false so DATE columns scan as yyyy-mm-dd text.
package mysql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/warp/payroll-engine/store/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// errDupEntry is ER_DUP_ENTRY.
const errDupEntry = 1062

// Dialect is the MySQL flavor of the shared store.
var Dialect = sqlstore.Dialect{
	Name: "mysql",
	UpsertReportSQL: `
		INSERT INTO payroll_report (employee_id, pay_period, amount_paid)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE amount_paid = VALUES(amount_paid)
	`,
	IsDuplicateKey: isDuplicateEntry,
}

// Pool settings applied by Open.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens a connection pool without running migrations.
func Open(dsn string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// Migrate applies pending migrations and returns the resulting version.
// The dsn behind db must allow multi statements.
func Migrate(db *sql.DB) (uint, error) {
	ctx := context.Background()

	var version uint
	err := withConn(ctx, db, func(conn *sql.Conn) error {
		driver, err := migratemysql.WithConnection(ctx, conn, &migratemysql.Config{})
		if err != nil {
			return err
		}

		source, err := iofs.New(migrationsFS, "migrations")
		if err != nil {
			return err
		}

		m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
		if err != nil {
			return err
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}

		version, _, err = m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return err
		}
		return nil
	})
	return version, err
}

// withConn runs fn on a connection reserved from db and returns it to the
// pool afterwards, whatever fn returns.
func withConn(ctx context.Context, db *sql.DB, fn func(*sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
