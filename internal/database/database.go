// Package database centralises sqlx connection helpers.  The default driver
// is modernc.org/sqlite (pure Go, one file on disk); go-sql-driver/mysql is
// available for deployments that already run MySQL or MariaDB.
//
// Public entry points:
//
//	Open(driver, dsn)                           – conservative pool sizes.
//	OpenWithOptions(driver, dsn, maxOpen, maxIdle) – fine-grained control.
//	Migrate(ctx, db, stmts)                     – idempotent DDL runner.
//
// Both Open helpers Ping the database before returning so callers can fail
// fast during bootstrap.  Callers should Close() the returned *sqlx.DB.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// mysqlDupEntry is ER_DUP_ENTRY.
const mysqlDupEntry = 1062

// Driver names accepted by Open.
const (
	SQLite = "sqlite"
	MySQL  = "mysql"
)

// sqlitePragmas are appended to file DSNs that carry none of their own.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)" +
	"&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.  SQLite is capped at one writer-friendly
// pool of 4.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == SQLite {
		return OpenWithOptions(driver, dsn, 4, 4)
	}
	return OpenWithOptions(driver, dsn, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle per pool.  Tests use
// it with maxOpen == 1 so an in-memory SQLite database survives between
// statements.
func OpenWithOptions(driver, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	switch driver {
	case SQLite:
		dsn = withPragmas(dsn)
	case MySQL:
		if !strings.Contains(dsn, "parseTime=") {
			dsn = appendQuery(dsn, "parseTime=true")
		}
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate executes stmts in order.  Every statement must be idempotent
// (CREATE TABLE IF NOT EXISTS, INSERT … guarded by a count).  The token
// {{pk}} expands to the dialect's auto-increment primary key.
func Migrate(ctx context.Context, db *sqlx.DB, stmts []string) error {
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, Dialect(db.DriverName()).Expand(s)); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Dialect carries the few DDL differences between the two drivers.
type Dialect string

// Expand substitutes dialect tokens in a DDL statement.
func (d Dialect) Expand(stmt string) string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == MySQL {
		pk = "BIGINT PRIMARY KEY AUTO_INCREMENT"
	}
	return strings.ReplaceAll(stmt, "{{pk}}", pk)
}

// IsUniqueViolation reports whether err came from a UNIQUE or primary key
// constraint.  The drivers' typed errors are checked first; the message
// match covers errors that were flattened to text on the way up.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDupEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Error 1062")
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	return appendQuery(dsn, sqlitePragmas)
}

func appendQuery(dsn, q string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + q
	}
	return dsn + "?" + q
}
