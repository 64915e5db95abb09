// Package database opens relational handles for the supported drivers and
// classifies driver errors the stores care about.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqliteParams are appended to every SQLite DSN unless the caller already
// set the same key. Write transactions begin IMMEDIATE so concurrent writers
// queue on busy_timeout instead of failing with SQLITE_BUSY.
var sqliteParams = []struct{ key, param string }{
	{"foreign_keys", "_pragma=foreign_keys(1)"},
	{"busy_timeout", "_pragma=busy_timeout(5000)"},
	{"journal_mode", "_pragma=journal_mode(WAL)"},
	{"_txlock", "_txlock=immediate"},
}

// Options tunes the connection pool. Zero values keep the database/sql
// defaults. SQLite pools are always capped at one connection.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// Open connects to the database and verifies the connection with a ping.
func Open(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	switch driver {
	case DriverSQLite:
		dsn = SQLiteDSN(dsn)
		// SQLite admits one writer at a time; a single pooled connection
		// queues writers in database/sql instead of in the file lock.
		opts.MaxOpenConns = 1
		opts.MaxIdleConns = 1
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}

// OpenInMemory returns a single-connection in-memory SQLite database with
// foreign keys enforced. Every call yields an independent database.
func OpenInMemory(ctx context.Context) (*sqlx.DB, error) {
	return Open(ctx, DriverSQLite, ":memory:", Options{MaxOpenConns: 1, MaxIdleConns: 1})
}

// SQLiteDSN appends each entry of sqliteParams whose key the caller has not
// already set.
func SQLiteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	for _, p := range sqliteParams {
		if strings.Contains(dsn, p.key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + p.param
		} else {
			dsn += "?" + p.param
		}
	}
	return dsn
}
