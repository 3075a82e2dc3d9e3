// Package database centralises sqlx connection helpers for the relational
// site store.  Three drivers are linked in:
//
//	sqlite   – github.com/glebarez/go-sqlite (pure Go, embedded file store)
//	mysql    – github.com/go-sql-driver/mysql (also MariaDB)
//	pgx      – github.com/jackc/pgx/v5/stdlib (Postgres, Cockroach)
//
// The driver is inferred from the DSN so operators only ever set one string.
//
// Public entry points:
//
//	Open(dsn)                              – conservative pool sizes.
//	OpenWithOptions(dsn, maxOpen, maxIdle) – fine-grained control.
//	Detect(dsn)                            – driver name + normalised DSN.
//
// Both Open helpers Ping the database before returning so callers can fail
// fast during bootstrap.  Callers should Close() the returned *sqlx.DB.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.  SQLite is pinned to one writer.
func Open(dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(dsn, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle per pool.
func OpenWithOptions(dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	driver, normalized, err := Detect(dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		if err := ensureSQLiteDir(normalized); err != nil {
			return nil, err
		}
		maxOpen, maxIdle = 1, 1
	}

	db, err := sqlx.Open(driver, normalized)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", driver, err)
	}
	return db, nil
}

// Detect infers the driver from dsn and returns the string the driver
// expects.
//
//	postgres://… | postgresql://…           → pgx
//	mysql://user:pw@tcp(host)/db | …@tcp(…)  → mysql (scheme stripped)
//	sqlite://path | file:path | bare path    → sqlite (busy timeout added)
func Detect(dsn string) (driver, normalized string, err error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return "", "", fmt.Errorf("database: empty dsn")
	}
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, trimmed, nil
	case strings.HasPrefix(lower, "mysql://"):
		return DriverMySQL, trimmed[len("mysql://"):], nil
	case strings.Contains(lower, "@tcp("), strings.Contains(lower, "@unix("):
		return DriverMySQL, trimmed, nil
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "sqlite3://"):
		rest := strings.SplitN(trimmed, "://", 2)[1]
		return DriverSQLite, sqliteParams("file:" + rest), nil
	case strings.HasPrefix(lower, "file:"), !strings.Contains(lower, "://"):
		return DriverSQLite, sqliteParams(trimmed), nil
	default:
		return "", "", fmt.Errorf("database: unsupported dsn scheme: %s", redact(trimmed))
	}
}

// sqliteParams adds a busy timeout unless the caller already set pragmas.
func sqliteParams(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

// ensureSQLiteDir creates the parent directory of a file-backed database.
func ensureSQLiteDir(dsn string) error {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == ":memory:" {
		return nil
	}
	dir := filepath.Dir(p)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("database: create sqlite dir: %w", err)
	}
	return nil
}

// redact hides everything between "://" and "@" so passwords stay out of logs.
func redact(dsn string) string {
	i := strings.Index(dsn, "://")
	j := strings.LastIndexByte(dsn, '@')
	if i < 0 || j < i {
		return dsn
	}
	return dsn[:i+3] + "***" + dsn[j:]
}
