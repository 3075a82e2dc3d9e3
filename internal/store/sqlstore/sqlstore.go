// internal/store/sqlstore/sqlstore.go
//
// Relational customer-site store (sqlx).
//
// Context
// -------
// One table keyed by `id`.  The embedded variant runs on SQLite through the
// pure-Go driver; MySQL and Postgres reuse the same statements because every
// query is written with `?` placeholders and passed through sqlx.Rebind.
//
// Schema reference (SQLite)
//
//	CREATE TABLE IF NOT EXISTS customer_sites (
//	    id         TEXT PRIMARY KEY,
//	    api        TEXT NOT NULL,
//	    name       TEXT NOT NULL,
//	    adult      INTEGER DEFAULT 0,
//	    created_at TEXT DEFAULT CURRENT_TIMESTAMP,
//	    updated_at TEXT DEFAULT CURRENT_TIMESTAMP
//	);
//
// Notes
// -----
//   - `adult` is stored as 0/1 and converted to bool here, never above.
//   - Table names come from config; they are checked against a strict
//     identifier pattern before being spliced into SQL.
//   - Oxford commas, two spaces after periods.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/libretv-sites/internal/database"
	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
)

var _ store.Store = (*Store)(nil)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Store implements store.Store over a *sqlx.DB.
type Store struct {
	db    *sqlx.DB
	table string
}

// row is the on-disk shape; Adult is 0/1.
type row struct {
	ID        string         `db:"id"`
	API       string         `db:"api"`
	Name      string         `db:"name"`
	Adult     int            `db:"adult"`
	CreatedAt sql.NullString `db:"created_at"`
	UpdatedAt sql.NullString `db:"updated_at"`
}

func (r row) record() site.Record {
	return site.Record{
		ID:        r.ID,
		API:       r.API,
		Name:      r.Name,
		Adult:     r.Adult != 0,
		CreatedAt: r.CreatedAt.String,
		UpdatedAt: r.UpdatedAt.String,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Open connects with database.Open and wraps the pool.
func Open(dsn, table string) (*Store, error) {
	db, err := database.Open(dsn)
	if err != nil {
		return nil, err
	}
	s, err := New(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool.  An empty table selects the default name.
func New(db *sqlx.DB, table string) (*Store, error) {
	if table == "" {
		table = store.DefaultCollection
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("sqlstore: invalid table name %q", table)
	}
	return &Store{db: db, table: table}, nil
}

// DB exposes the pool for provisioning tools.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) q(format string) string {
	return s.db.Rebind(fmt.Sprintf(format, s.table))
}

const columns = "id, api, name, adult, created_at, updated_at"

// FindOne returns store.ErrNotFound when no row matches.
func (s *Store) FindOne(ctx context.Context, id string) (*site.Record, error) {
	var r row
	err := s.db.GetContext(ctx, &r, s.q("SELECT "+columns+" FROM %s WHERE id = ? LIMIT 1"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find %q: %w", id, err)
	}
	rec := r.record()
	return &rec, nil
}

func (s *Store) FindAll(ctx context.Context) ([]site.Record, error) {
	rows := make([]row, 0, 16)
	if err := s.db.SelectContext(ctx, &rows, s.q("SELECT "+columns+" FROM %s ORDER BY id")); err != nil {
		return nil, fmt.Errorf("sqlstore: list: %w", err)
	}
	out := make([]site.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, rec site.Record) error {
	_, err := s.db.ExecContext(ctx,
		s.q("INSERT INTO %s ("+columns+") VALUES (?, ?, ?, ?, ?, ?)"),
		rec.ID, rec.API, rec.Name, boolToInt(rec.Adult), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("sqlstore: insert %q: %w", rec.ID, err)
	}
	return nil
}

// UpdateFields overwrites api, name, adult, and updated_at.  MySQL reports
// zero affected rows when nothing changed, so a zero count is confirmed
// with a lookup before it becomes ErrNotFound.
func (s *Store) UpdateFields(ctx context.Context, id string, f site.Fields) error {
	res, err := s.db.ExecContext(ctx,
		s.q("UPDATE %s SET api = ?, name = ?, adult = ?, updated_at = ? WHERE id = ?"),
		f.API, f.Name, boolToInt(f.Adult), f.UpdatedAt, id)
	if err != nil {
		return fmt.Errorf("sqlstore: update %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: update %q: %w", id, err)
	}
	if n == 0 {
		if _, err := s.FindOne(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q("DELETE FROM %s WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: delete %q: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// EnsureSchema creates the table when absent.  Safe to run on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schemaFor(s.db.DriverName()), s.table)); err != nil {
		return fmt.Errorf("sqlstore: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func schemaFor(driver string) string {
	switch driver {
	case database.DriverMySQL:
		return `CREATE TABLE IF NOT EXISTS %s (id VARCHAR(191) NOT NULL PRIMARY KEY, api TEXT NOT NULL, name TEXT NOT NULL, adult TINYINT NOT NULL DEFAULT 0, created_at VARCHAR(32) NULL, updated_at VARCHAR(32) NULL)`
	case database.DriverPostgres:
		return `CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, api TEXT NOT NULL, name TEXT NOT NULL, adult INTEGER NOT NULL DEFAULT 0, created_at TEXT, updated_at TEXT)`
	default:
		return `CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, api TEXT NOT NULL, name TEXT NOT NULL, adult INTEGER DEFAULT 0, created_at TEXT DEFAULT CURRENT_TIMESTAMP, updated_at TEXT DEFAULT CURRENT_TIMESTAMP)`
	}
}

// isDuplicate recognises unique-key violations: MySQL error 1062, Postgres
// SQLSTATE 23505, and SQLite's "UNIQUE constraint failed" (the pure-Go
// driver exposes no typed constraint code).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
