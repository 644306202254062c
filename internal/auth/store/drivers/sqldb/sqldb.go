// Package sqldb implements the auth store over database/sql. The sqlite and
// postgres drivers share it and differ only in connection setup, placeholder
// style and migrations.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/store"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = iota
	// Postgres uses "$1".."$n" placeholders.
	Postgres
)

// Rebind rewrites "?" placeholders for the dialect. Queries in this package
// never contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// MigrateFunc applies the driver's embedded migrations.
type MigrateFunc func(db *sql.DB) error

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a querier to a dialect.
type conn struct {
	q querier
	d Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.Rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.Rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.Rebind(query), args...)
}

// affected runs an update and returns the number of rows it changed.
func (c conn) affected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	migrate MigrateFunc
}

var _ store.Store = (*Store)(nil)

// New wraps an open database handle.
func New(db *sql.DB, d Dialect, migrate MigrateFunc) *Store {
	return &Store{db: db, dialect: d, migrate: migrate}
}

// DB exposes the handle for drivers and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) ApplyMigrations() error {
	if s.migrate == nil {
		return errors.New("sqldb: no migrations configured")
	}
	return s.migrate(s.db)
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Ensure rollback is called if we panic or return early with error
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(&txStore{c: conn{q: tx, d: s.dialect}}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) conn() conn { return conn{q: s.db, d: s.dialect} }

func (s *Store) Accounts() store.Accounts           { return &accountsRepo{c: s.conn()} }
func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{c: s.conn()} }
func (s *Store) BackupCodes() store.BackupCodes     { return &backupCodesRepo{c: s.conn()} }
func (s *Store) Challenges() store.Challenges       { return &challengesRepo{c: s.conn()} }

type txStore struct {
	c conn
}

func (t *txStore) Accounts() store.Accounts           { return &accountsRepo{c: t.c} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{c: t.c} }
func (t *txStore) BackupCodes() store.BackupCodes     { return &backupCodesRepo{c: t.c} }
func (t *txStore) Challenges() store.Challenges       { return &challengesRepo{c: t.c} }

// nothing to close; the outer store commits or rolls back
func (t *txStore) Close() error { return nil }

// Ping is a no-op: the connection is held for the life of the transaction.
func (t *txStore) Ping(context.Context) error { return nil }

// no-op; migrations are applied before any transaction starts
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// isUniqueViolation matches the duplicate-key errors of both drivers
// without importing them.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}

// Timestamps are stored as unix milliseconds so range predicates behave the
// same in every dialect.

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func fromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func splitFields(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
