// Package sqlite opens the auth store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/adminauth/internal/auth/store/drivers/sqldb"
	_ "modernc.org/sqlite"
)

// NewStore opens dsn (a file path or ":memory:").
//
// The pool is pinned to one connection: SQLite allows a single writer, so
// transactions serialize instead of failing with SQLITE_BUSY, and an
// in-memory database stays the same database across calls.
func NewStore(dsn string) (*sqldb.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA busy_timeout = 5000;`,
	} {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	return sqldb.New(db, sqldb.SQLite, ApplyMigrations), nil
}
