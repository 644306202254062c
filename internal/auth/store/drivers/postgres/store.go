// Package postgres opens the auth store on PostgreSQL through pgx.
package postgres

import (
	"database/sql"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/store/drivers/sqldb"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewStore opens a pooled connection to dsn.
func NewStore(dsn string) (*sqldb.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return Wrap(db), nil
}

// Wrap builds a store over an existing handle (tests use sqlmock).
func Wrap(db *sql.DB) *sqldb.Store {
	return sqldb.New(db, sqldb.Postgres, ApplyMigrations)
}
