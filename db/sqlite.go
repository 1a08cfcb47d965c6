package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database file with the cgo sqlite3 driver.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return ping(ctx, db)
}

// OpenSQLitePure opens a SQLite database with the pure Go driver. The pool is
// limited to one connection so ":memory:" databases are shared by every call.
func OpenSQLitePure(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return ping(ctx, db)
}
