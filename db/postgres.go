package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// OpenPostgres connects to PostgreSQL through pgx's database/sql driver.
func OpenPostgres(ctx context.Context, connString string) (*sqlx.DB, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	return ping(ctx, sqlx.NewDb(stdlib.OpenDB(*cfg), "pgx"))
}

// ping verifies a freshly opened pool, closing it on failure.
func ping(ctx context.Context, db *sqlx.DB) (*sqlx.DB, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
