package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// errUnknownDatabase is ER_BAD_DB_ERROR.
const errUnknownDatabase = 1049

// OpenMySQL connects to MySQL or MariaDB. dsn uses the go-sql-driver format
// (user:pass@tcp(host:3306)/dbname).
func OpenMySQL(ctx context.Context, dsn string) (*sqlx.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("failed to open database: %w", invalidArgument("mysql connection string must name a database"))
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := ping(ctx, sqlx.NewDb(sql.OpenDB(connector), "mysql"))
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errUnknownDatabase {
		return nil, fmt.Errorf("database %q does not exist: %w", cfg.DBName, err)
	}
	return db, err
}
