package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	mssql "github.com/microsoft/go-mssqldb"
)

// OpenSQLServer connects to SQL Server using a sqlserver:// URL or an ADO
// style connection string.
func OpenSQLServer(ctx context.Context, connString string) (*sqlx.DB, error) {
	connector, err := mssql.NewConnector(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	return ping(ctx, sqlx.NewDb(sql.OpenDB(connector), "sqlserver"))
}
