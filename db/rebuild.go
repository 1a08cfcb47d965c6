package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tordrt/dmschema/schema"
)

const (
	rebuildPrefix    = "_dm_tmp_"
	rebuildSavepoint = "dm_rebuild"
)

// alterOrRebuild runs the statement produced by build, falling back to a
// table rebuild when the dialect cannot express the change in place. It
// reports whether the table was rebuilt.
func (m *Methods) alterOrRebuild(ctx context.Context, ex Executor, operation, schemaName, tableName string,
	build func() (string, error), mutate func(t *schema.Table) error) (bool, error) {
	stmt, err := build()
	if errors.Is(err, errRebuildTable) {
		return true, m.rebuild(ctx, ex, operation, schemaName, tableName, mutate)
	}
	if err != nil {
		return false, m.wrap(operation, tableName, err)
	}
	return false, m.exec(ctx, ex, operation, tableName, stmt)
}

// rebuild recreates a table with mutate applied to its introspected model,
// copying the rows of every column present in both versions. Only SQLite
// builders request it, so the statements use SQLite pragmas.
//
// The rebuild runs on one connection inside a savepoint. A failure rolls the
// savepoint back, so neither the temporary table nor a half copied table is
// left behind.
func (m *Methods) rebuild(ctx context.Context, ex Executor, operation, schemaName, tableName string, mutate func(t *schema.Table) error) error {
	ex, release, err := pinConnection(ctx, ex)
	if err != nil {
		return m.wrap(operation, tableName, err)
	}
	defer release()

	current, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil {
		return err
	}
	if current == nil {
		return m.wrap(operation, tableName, fmt.Errorf("table %s does not exist", tableName))
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return err
	}
	next = m.prepareTable(next)
	caps, err := m.capabilities(ctx, ex)
	if err != nil {
		return err
	}

	name := current.TableName
	tmp := rebuildPrefix + name
	created, err := m.createTableStatements(next, tmp, caps)
	if err != nil {
		return err
	}
	final, err := m.createTableStatements(next, name, caps)
	if err != nil {
		return err
	}

	var common []string
	for _, c := range next.Columns {
		if current.Column(c.ColumnName) != nil {
			common = append(common, m.d.QuoteIdentifier(c.ColumnName))
		}
	}

	source := m.table(current.SchemaName, name)
	target := m.table(current.SchemaName, tmp)
	stmts := []string{created[0]}
	if len(common) > 0 {
		cols := strings.Join(common, ", ")
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", target, cols, cols, source))
	}
	stmts = append(stmts, "DROP TABLE "+source)
	rename, err := m.d.RenameTable(target, name)
	if err != nil {
		return m.wrap(operation, tableName, err)
	}
	stmts = append(stmts, rename)
	stmts = append(stmts, final[1:]...)

	fkEnabled, err := m.disableForeignKeys(ctx, ex)
	if err != nil {
		return m.wrap(operation, tableName, err)
	}
	restore := func() error {
		pragmas := []string{"PRAGMA legacy_alter_table = OFF"}
		if fkEnabled {
			pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
		}
		return m.exec(ctx, ex, operation, tableName, pragmas...)
	}

	if err := m.exec(ctx, ex, operation, tableName, "PRAGMA legacy_alter_table = ON", "SAVEPOINT "+rebuildSavepoint); err != nil {
		_ = restore()
		return err
	}
	err = m.exec(ctx, ex, operation, tableName, stmts...)
	if err == nil && fkEnabled {
		err = m.checkForeignKeys(ctx, ex, operation, tableName)
	}
	if err != nil {
		_ = m.exec(ctx, ex, operation, tableName, "ROLLBACK TO "+rebuildSavepoint, "RELEASE "+rebuildSavepoint)
		_ = restore()
		return err
	}
	if err := m.exec(ctx, ex, operation, tableName, "RELEASE "+rebuildSavepoint); err != nil {
		_ = restore()
		return err
	}
	return restore()
}

// disableForeignKeys turns foreign key enforcement off and reports whether it
// was on. SQLite ignores the pragma inside a transaction, which is detected by
// reading it back.
func (m *Methods) disableForeignKeys(ctx context.Context, ex Executor) (bool, error) {
	var enabled int
	if err := getContext(ctx, ex, m.d.BindType(), &enabled, "PRAGMA foreign_keys"); err != nil {
		return false, err
	}
	if enabled == 0 {
		return false, nil
	}
	if _, err := ex.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return false, err
	}
	if err := getContext(ctx, ex, m.d.BindType(), &enabled, "PRAGMA foreign_keys"); err != nil {
		return false, err
	}
	if enabled != 0 {
		return false, ErrForeignKeysEnforced
	}
	return true, nil
}

// checkForeignKeys fails when the rebuilt table left a dangling reference.
func (m *Methods) checkForeignKeys(ctx context.Context, ex Executor, operation, tableName string) error {
	rows, err := ex.QueryxContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return m.wrap(operation, tableName, err)
	}
	defer rows.Close()
	if rows.Next() {
		var violation struct {
			Table  string        `db:"table"`
			RowID  sql.NullInt64 `db:"rowid"`
			Parent string        `db:"parent"`
			FKID   int           `db:"fkid"`
		}
		if err := rows.StructScan(&violation); err != nil {
			return m.wrap(operation, tableName, err)
		}
		return m.wrap(operation, tableName, fmt.Errorf("foreign key violation in %s referencing %s", violation.Table, violation.Parent))
	}
	return m.wrap(operation, tableName, rows.Err())
}

// pinConnection binds a pooled executor to a single connection so connection
// scoped pragmas apply to every later statement. Transactions and other
// executors are returned unchanged.
func pinConnection(ctx context.Context, ex Executor) (Executor, func(), error) {
	switch e := ex.(type) {
	case *sqlx.DB:
		conn, err := e.Connx(ctx)
		if err != nil {
			return nil, nil, err
		}
		return &pinnedConn{Conn: conn, driverName: e.DriverName()}, func() { _ = conn.Close() }, nil
	case *LoggingExecutor:
		inner, release, err := pinConnection(ctx, e.ex)
		if err != nil {
			return nil, nil, err
		}
		return &LoggingExecutor{ex: inner, logger: e.logger, hint: e.hint}, release, nil
	}
	return ex, func() {}, nil
}

// pinnedConn adapts *sqlx.Conn to Executor.
type pinnedConn struct {
	*sqlx.Conn
	driverName string
}

func (c *pinnedConn) DriverName() string { return c.driverName }

func (c *pinnedConn) BindNamed(query string, arg any) (string, []any, error) {
	return sqlx.BindNamed(sqlx.BindType(c.driverName), query, arg)
}
