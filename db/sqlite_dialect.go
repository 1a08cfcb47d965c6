package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

// autoIncrementMarker flags rowid alias columns in ColumnRow.Marker.
const autoIncrementMarker = "autoincrement"

type sqliteDialect struct {
	ansi
	types *typemap.TypeMap
}

// NewSQLiteMethods returns the SQLite methods.
func NewSQLiteMethods() *Methods {
	d := &sqliteDialect{types: builtinTypeMap(provider.SQLite)}
	d.ansi = ansi{q: d.QuoteIdentifier}
	return NewMethods(d)
}

func (d *sqliteDialect) Provider() provider.Type { return provider.SQLite }
func (d *sqliteDialect) TypeMap() *typemap.TypeMap { return d.types }
func (d *sqliteDialect) SupportsSchemas() bool { return false }
func (d *sqliteDialect) BindType() int { return sqlx.QUESTION }
func (d *sqliteDialect) DefaultSchema() string { return "" }
func (d *sqliteDialect) SupportsCheckConstraints(string) bool { return true }
func (d *sqliteDialect) SupportsOrderedKeysInConstraints(string) bool { return true }

// MaxIdentifierLength is zero: SQLite does not limit identifier length.
func (d *sqliteDialect) MaxIdentifierLength() int { return 0 }

func (d *sqliteDialect) QuoteIdentifier(name string) string {
	return quoteWith(naming.Normalize(name), '"', '"')
}

func (d *sqliteDialect) QualifiedName(_, name string) string {
	return d.QuoteIdentifier(name)
}

func (d *sqliteDialect) NormalizeName(name string) string {
	return naming.Normalize(name)
}

func (d *sqliteDialect) NormalizeSchemaName(string) string {
	return ""
}

func (d *sqliteDialect) IsAutoIncrement(col ColumnRow) bool {
	return col.Marker.Valid && col.Marker.String == autoIncrementMarker
}

// InlinePrimaryKey keeps an auto-increment key on its column, the only place
// SQLite accepts AUTOINCREMENT.
func (d *sqliteDialect) InlinePrimaryKey(t *schema.Table) *schema.PrimaryKeyConstraint {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) != 1 {
		return nil
	}
	if c := t.Column(t.PrimaryKey.Columns[0].ColumnName); c != nil && c.IsAutoIncrement {
		return t.PrimaryKey
	}
	return nil
}

func (d *sqliteDialect) ColumnDefinition(c *schema.Column, sqlType string, def *schema.DefaultConstraint, inlinePK *schema.PrimaryKeyConstraint) string {
	var b strings.Builder
	b.WriteString(d.QuoteIdentifier(c.ColumnName))
	b.WriteString(" ")
	if inlinePK != nil {
		// AUTOINCREMENT requires the exact type name INTEGER.
		b.WriteString("integer")
		fmt.Fprintf(&b, " CONSTRAINT %s PRIMARY KEY", d.QuoteIdentifier(inlinePK.ConstraintName))
		if c.IsAutoIncrement {
			b.WriteString(" AUTOINCREMENT")
		}
	} else {
		b.WriteString(sqlType)
	}
	if c.IsNullable && !c.IsPrimaryKey && !c.IsAutoIncrement {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if def != nil && !c.IsAutoIncrement {
		fmt.Fprintf(&b, " CONSTRAINT %s DEFAULT %s", d.QuoteIdentifier(def.ConstraintName), sqliteDefault(def.Expression))
	}
	return b.String()
}

// AddColumn rebuilds the table for columns ALTER TABLE ADD COLUMN rejects.
func (d *sqliteDialect) AddColumn(table string, c *schema.Column, columnDef string) (string, error) {
	switch {
	case c.IsPrimaryKey, c.IsUnique, c.IsForeignKey, c.CheckExpression != "":
		return "", errRebuildTable
	case !c.IsNullable && c.DefaultExpression == "":
		return "", errRebuildTable
	case c.DefaultExpression != "" && !sqliteConstant(c.DefaultExpression):
		return "", errRebuildTable
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnDef), nil
}

// sqliteDefault leaves literals bare, since ADD COLUMN rejects parenthesized
// defaults, and wraps every other expression.
func sqliteDefault(expr string) string {
	expr = stripParens(expr)
	if sqliteConstant(expr) {
		return expr
	}
	return "(" + expr + ")"
}

// sqliteConstant reports whether expr is a literal SQLite accepts as the
// default of an added column.
func sqliteConstant(expr string) bool {
	expr = stripParens(expr)
	upper := strings.ToUpper(expr)
	switch {
	case strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'"):
		return true
	case upper == "NULL", upper == "TRUE", upper == "FALSE":
		return true
	}
	_, err := strconv.ParseFloat(expr, 64)
	return err == nil
}

func (d *sqliteDialect) DropColumn(string, string) (string, error) { return "", errRebuildTable }
func (d *sqliteDialect) AddConstraint(string, string) (string, error) { return "", errRebuildTable }
func (d *sqliteDialect) DropPrimaryKey(string, string) (string, error) { return "", errRebuildTable }
func (d *sqliteDialect) DropUnique(string, string) (string, error) { return "", errRebuildTable }
func (d *sqliteDialect) DropCheck(string, string) (string, error) { return "", errRebuildTable }
func (d *sqliteDialect) DropForeignKey(string, string) (string, error) { return "", errRebuildTable }

func (d *sqliteDialect) AddDefault(string, *schema.DefaultConstraint) (string, error) {
	return "", errRebuildTable
}

func (d *sqliteDialect) DropDefault(string, string, string) (string, error) {
	return "", errRebuildTable
}

func (d *sqliteDialect) DropIndex(_, _, name string) (string, error) {
	return "DROP INDEX " + d.QuoteIdentifier(name), nil
}

func (d *sqliteDialect) TruncateTable(table string) string {
	return "DELETE FROM " + table
}

func (d *sqliteDialect) ServerVersion(ctx context.Context, ex Executor) (string, error) {
	var v string
	err := getContext(ctx, ex, d.BindType(), &v, `SELECT sqlite_version()`)
	return v, err
}

func (d *sqliteDialect) SchemaNames(context.Context, Executor, string) ([]string, error) {
	return []string{}, nil
}

func (d *sqliteDialect) TableNames(ctx context.Context, ex Executor, _, pattern string) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
			AND name NOT LIKE 'sqlite!_%' ESCAPE '!'
			AND lower(name) LIKE lower(?) ESCAPE '!'
		ORDER BY name
	`
	var names []string
	err := selectContext(ctx, ex, d.BindType(), &names, query, pattern)
	return names, err
}

type sqliteMasterRow struct {
	Name string `db:"name"`
	SQL  string `db:"sql"`
}

// sqliteColumnRow adds the primary key position PRAGMA table_info reports.
type sqliteColumnRow struct {
	ColumnRow
	PrimaryKey int `db:"pk"`
}

func (d *sqliteDialect) ReadTables(ctx context.Context, ex Executor, _, pattern string) (*Snapshot, error) {
	query := `
		SELECT name, sql
		FROM sqlite_master
		WHERE type = 'table'
			AND name NOT LIKE 'sqlite!_%' ESCAPE '!'
			AND lower(name) LIKE lower(?) ESCAPE '!'
		ORDER BY name
	`
	var tables []sqliteMasterRow
	if err := selectContext(ctx, ex, d.BindType(), &tables, query, pattern); err != nil {
		return nil, err
	}
	snap := &Snapshot{}
	for _, t := range tables {
		snap.TableNames = append(snap.TableNames, t.Name)
		info := parseSQLiteCreateTable(t.Name, t.SQL)

		cols, err := d.extractColumns(ctx, ex, t.Name, info)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			snap.Columns = append(snap.Columns, c.ColumnRow)
		}
		snap.Constraints = append(snap.Constraints, constraintsWithPrimaryKey(t.Name, info.constraints, cols)...)

		indexes, err := d.extractIndexes(ctx, ex, t.Name)
		if err != nil {
			return nil, err
		}
		snap.Indexes = append(snap.Indexes, indexes...)
	}
	return snap, nil
}

func (d *sqliteDialect) extractColumns(ctx context.Context, ex Executor, table string, info sqliteTableInfo) ([]sqliteColumnRow, error) {
	query := `
		SELECT
			? AS table_name,
			name AS column_name,
			type AS data_type,
			"notnull" = 0 AS is_nullable,
			dflt_value AS column_default,
			NULL AS identity_marker,
			cid + 1 AS position,
			pk
		FROM pragma_table_info(?)
		ORDER BY cid
	`
	var rows []sqliteColumnRow
	if err := selectContext(ctx, ex, d.BindType(), &rows, query, table, table); err != nil {
		return nil, err
	}
	keys := 0
	for _, r := range rows {
		if r.PrimaryKey > 0 {
			keys++
		}
	}
	for i := range rows {
		r := &rows[i]
		rowidAlias := keys == 1 && r.PrimaryKey == 1 && strings.EqualFold(strings.TrimSpace(r.DataType), "integer")
		if info.autoIncrement[strings.ToLower(r.ColumnName)] || rowidAlias {
			r.Marker.String, r.Marker.Valid = autoIncrementMarker, true
		}
	}
	return rows, nil
}

// constraintsWithPrimaryKey adds the primary key from PRAGMA table_info when
// the CREATE TABLE text did not yield one.
func constraintsWithPrimaryKey(table string, rows []ConstraintRow, cols []sqliteColumnRow) []ConstraintRow {
	for _, r := range rows {
		if r.ConstraintType == constraintPrimaryKey {
			return rows
		}
	}
	for _, c := range cols {
		if c.PrimaryKey > 0 {
			rows = append(rows, ConstraintRow{
				TableName:      table,
				ConstraintName: naming.PrimaryKeyName(table),
				ConstraintType: constraintPrimaryKey,
				ColumnName:     nullString(c.ColumnName),
				Position:       c.PrimaryKey,
			})
		}
	}
	return rows
}

func (d *sqliteDialect) extractIndexes(ctx context.Context, ex Executor, table string) ([]IndexRow, error) {
	query := `
		SELECT
			? AS table_name,
			il.name AS index_name,
			il."unique" AS is_unique,
			ix.name AS column_name,
			ix.seqno + 1 AS position,
			ix."desc" AS is_descending
		FROM pragma_index_list(?) il
		JOIN pragma_index_xinfo(il.name) ix
		WHERE il.origin = 'c'
			AND ix.key = 1
			AND ix.name IS NOT NULL
		ORDER BY il.name, ix.seqno
	`
	var rows []IndexRow
	err := selectContext(ctx, ex, d.BindType(), &rows, query, table, table)
	return rows, err
}

func (d *sqliteDialect) Views(ctx context.Context, ex Executor, schemaName, pattern string) ([]*schema.View, error) {
	query := `
		SELECT name AS view_name, sql AS definition
		FROM sqlite_master
		WHERE type = 'view'
			AND lower(name) LIKE lower(?) ESCAPE '!'
		ORDER BY name
	`
	var rows []viewRow
	if err := selectContext(ctx, ex, d.BindType(), &rows, query, pattern); err != nil {
		return nil, err
	}
	return toViews(schemaName, rows, stripCreateView), nil
}
