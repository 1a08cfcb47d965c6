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

type mysqlDialect struct {
	ansi
	types *typemap.TypeMap
}

// NewMySQLMethods returns the MySQL and MariaDB methods.
func NewMySQLMethods() *Methods {
	d := &mysqlDialect{types: builtinTypeMap(provider.MySQL)}
	d.ansi = ansi{q: d.QuoteIdentifier}
	return NewMethods(d)
}

func (d *mysqlDialect) Provider() provider.Type { return provider.MySQL }
func (d *mysqlDialect) TypeMap() *typemap.TypeMap { return d.types }
func (d *mysqlDialect) SupportsSchemas() bool { return false }
func (d *mysqlDialect) BindType() int { return sqlx.QUESTION }
func (d *mysqlDialect) DefaultSchema() string { return "" }
func (d *mysqlDialect) MaxIdentifierLength() int { return 64 }

func (d *mysqlDialect) QuoteIdentifier(name string) string {
	return quoteWith(naming.Normalize(name), '`', '`')
}

// QualifiedName ignores the schema; MySQL tables live in the connection's database.
func (d *mysqlDialect) QualifiedName(_, name string) string {
	return d.QuoteIdentifier(name)
}

func (d *mysqlDialect) NormalizeName(name string) string {
	return naming.Normalize(name)
}

func (d *mysqlDialect) NormalizeSchemaName(string) string {
	return ""
}

func isMariaDB(version string) bool {
	return strings.Contains(strings.ToLower(version), "mariadb")
}

func (d *mysqlDialect) SupportsCheckConstraints(version string) bool {
	v, err := ParseVersion(version)
	if err != nil {
		return false
	}
	if isMariaDB(version) {
		return v.AtLeast(10, 2, 1)
	}
	return v.AtLeast(8, 0, 16)
}

func (d *mysqlDialect) SupportsOrderedKeysInConstraints(version string) bool {
	v, err := ParseVersion(version)
	if err != nil {
		return false
	}
	if isMariaDB(version) {
		return v.AtLeast(10, 8, 0)
	}
	return v.AtLeast(8, 0, 0)
}

func (d *mysqlDialect) IsAutoIncrement(col ColumnRow) bool {
	return col.Marker.Valid && strings.Contains(strings.ToLower(col.Marker.String), "auto_increment")
}

func (d *mysqlDialect) ColumnDefinition(c *schema.Column, sqlType string, def *schema.DefaultConstraint, _ *schema.PrimaryKeyConstraint) string {
	var b strings.Builder
	b.WriteString(d.QuoteIdentifier(c.ColumnName))
	b.WriteString(" ")
	b.WriteString(sqlType)
	if c.IsNullable && !c.IsPrimaryKey && !c.IsAutoIncrement {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if c.IsAutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	} else if def != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(mysqlDefault(def.Expression))
	}
	return b.String()
}

// mysqlDefault wraps expression defaults in parentheses, which MySQL requires
// for anything but literals and CURRENT_TIMESTAMP.
func mysqlDefault(expr string) string {
	expr = strings.TrimSpace(expr)
	upper := strings.ToUpper(expr)
	switch {
	case expr == "",
		strings.HasPrefix(expr, "'"),
		strings.HasPrefix(expr, "("),
		upper == "NULL", upper == "TRUE", upper == "FALSE",
		strings.HasPrefix(upper, "CURRENT_TIMESTAMP"):
		return expr
	}
	if _, err := strconv.ParseFloat(expr, 64); err == nil {
		return expr
	}
	return "(" + expr + ")"
}

func (d *mysqlDialect) RenameTable(table, newName string) (string, error) {
	return fmt.Sprintf("RENAME TABLE %s TO %s", table, d.QuoteIdentifier(newName)), nil
}

func (d *mysqlDialect) DropPrimaryKey(table, _ string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", table), nil
}

// DropUnique drops the index backing the constraint.
func (d *mysqlDialect) DropUnique(table, name string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", table, d.QuoteIdentifier(name)), nil
}

func (d *mysqlDialect) DropForeignKey(table, name string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", table, d.QuoteIdentifier(name)), nil
}

func (d *mysqlDialect) AddDefault(table string, df *schema.DefaultConstraint) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, d.QuoteIdentifier(df.ColumnName), mysqlDefault(df.Expression)), nil
}

func (d *mysqlDialect) ServerVersion(ctx context.Context, ex Executor) (string, error) {
	var v string
	err := getContext(ctx, ex, d.BindType(), &v, `SELECT VERSION()`)
	return v, err
}

func (d *mysqlDialect) SchemaNames(context.Context, Executor, string) ([]string, error) {
	return []string{}, nil
}

func (d *mysqlDialect) TableNames(ctx context.Context, ex Executor, _, pattern string) ([]string, error) {
	query := `
		SELECT table_name AS table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
			AND table_type = 'BASE TABLE'
			AND LOWER(table_name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY table_name
	`
	var names []string
	err := selectContext(ctx, ex, d.BindType(), &names, query, pattern)
	return names, err
}

func (d *mysqlDialect) ReadTables(ctx context.Context, ex Executor, schemaName, pattern string) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.TableNames, err = d.TableNames(ctx, ex, schemaName, pattern); err != nil {
		return nil, err
	}
	if len(snap.TableNames) == 0 {
		return snap, nil
	}
	version, err := d.ServerVersion(ctx, ex)
	if err != nil {
		return nil, err
	}
	if snap.Columns, err = d.extractColumns(ctx, ex, pattern, isMariaDB(version)); err != nil {
		return nil, err
	}
	if snap.Constraints, err = d.extractConstraints(ctx, ex, pattern, version); err != nil {
		return nil, err
	}
	if snap.Indexes, err = d.extractIndexes(ctx, ex, pattern); err != nil {
		return nil, err
	}
	return snap, nil
}

func (d *mysqlDialect) extractColumns(ctx context.Context, ex Executor, pattern string, mariaDB bool) ([]ColumnRow, error) {
	query := `
		SELECT
			table_name AS table_name,
			column_name AS column_name,
			column_type AS data_type,
			is_nullable = 'YES' AS is_nullable,
			column_default AS column_default,
			extra AS identity_marker,
			ordinal_position AS position
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
			AND LOWER(table_name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY table_name, ordinal_position
	`
	var rows []ColumnRow
	if err := selectContext(ctx, ex, d.BindType(), &rows, query, pattern); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].DefaultValue.String, rows[i].DefaultValue.Valid = mysqlColumnDefault(rows[i], mariaDB)
	}
	return rows, nil
}

// mysqlColumnDefault turns information_schema.columns.column_default into a
// SQL expression. MySQL reports string literals unquoted and flags
// expressions with DEFAULT_GENERATED; MariaDB quotes literals itself and
// reports a missing default as the text NULL.
func mysqlColumnDefault(r ColumnRow, mariaDB bool) (string, bool) {
	if !r.DefaultValue.Valid {
		return "", false
	}
	v := r.DefaultValue.String
	if mariaDB {
		if strings.EqualFold(v, "NULL") {
			return "", false
		}
		return v, true
	}
	extra := strings.ToUpper(r.Marker.String)
	if strings.Contains(extra, "DEFAULT_GENERATED") || strings.HasPrefix(strings.ToUpper(v), "CURRENT_TIMESTAMP") {
		return v, true
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v, true
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'", true
}

func (d *mysqlDialect) extractConstraints(ctx context.Context, ex Executor, pattern, version string) ([]ConstraintRow, error) {
	query := `
		SELECT
			tc.table_name AS table_name,
			tc.constraint_name AS constraint_name,
			tc.constraint_type AS constraint_type,
			kcu.column_name AS column_name,
			kcu.ordinal_position AS position,
			COALESCE(s.collation = 'D', 0) AS is_descending,
			NULL AS definition,
			kcu.referenced_table_name AS referenced_table_name,
			kcu.referenced_column_name AS referenced_column_name,
			rc.delete_rule AS delete_rule,
			rc.update_rule AS update_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = tc.constraint_schema
			AND kcu.table_name = tc.table_name
			AND kcu.constraint_name = tc.constraint_name
		LEFT JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = tc.constraint_schema
			AND rc.table_name = tc.table_name
			AND rc.constraint_name = tc.constraint_name
		LEFT JOIN information_schema.statistics s
			ON s.table_schema = tc.table_schema
			AND s.table_name = tc.table_name
			AND s.index_name = tc.constraint_name
			AND s.column_name = kcu.column_name
		WHERE tc.table_schema = DATABASE()
			AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
			AND LOWER(tc.table_name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position
	`
	var rows []ConstraintRow
	if err := selectContext(ctx, ex, d.BindType(), &rows, query, pattern); err != nil {
		return nil, err
	}
	for i := range rows {
		// MySQL names every primary key PRIMARY.
		if rows[i].ConstraintType == constraintPrimaryKey {
			rows[i].ConstraintName = naming.PrimaryKeyName(rows[i].TableName)
		}
	}

	if !d.SupportsCheckConstraints(version) {
		return rows, nil
	}
	checkQuery := `
		SELECT
			tc.table_name AS table_name,
			cc.constraint_name AS constraint_name,
			'CHECK' AS constraint_type,
			NULL AS column_name,
			0 AS position,
			0 AS is_descending,
			cc.check_clause AS definition,
			NULL AS referenced_table_name,
			NULL AS referenced_column_name,
			NULL AS delete_rule,
			NULL AS update_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
			ON cc.constraint_schema = tc.constraint_schema
			AND cc.constraint_name = tc.constraint_name
		WHERE tc.table_schema = DATABASE()
			AND tc.constraint_type = 'CHECK'
			AND LOWER(tc.table_name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY tc.table_name, cc.constraint_name
	`
	if isMariaDB(version) {
		// MariaDB scopes check names per table.
		checkQuery = strings.Replace(checkQuery, "AND cc.constraint_name = tc.constraint_name",
			"AND cc.constraint_name = tc.constraint_name\n\t\t\tAND cc.table_name = tc.table_name", 1)
	}
	var checks []ConstraintRow
	if err := selectContext(ctx, ex, d.BindType(), &checks, checkQuery, pattern); err != nil {
		return nil, err
	}
	for i := range checks {
		checks[i].Definition.String = strings.ReplaceAll(checks[i].Definition.String, "`", "")
	}
	return append(rows, checks...), nil
}

func (d *mysqlDialect) extractIndexes(ctx context.Context, ex Executor, pattern string) ([]IndexRow, error) {
	query := `
		SELECT
			s.table_name AS table_name,
			s.index_name AS index_name,
			s.non_unique = 0 AS is_unique,
			s.column_name AS column_name,
			s.seq_in_index AS position,
			COALESCE(s.collation = 'D', 0) AS is_descending
		FROM information_schema.statistics s
		WHERE s.table_schema = DATABASE()
			AND LOWER(s.table_name) LIKE LOWER(?) ESCAPE '!'
			AND s.index_name <> 'PRIMARY'
			AND s.column_name IS NOT NULL
			AND NOT EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				WHERE tc.table_schema = s.table_schema
					AND tc.table_name = s.table_name
					AND tc.constraint_name = s.index_name
					AND tc.constraint_type IN ('UNIQUE', 'FOREIGN KEY')
			)
		ORDER BY s.table_name, s.index_name, s.seq_in_index
	`
	var rows []IndexRow
	err := selectContext(ctx, ex, d.BindType(), &rows, query, pattern)
	return rows, err
}

func (d *mysqlDialect) Views(ctx context.Context, ex Executor, schemaName, pattern string) ([]*schema.View, error) {
	query := `
		SELECT table_name AS view_name, view_definition AS definition
		FROM information_schema.views
		WHERE table_schema = DATABASE()
			AND LOWER(table_name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY table_name
	`
	var rows []viewRow
	if err := selectContext(ctx, ex, d.BindType(), &rows, query, pattern); err != nil {
		return nil, err
	}
	return toViews(schemaName, rows, nil), nil
}
