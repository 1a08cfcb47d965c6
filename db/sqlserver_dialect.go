package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

type sqlServerDialect struct {
	ansi
	types *typemap.TypeMap
}

// NewSQLServerMethods returns the SQL Server methods.
func NewSQLServerMethods() *Methods {
	d := &sqlServerDialect{types: builtinTypeMap(provider.SQLServer)}
	d.ansi = ansi{q: d.QuoteIdentifier}
	return NewMethods(d)
}

func (d *sqlServerDialect) Provider() provider.Type { return provider.SQLServer }
func (d *sqlServerDialect) TypeMap() *typemap.TypeMap { return d.types }
func (d *sqlServerDialect) SupportsSchemas() bool { return true }
func (d *sqlServerDialect) BindType() int { return sqlx.AT }
func (d *sqlServerDialect) DefaultSchema() string { return "dbo" }
func (d *sqlServerDialect) MaxIdentifierLength() int { return 128 }
func (d *sqlServerDialect) SupportsCheckConstraints(string) bool { return true }
func (d *sqlServerDialect) SupportsOrderedKeysInConstraints(string) bool { return true }

func (d *sqlServerDialect) QuoteIdentifier(name string) string {
	return quoteWith(naming.Normalize(name), '[', ']')
}

func (d *sqlServerDialect) QualifiedName(schemaName, name string) string {
	if schemaName == "" {
		return d.QuoteIdentifier(name)
	}
	return d.QuoteIdentifier(schemaName) + "." + d.QuoteIdentifier(name)
}

// NormalizeName strips quoting; SQL Server identifiers keep their case.
func (d *sqlServerDialect) NormalizeName(name string) string {
	return naming.Normalize(name)
}

func (d *sqlServerDialect) NormalizeSchemaName(schemaName string) string {
	if strings.TrimSpace(schemaName) == "" {
		return d.DefaultSchema()
	}
	return d.NormalizeName(schemaName)
}

func (d *sqlServerDialect) IsAutoIncrement(col ColumnRow) bool {
	return col.Marker.Valid && col.Marker.String == "1"
}

func (d *sqlServerDialect) ColumnDefinition(c *schema.Column, sqlType string, def *schema.DefaultConstraint, _ *schema.PrimaryKeyConstraint) string {
	var b strings.Builder
	b.WriteString(d.QuoteIdentifier(c.ColumnName))
	b.WriteString(" ")
	b.WriteString(sqlType)
	if c.IsAutoIncrement {
		b.WriteString(" IDENTITY(1,1)")
	}
	if c.IsNullable && !c.IsPrimaryKey && !c.IsAutoIncrement {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if def != nil && !c.IsAutoIncrement {
		fmt.Fprintf(&b, " CONSTRAINT %s DEFAULT (%s)", d.QuoteIdentifier(def.ConstraintName), stripParens(def.Expression))
	}
	return b.String()
}

// ReferentialAction maps RESTRICT to NO ACTION, which SQL Server enforces the same way.
func (d *sqlServerDialect) ReferentialAction(a schema.ForeignKeyAction) string {
	if a == schema.Restrict {
		return schema.NoAction.String()
	}
	return a.String()
}

func (d *sqlServerDialect) AddColumn(table string, _ *schema.Column, columnDef string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", table, columnDef), nil
}

func (d *sqlServerDialect) RenameTable(table, newName string) (string, error) {
	return fmt.Sprintf("EXEC sp_rename N'%s', N'%s'", sqlString(table), sqlString(naming.Normalize(newName))), nil
}

func (d *sqlServerDialect) RenameColumn(table, column, newName string) (string, error) {
	return fmt.Sprintf("EXEC sp_rename N'%s', N'%s', 'COLUMN'",
		sqlString(table+"."+d.QuoteIdentifier(column)), sqlString(naming.Normalize(newName))), nil
}

func (d *sqlServerDialect) AddDefault(table string, df *schema.DefaultConstraint) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT (%s) FOR %s",
		table, d.QuoteIdentifier(df.ConstraintName), stripParens(df.Expression), d.QuoteIdentifier(df.ColumnName)), nil
}

func (d *sqlServerDialect) DropDefault(table, _, name string) (string, error) {
	return d.dropConstraint(table, name)
}

// sqlString escapes a value for a single quoted literal.
func sqlString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (d *sqlServerDialect) ServerVersion(ctx context.Context, ex Executor) (string, error) {
	var v string
	err := getContext(ctx, ex, d.BindType(), &v, `SELECT CAST(SERVERPROPERTY('ProductVersion') AS nvarchar(128))`)
	return v, err
}

func (d *sqlServerDialect) SchemaNames(ctx context.Context, ex Executor, pattern string) ([]string, error) {
	query := `
		SELECT name
		FROM sys.schemas
		WHERE schema_id < 16384
			AND name NOT IN ('guest', 'INFORMATION_SCHEMA', 'sys')
			AND LOWER(name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY name
	`
	var names []string
	err := selectContext(ctx, ex, d.BindType(), &names, query, pattern)
	return names, err
}

func (d *sqlServerDialect) TableNames(ctx context.Context, ex Executor, schemaName, pattern string) ([]string, error) {
	query := `
		SELECT t.name
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = ?
			AND LOWER(t.name) LIKE LOWER(?) ESCAPE '!'
			AND t.is_ms_shipped = 0
		ORDER BY t.name
	`
	var names []string
	err := selectContext(ctx, ex, d.BindType(), &names, query, schemaName, pattern)
	return names, err
}

func (d *sqlServerDialect) ReadTables(ctx context.Context, ex Executor, schemaName, pattern string) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.TableNames, err = d.TableNames(ctx, ex, schemaName, pattern); err != nil {
		return nil, err
	}
	if len(snap.TableNames) == 0 {
		return snap, nil
	}
	if snap.Columns, err = d.extractColumns(ctx, ex, schemaName, pattern); err != nil {
		return nil, err
	}
	if snap.Constraints, err = d.extractConstraints(ctx, ex, schemaName, pattern); err != nil {
		return nil, err
	}
	if snap.Indexes, err = d.extractIndexes(ctx, ex, schemaName, pattern); err != nil {
		return nil, err
	}
	return snap, nil
}

func (d *sqlServerDialect) extractColumns(ctx context.Context, ex Executor, schemaName, pattern string) ([]ColumnRow, error) {
	query := `
		SELECT
			t.name AS table_name,
			c.name AS column_name,
			CASE
				WHEN ty.name IN ('nvarchar', 'nchar') THEN ty.name + '(' +
					CASE WHEN c.max_length = -1 THEN 'max' ELSE CAST(c.max_length / 2 AS varchar(10)) END + ')'
				WHEN ty.name IN ('varchar', 'char', 'varbinary', 'binary') THEN ty.name + '(' +
					CASE WHEN c.max_length = -1 THEN 'max' ELSE CAST(c.max_length AS varchar(10)) END + ')'
				WHEN ty.name IN ('decimal', 'numeric') THEN ty.name + '(' +
					CAST(c.precision AS varchar(10)) + ',' + CAST(c.scale AS varchar(10)) + ')'
				ELSE ty.name
			END AS data_type,
			c.is_nullable AS is_nullable,
			CAST(NULL AS nvarchar(max)) AS column_default,
			CAST(c.is_identity AS varchar(1)) AS identity_marker,
			c.column_id AS position
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		WHERE s.name = ?
			AND LOWER(t.name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY t.name, c.column_id
	`
	var rows []ColumnRow
	err := selectContext(ctx, ex, d.BindType(), &rows, query, schemaName, pattern)
	return rows, err
}

// SQL Server keeps each constraint kind in its own catalog view.
var sqlServerConstraintQueries = []string{
	`
		SELECT
			t.name AS table_name,
			kc.name AS constraint_name,
			CASE kc.type WHEN 'PK' THEN 'PRIMARY KEY' ELSE 'UNIQUE' END AS constraint_type,
			c.name AS column_name,
			CAST(ic.key_ordinal AS int) AS position,
			ic.is_descending_key AS is_descending,
			CAST(NULL AS nvarchar(max)) AS definition,
			CAST(NULL AS sysname) AS referenced_table_name,
			CAST(NULL AS sysname) AS referenced_column_name,
			CAST(NULL AS nvarchar(60)) AS delete_rule,
			CAST(NULL AS nvarchar(60)) AS update_rule
		FROM sys.key_constraints kc
		JOIN sys.tables t ON t.object_id = kc.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE s.name = ? AND LOWER(t.name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY t.name, kc.name, ic.key_ordinal
	`,
	`
		SELECT
			t.name AS table_name,
			cc.name AS constraint_name,
			'CHECK' AS constraint_type,
			c.name AS column_name,
			0 AS position,
			CAST(0 AS bit) AS is_descending,
			cc.definition AS definition,
			CAST(NULL AS sysname) AS referenced_table_name,
			CAST(NULL AS sysname) AS referenced_column_name,
			CAST(NULL AS nvarchar(60)) AS delete_rule,
			CAST(NULL AS nvarchar(60)) AS update_rule
		FROM sys.check_constraints cc
		JOIN sys.tables t ON t.object_id = cc.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		LEFT JOIN sys.columns c ON c.object_id = cc.parent_object_id AND c.column_id = cc.parent_column_id
		WHERE s.name = ? AND LOWER(t.name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY t.name, cc.name
	`,
	`
		SELECT
			t.name AS table_name,
			dc.name AS constraint_name,
			'DEFAULT' AS constraint_type,
			c.name AS column_name,
			0 AS position,
			CAST(0 AS bit) AS is_descending,
			dc.definition AS definition,
			CAST(NULL AS sysname) AS referenced_table_name,
			CAST(NULL AS sysname) AS referenced_column_name,
			CAST(NULL AS nvarchar(60)) AS delete_rule,
			CAST(NULL AS nvarchar(60)) AS update_rule
		FROM sys.default_constraints dc
		JOIN sys.tables t ON t.object_id = dc.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.columns c ON c.object_id = dc.parent_object_id AND c.column_id = dc.parent_column_id
		WHERE s.name = ? AND LOWER(t.name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY t.name, dc.name
	`,
	`
		SELECT
			t.name AS table_name,
			fk.name AS constraint_name,
			'FOREIGN KEY' AS constraint_type,
			c.name AS column_name,
			fkc.constraint_column_id AS position,
			CAST(0 AS bit) AS is_descending,
			CAST(NULL AS nvarchar(max)) AS definition,
			rt.name AS referenced_table_name,
			rc.name AS referenced_column_name,
			REPLACE(fk.delete_referential_action_desc, '_', ' ') AS delete_rule,
			REPLACE(fk.update_referential_action_desc, '_', ' ') AS update_rule
		FROM sys.foreign_keys fk
		JOIN sys.tables t ON t.object_id = fk.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns c ON c.object_id = fkc.parent_object_id AND c.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE s.name = ? AND LOWER(t.name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY t.name, fk.name, fkc.constraint_column_id
	`,
}

func (d *sqlServerDialect) extractConstraints(ctx context.Context, ex Executor, schemaName, pattern string) ([]ConstraintRow, error) {
	var all []ConstraintRow
	for _, query := range sqlServerConstraintQueries {
		var rows []ConstraintRow
		if err := selectContext(ctx, ex, d.BindType(), &rows, query, schemaName, pattern); err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func (d *sqlServerDialect) extractIndexes(ctx context.Context, ex Executor, schemaName, pattern string) ([]IndexRow, error) {
	query := `
		SELECT
			t.name AS table_name,
			i.name AS index_name,
			i.is_unique AS is_unique,
			c.name AS column_name,
			CAST(ic.key_ordinal AS int) AS position,
			ic.is_descending_key AS is_descending
		FROM sys.indexes i
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE s.name = ?
			AND LOWER(t.name) LIKE LOWER(?) ESCAPE '!'
			AND i.is_primary_key = 0
			AND i.is_unique_constraint = 0
			AND i.is_hypothetical = 0
			AND i.type > 0
			AND ic.is_included_column = 0
		ORDER BY t.name, i.name, ic.key_ordinal
	`
	var rows []IndexRow
	err := selectContext(ctx, ex, d.BindType(), &rows, query, schemaName, pattern)
	return rows, err
}

func (d *sqlServerDialect) Views(ctx context.Context, ex Executor, schemaName, pattern string) ([]*schema.View, error) {
	query := `
		SELECT v.name AS view_name, m.definition AS definition
		FROM sys.views v
		JOIN sys.schemas s ON s.schema_id = v.schema_id
		JOIN sys.sql_modules m ON m.object_id = v.object_id
		WHERE s.name = ?
			AND LOWER(v.name) LIKE LOWER(?) ESCAPE '!'
		ORDER BY v.name
	`
	var rows []viewRow
	if err := selectContext(ctx, ex, d.BindType(), &rows, query, schemaName, pattern); err != nil {
		return nil, err
	}
	return toViews(schemaName, rows, stripCreateView), nil
}
