package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

type postgresDialect struct {
	ansi
	types *typemap.TypeMap
}

// NewPostgresMethods returns the PostgreSQL methods.
func NewPostgresMethods() *Methods {
	d := &postgresDialect{types: builtinTypeMap(provider.PostgreSQL)}
	d.ansi = ansi{q: d.QuoteIdentifier}
	return NewMethods(d)
}

func (d *postgresDialect) Provider() provider.Type { return provider.PostgreSQL }
func (d *postgresDialect) TypeMap() *typemap.TypeMap { return d.types }
func (d *postgresDialect) SupportsSchemas() bool { return true }
func (d *postgresDialect) BindType() int { return sqlx.DOLLAR }
func (d *postgresDialect) DefaultSchema() string { return "public" }
func (d *postgresDialect) MaxIdentifierLength() int { return 63 }
func (d *postgresDialect) SupportsCheckConstraints(string) bool { return true }

// SupportsOrderedKeysInConstraints is false: PRIMARY KEY and UNIQUE take plain column lists.
func (d *postgresDialect) SupportsOrderedKeysInConstraints(string) bool { return false }

func (d *postgresDialect) QuoteIdentifier(name string) string {
	return pgx.Identifier{naming.Normalize(name)}.Sanitize()
}

func (d *postgresDialect) QualifiedName(schemaName, name string) string {
	if schemaName == "" {
		return d.QuoteIdentifier(name)
	}
	return pgx.Identifier{naming.Normalize(schemaName), naming.Normalize(name)}.Sanitize()
}

// NormalizeName folds to lower case like unquoted PostgreSQL identifiers.
func (d *postgresDialect) NormalizeName(name string) string {
	return strings.ToLower(naming.Normalize(name))
}

func (d *postgresDialect) NormalizeSchemaName(schemaName string) string {
	if strings.TrimSpace(schemaName) == "" {
		return d.DefaultSchema()
	}
	return d.NormalizeName(schemaName)
}

func (d *postgresDialect) IsAutoIncrement(col ColumnRow) bool {
	if col.Marker.Valid && strings.TrimSpace(col.Marker.String) != "" {
		return true
	}
	return col.DefaultValue.Valid && strings.HasPrefix(strings.ToLower(col.DefaultValue.String), "nextval(")
}

func (d *postgresDialect) ColumnDefinition(c *schema.Column, sqlType string, def *schema.DefaultConstraint, _ *schema.PrimaryKeyConstraint) string {
	var b strings.Builder
	b.WriteString(d.QuoteIdentifier(c.ColumnName))
	b.WriteString(" ")
	b.WriteString(sqlType)
	if c.IsAutoIncrement {
		b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
	}
	if c.IsNullable && !c.IsPrimaryKey && !c.IsAutoIncrement {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if def != nil && !c.IsAutoIncrement {
		b.WriteString(" DEFAULT ")
		b.WriteString(def.Expression)
	}
	return b.String()
}

func (d *postgresDialect) DropIndex(schemaName, _, name string) (string, error) {
	return "DROP INDEX " + d.QualifiedName(schemaName, name), nil
}

func (d *postgresDialect) ServerVersion(ctx context.Context, ex Executor) (string, error) {
	var v string
	err := getContext(ctx, ex, d.BindType(), &v, `SELECT current_setting('server_version')`)
	return v, err
}

func (d *postgresDialect) SchemaNames(ctx context.Context, ex Executor, pattern string) ([]string, error) {
	query := `
		SELECT nspname
		FROM pg_catalog.pg_namespace
		WHERE nspname NOT LIKE 'pg!_%' ESCAPE '!'
			AND nspname <> 'information_schema'
			AND lower(nspname) LIKE lower(?) ESCAPE '!'
		ORDER BY nspname
	`
	var names []string
	err := selectContext(ctx, ex, d.BindType(), &names, query, pattern)
	return names, err
}

func (d *postgresDialect) TableNames(ctx context.Context, ex Executor, schemaName, pattern string) ([]string, error) {
	query := `
		SELECT c.relname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p')
			AND n.nspname = ?
			AND lower(c.relname) LIKE lower(?) ESCAPE '!'
		ORDER BY c.relname
	`
	var names []string
	err := selectContext(ctx, ex, d.BindType(), &names, query, schemaName, pattern)
	return names, err
}

func (d *postgresDialect) ReadTables(ctx context.Context, ex Executor, schemaName, pattern string) (*Snapshot, error) {
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

func (d *postgresDialect) extractColumns(ctx context.Context, ex Executor, schemaName, pattern string) ([]ColumnRow, error) {
	query := `
		SELECT
			c.relname AS table_name,
			a.attname AS column_name,
			pg_catalog.format_type(a.atttypid, a.atttypmod) AS data_type,
			NOT a.attnotnull AS is_nullable,
			pg_catalog.pg_get_expr(ad.adbin, ad.adrelid) AS column_default,
			a.attidentity::text AS identity_marker,
			a.attnum AS position
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_catalog.pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
		WHERE c.relkind IN ('r', 'p')
			AND n.nspname = ?
			AND lower(c.relname) LIKE lower(?) ESCAPE '!'
			AND a.attnum > 0
			AND NOT a.attisdropped
		ORDER BY c.relname, a.attnum
	`
	var rows []ColumnRow
	err := selectContext(ctx, ex, d.BindType(), &rows, query, schemaName, pattern)
	return rows, err
}

func (d *postgresDialect) extractConstraints(ctx context.Context, ex Executor, schemaName, pattern string) ([]ConstraintRow, error) {
	query := `
		SELECT
			c.relname AS table_name,
			con.conname AS constraint_name,
			CASE con.contype
				WHEN 'p' THEN 'PRIMARY KEY'
				WHEN 'u' THEN 'UNIQUE'
				WHEN 'c' THEN 'CHECK'
				ELSE 'FOREIGN KEY'
			END AS constraint_type,
			a.attname AS column_name,
			COALESCE(k.ord, 0)::int AS position,
			false AS is_descending,
			CASE WHEN con.contype = 'c' THEN pg_catalog.pg_get_constraintdef(con.oid, true) END AS definition,
			rc.relname AS referenced_table_name,
			ra.attname AS referenced_column_name,
			CASE con.confdeltype
				WHEN 'r' THEN 'RESTRICT' WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET NULL' WHEN 'd' THEN 'SET DEFAULT'
				ELSE 'NO ACTION'
			END AS delete_rule,
			CASE con.confupdtype
				WHEN 'r' THEN 'RESTRICT' WHEN 'c' THEN 'CASCADE'
				WHEN 'n' THEN 'SET NULL' WHEN 'd' THEN 'SET DEFAULT'
				ELSE 'NO ACTION'
			END AS update_rule
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord) ON true
		LEFT JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		LEFT JOIN pg_catalog.pg_class rc ON rc.oid = con.confrelid
		LEFT JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = con.confkey[k.ord::int]
		WHERE con.contype IN ('p', 'u', 'c', 'f')
			AND n.nspname = ?
			AND lower(c.relname) LIKE lower(?) ESCAPE '!'
		ORDER BY c.relname, con.conname, k.ord
	`
	var rows []ConstraintRow
	err := selectContext(ctx, ex, d.BindType(), &rows, query, schemaName, pattern)
	return rows, err
}

func (d *postgresDialect) extractIndexes(ctx context.Context, ex Executor, schemaName, pattern string) ([]IndexRow, error) {
	query := `
		SELECT
			c.relname AS table_name,
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			pg_catalog.pg_get_indexdef(ix.indexrelid, k.n, true) AS column_name,
			k.n AS position,
			(ix.indoption[k.n - 1]::int & 1) = 1 AS is_descending
		FROM pg_catalog.pg_index ix
		JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
		JOIN pg_catalog.pg_class c ON c.oid = ix.indrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		CROSS JOIN LATERAL generate_series(1, ix.indnkeyatts::int) AS k(n)
		WHERE n.nspname = ?
			AND lower(c.relname) LIKE lower(?) ESCAPE '!'
			AND NOT ix.indisprimary
			AND NOT EXISTS (
				SELECT 1 FROM pg_catalog.pg_constraint con
				WHERE con.conindid = ix.indexrelid AND con.contype IN ('p', 'u', 'x')
			)
		ORDER BY c.relname, i.relname, k.n
	`
	var rows []IndexRow
	err := selectContext(ctx, ex, d.BindType(), &rows, query, schemaName, pattern)
	return rows, err
}

func (d *postgresDialect) Views(ctx context.Context, ex Executor, schemaName, pattern string) ([]*schema.View, error) {
	query := `
		SELECT c.relname AS view_name, pg_catalog.pg_get_viewdef(c.oid, true) AS definition
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'v'
			AND n.nspname = ?
			AND lower(c.relname) LIKE lower(?) ESCAPE '!'
		ORDER BY c.relname
	`
	var rows []viewRow
	if err := selectContext(ctx, ex, d.BindType(), &rows, query, schemaName, pattern); err != nil {
		return nil, err
	}
	return toViews(schemaName, rows, nil), nil
}
