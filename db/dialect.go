package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

// Namer quotes and canonicalizes identifiers for one dialect.
type Namer interface {
	QuoteIdentifier(name string) string
	// QualifiedName quotes name, prefixing the schema where the dialect has schemas.
	QualifiedName(schemaName, name string) string
	NormalizeName(name string) string
	NormalizeSchemaName(schemaName string) string
	DefaultSchema() string
	MaxIdentifierLength() int
}

// Catalog reads a live database's system catalogs. Patterns are LIKE patterns
// escaped with '!'; schemaName is already normalized.
type Catalog interface {
	SupportsSchemas() bool
	BindType() int
	ServerVersion(ctx context.Context, ex Executor) (string, error)
	SupportsCheckConstraints(version string) bool
	SupportsOrderedKeysInConstraints(version string) bool
	SchemaNames(ctx context.Context, ex Executor, pattern string) ([]string, error)
	TableNames(ctx context.Context, ex Executor, schemaName, pattern string) ([]string, error)
	ReadTables(ctx context.Context, ex Executor, schemaName, pattern string) (*Snapshot, error)
	Views(ctx context.Context, ex Executor, schemaName, pattern string) ([]*schema.View, error)
	IsAutoIncrement(col ColumnRow) bool
}

// DDL renders statements. Builders return errRebuildTable when the dialect
// cannot express the change with ALTER TABLE.
type DDL interface {
	CreateSchema(schemaName string) (string, error)
	DropSchema(schemaName string) (string, error)
	ColumnDefinition(c *schema.Column, sqlType string, def *schema.DefaultConstraint, inlinePK *schema.PrimaryKeyConstraint) string
	// InlinePrimaryKey returns the primary key when it must be declared on its column.
	InlinePrimaryKey(t *schema.Table) *schema.PrimaryKeyConstraint
	ReferentialAction(a schema.ForeignKeyAction) string
	AddColumn(table string, c *schema.Column, columnDef string) (string, error)
	DropColumn(table, column string) (string, error)
	RenameTable(table, newName string) (string, error)
	RenameColumn(table, column, newName string) (string, error)
	AddConstraint(table, constraintDef string) (string, error)
	DropPrimaryKey(table, name string) (string, error)
	DropUnique(table, name string) (string, error)
	DropCheck(table, name string) (string, error)
	DropForeignKey(table, name string) (string, error)
	AddDefault(table string, d *schema.DefaultConstraint) (string, error)
	DropDefault(table, column, name string) (string, error)
	CreateIndex(table string, ix *schema.Index, columns string) (string, error)
	DropIndex(schemaName, table, name string) (string, error)
	TruncateTable(table string) string
	CreateView(view, definition string) string
	DropView(view string) string
}

// Dialect is everything the engine needs from one provider.
type Dialect interface {
	Namer
	Catalog
	DDL
	Provider() provider.Type
	TypeMap() *typemap.TypeMap
}

// ColumnRow is one column read from the catalog.
type ColumnRow struct {
	TableName    string         `db:"table_name"`
	ColumnName   string         `db:"column_name"`
	DataType     string         `db:"data_type"`
	IsNullable   bool           `db:"is_nullable"`
	DefaultValue sql.NullString `db:"column_default"`
	// Marker carries the provider specific identity flag or text.
	Marker   sql.NullString `db:"identity_marker"`
	Position int            `db:"position"`
}

// ConstraintRow is one column of one constraint read from the catalog.
type ConstraintRow struct {
	TableName            string         `db:"table_name"`
	ConstraintName       string         `db:"constraint_name"`
	ConstraintType       string         `db:"constraint_type"`
	ColumnName           sql.NullString `db:"column_name"`
	Position             int            `db:"position"`
	IsDescending         bool           `db:"is_descending"`
	Definition           sql.NullString `db:"definition"`
	ReferencedTableName  sql.NullString `db:"referenced_table_name"`
	ReferencedColumnName sql.NullString `db:"referenced_column_name"`
	DeleteRule           sql.NullString `db:"delete_rule"`
	UpdateRule           sql.NullString `db:"update_rule"`
}

// Catalog constraint types.
const (
	constraintPrimaryKey = "PRIMARY KEY"
	constraintUnique     = "UNIQUE"
	constraintCheck      = "CHECK"
	constraintForeignKey = "FOREIGN KEY"
	constraintDefault    = "DEFAULT"
)

// IndexRow is one key column of one index read from the catalog.
type IndexRow struct {
	TableName    string `db:"table_name"`
	IndexName    string `db:"index_name"`
	IsUnique     bool   `db:"is_unique"`
	ColumnName   string `db:"column_name"`
	Position     int    `db:"position"`
	IsDescending bool   `db:"is_descending"`
}

// Snapshot holds the catalog rows of a set of tables.
type Snapshot struct {
	TableNames  []string
	Columns     []ColumnRow
	Constraints []ConstraintRow
	Indexes     []IndexRow
}

type viewRow struct {
	ViewName   string `db:"view_name"`
	Definition string `db:"definition"`
}

func selectContext(ctx context.Context, ex Executor, bindType int, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, ex, dest, sqlx.Rebind(bindType, query), args...)
}

func getContext(ctx context.Context, ex Executor, bindType int, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, ex, dest, sqlx.Rebind(bindType, query), args...)
}

func toViews(schemaName string, rows []viewRow, strip func(string) string) []*schema.View {
	views := make([]*schema.View, 0, len(rows))
	for _, r := range rows {
		def := strings.TrimSpace(r.Definition)
		if strip != nil {
			def = strip(def)
		}
		views = append(views, &schema.View{SchemaName: schemaName, ViewName: r.ViewName, Definition: strings.TrimSuffix(def, ";")})
	}
	return views
}

var createViewPrefix = regexp.MustCompile(`(?is)^\s*create\s+(or\s+alter\s+)?(temp\s+|temporary\s+)?view\s+(if\s+not\s+exists\s+)?("[^"]*"|\[[^\]]*\]|\S+)(\s*\([^)]*\))?\s+as\s+`)

// stripCreateView reduces a stored CREATE VIEW statement to its query.
func stripCreateView(def string) string {
	return createViewPrefix.ReplaceAllString(def, "")
}

// ansi holds the statement builders shared by most dialects. Dialects embed it
// and replace the builders they spell differently.
type ansi struct {
	q func(string) string
}

func (a ansi) CreateSchema(schemaName string) (string, error) {
	return "CREATE SCHEMA " + a.q(schemaName), nil
}

func (a ansi) DropSchema(schemaName string) (string, error) {
	return "DROP SCHEMA " + a.q(schemaName), nil
}

func (a ansi) InlinePrimaryKey(*schema.Table) *schema.PrimaryKeyConstraint {
	return nil
}

func (a ansi) ReferentialAction(act schema.ForeignKeyAction) string {
	return act.String()
}

func (a ansi) AddColumn(table string, _ *schema.Column, columnDef string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnDef), nil
}

func (a ansi) DropColumn(table, column string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, a.q(column)), nil
}

func (a ansi) RenameTable(table, newName string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", table, a.q(newName)), nil
}

func (a ansi) RenameColumn(table, column, newName string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, a.q(column), a.q(newName)), nil
}

func (a ansi) AddConstraint(table, constraintDef string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", table, constraintDef), nil
}

func (a ansi) dropConstraint(table, name string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, a.q(name)), nil
}

func (a ansi) DropPrimaryKey(table, name string) (string, error) {
	return a.dropConstraint(table, name)
}

func (a ansi) DropUnique(table, name string) (string, error) {
	return a.dropConstraint(table, name)
}

func (a ansi) DropCheck(table, name string) (string, error) {
	return a.dropConstraint(table, name)
}

func (a ansi) DropForeignKey(table, name string) (string, error) {
	return a.dropConstraint(table, name)
}

func (a ansi) AddDefault(table string, d *schema.DefaultConstraint) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", table, a.q(d.ColumnName), d.Expression), nil
}

func (a ansi) DropDefault(table, column, _ string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, a.q(column)), nil
}

func (a ansi) CreateIndex(table string, ix *schema.Index, columns string) (string, error) {
	unique := ""
	if ix.IsUnique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, a.q(ix.IndexName), table, columns), nil
}

func (a ansi) DropIndex(_, table, name string) (string, error) {
	return fmt.Sprintf("DROP INDEX %s ON %s", a.q(name), table), nil
}

func (a ansi) TruncateTable(table string) string {
	return "TRUNCATE TABLE " + table
}

func (a ansi) CreateView(view, definition string) string {
	return fmt.Sprintf("CREATE VIEW %s AS %s", view, definition)
}

func (a ansi) DropView(view string) string {
	return "DROP VIEW " + view
}

// quoteWith doubles the closing quote character inside name.
func quoteWith(name string, open, close byte) string {
	return string(open) + strings.ReplaceAll(name, string(close), string(close)+string(close)) + string(close)
}

// stripParens removes balanced parentheses wrapping the whole expression.
func stripParens(expr string) string {
	expr = strings.TrimSpace(expr)
	for len(expr) >= 2 && expr[0] == '(' && expr[len(expr)-1] == ')' && balanced(expr[1:len(expr)-1]) {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	return expr
}

func balanced(s string) bool {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
