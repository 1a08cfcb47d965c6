package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

// CoreMethods exposes capabilities, versions and type mapping.
type CoreMethods interface {
	ProviderType() provider.Type
	GetDatabaseVersion(ctx context.Context, ex Executor) (Version, error)
	SupportsSchemas() bool
	SupportsCheckConstraints(ctx context.Context, ex Executor) (bool, error)
	SupportsOrderedKeysInConstraints(ctx context.Context, ex Executor) (bool, error)
	GetSQLTypeFromHostType(d typemap.HostTypeDescriptor) (typemap.SQLTypeDescriptor, bool)
	GetHostTypeFromSQLType(sqlType string) (typemap.HostTypeDescriptor, bool)
	NormalizeName(name string) string
	NormalizeSchemaName(schemaName string) string
	QuoteIdentifier(name string) string
}

// SchemaMethods manages schemas.
type SchemaMethods interface {
	DoesSchemaExist(ctx context.Context, ex Executor, schemaName string) (bool, error)
	CreateSchemaIfNotExists(ctx context.Context, ex Executor, schemaName string) (bool, error)
	GetSchemaNames(ctx context.Context, ex Executor, filter string) ([]string, error)
	DropSchemaIfExists(ctx context.Context, ex Executor, schemaName string) (bool, error)
}

// TableMethods manages tables.
type TableMethods interface {
	DoesTableExist(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error)
	CreateTableIfNotExists(ctx context.Context, ex Executor, table *schema.Table) (bool, error)
	GetTableNames(ctx context.Context, ex Executor, schemaName, filter string) ([]string, error)
	GetTables(ctx context.Context, ex Executor, schemaName, filter string) ([]*schema.Table, error)
	GetTable(ctx context.Context, ex Executor, schemaName, tableName string) (*schema.Table, error)
	DropTableIfExists(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error)
	RenameTableIfExists(ctx context.Context, ex Executor, schemaName, tableName, newTableName string) (bool, error)
	TruncateTableIfExists(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error)
	AlterTable(ctx context.Context, ex Executor, alteration *TableAlteration) error
}

// ColumnMethods manages columns.
type ColumnMethods interface {
	DoesColumnExist(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
	CreateColumnIfNotExists(ctx context.Context, ex Executor, column *schema.Column) (bool, error)
	GetColumnNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error)
	GetColumns(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.Column, error)
	GetColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.Column, error)
	DropColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
	RenameColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName, newColumnName string) (bool, error)
}

// PrimaryKeyMethods manages primary keys.
type PrimaryKeyMethods interface {
	DoesPrimaryKeyConstraintExist(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error)
	CreatePrimaryKeyConstraintIfNotExists(ctx context.Context, ex Executor, pk *schema.PrimaryKeyConstraint) (bool, error)
	GetPrimaryKeyConstraint(ctx context.Context, ex Executor, schemaName, tableName string) (*schema.PrimaryKeyConstraint, error)
	DropPrimaryKeyConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error)
}

// UniqueConstraintMethods manages unique constraints.
type UniqueConstraintMethods interface {
	DoesUniqueConstraintExist(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error)
	DoesUniqueConstraintExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
	CreateUniqueConstraintIfNotExists(ctx context.Context, ex Executor, uc *schema.UniqueConstraint) (bool, error)
	GetUniqueConstraintNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error)
	GetUniqueConstraints(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.UniqueConstraint, error)
	GetUniqueConstraint(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (*schema.UniqueConstraint, error)
	GetUniqueConstraintOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.UniqueConstraint, error)
	DropUniqueConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error)
	DropUniqueConstraintOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
}

// CheckConstraintMethods manages check constraints.
type CheckConstraintMethods interface {
	DoesCheckConstraintExist(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error)
	DoesCheckConstraintExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
	CreateCheckConstraintIfNotExists(ctx context.Context, ex Executor, ck *schema.CheckConstraint) (bool, error)
	GetCheckConstraintNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error)
	GetCheckConstraints(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.CheckConstraint, error)
	GetCheckConstraint(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (*schema.CheckConstraint, error)
	GetCheckConstraintOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.CheckConstraint, error)
	DropCheckConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error)
	DropCheckConstraintOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
}

// DefaultConstraintMethods manages column defaults.
type DefaultConstraintMethods interface {
	DoesDefaultConstraintExist(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error)
	DoesDefaultConstraintExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
	CreateDefaultConstraintIfNotExists(ctx context.Context, ex Executor, df *schema.DefaultConstraint) (bool, error)
	GetDefaultConstraintNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error)
	GetDefaultConstraints(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.DefaultConstraint, error)
	GetDefaultConstraint(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (*schema.DefaultConstraint, error)
	GetDefaultConstraintOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.DefaultConstraint, error)
	DropDefaultConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error)
	DropDefaultConstraintOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
}

// ForeignKeyConstraintMethods manages foreign keys.
type ForeignKeyConstraintMethods interface {
	DoesForeignKeyConstraintExist(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error)
	DoesForeignKeyConstraintExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
	CreateForeignKeyConstraintIfNotExists(ctx context.Context, ex Executor, fk *schema.ForeignKeyConstraint) (bool, error)
	GetForeignKeyConstraintNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error)
	GetForeignKeyConstraints(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.ForeignKeyConstraint, error)
	GetForeignKeyConstraint(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (*schema.ForeignKeyConstraint, error)
	GetForeignKeyConstraintOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.ForeignKeyConstraint, error)
	DropForeignKeyConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error)
	DropForeignKeyConstraintOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
}

// IndexMethods manages indexes.
type IndexMethods interface {
	DoesIndexExist(ctx context.Context, ex Executor, schemaName, tableName, indexName string) (bool, error)
	DoesIndexExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
	CreateIndexIfNotExists(ctx context.Context, ex Executor, index *schema.Index) (bool, error)
	GetIndexNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error)
	GetIndexes(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.Index, error)
	GetIndex(ctx context.Context, ex Executor, schemaName, tableName, indexName string) (*schema.Index, error)
	GetIndexesOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) ([]*schema.Index, error)
	DropIndexIfExists(ctx context.Context, ex Executor, schemaName, tableName, indexName string) (bool, error)
	DropIndexesOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error)
}

// ViewMethods manages views.
type ViewMethods interface {
	DoesViewExist(ctx context.Context, ex Executor, schemaName, viewName string) (bool, error)
	CreateViewIfNotExists(ctx context.Context, ex Executor, view *schema.View) (bool, error)
	GetViewNames(ctx context.Context, ex Executor, schemaName, filter string) ([]string, error)
	GetViews(ctx context.Context, ex Executor, schemaName, filter string) ([]*schema.View, error)
	GetView(ctx context.Context, ex Executor, schemaName, viewName string) (*schema.View, error)
	DropViewIfExists(ctx context.Context, ex Executor, schemaName, viewName string) (bool, error)
	RenameViewIfExists(ctx context.Context, ex Executor, schemaName, viewName, newViewName string) (bool, error)
	UpdateViewIfExists(ctx context.Context, ex Executor, schemaName, viewName, definition string) (bool, error)
}

// DatabaseMethods is the full set of operations for one provider.
type DatabaseMethods interface {
	CoreMethods
	SchemaMethods
	TableMethods
	ColumnMethods
	PrimaryKeyMethods
	UniqueConstraintMethods
	CheckConstraintMethods
	DefaultConstraintMethods
	ForeignKeyConstraintMethods
	IndexMethods
	ViewMethods
}

// Methods implements DatabaseMethods on top of a Dialect. It holds no
// connection state and is safe for concurrent use.
type Methods struct {
	d Dialect
}

var _ DatabaseMethods = (*Methods)(nil)

// NewMethods creates the engine for d.
func NewMethods(d Dialect) *Methods {
	return &Methods{d: d}
}

// Dialect returns the dialect behind m.
func (m *Methods) Dialect() Dialect {
	return m.d
}

// ProviderType returns the provider m targets.
func (m *Methods) ProviderType() provider.Type {
	return m.d.Provider()
}

// SupportsSchemas reports whether the provider has schemas.
func (m *Methods) SupportsSchemas() bool {
	return m.d.SupportsSchemas()
}

// GetDatabaseVersion queries and parses the server version.
func (m *Methods) GetDatabaseVersion(ctx context.Context, ex Executor) (Version, error) {
	raw, err := m.d.ServerVersion(ctx, ex)
	if err != nil {
		return Version{}, m.wrap("get database version", "", err)
	}
	v, err := ParseVersion(raw)
	if err != nil {
		return Version{}, m.wrap("get database version", "", err)
	}
	return v, nil
}

// SupportsCheckConstraints reports whether the live server enforces check constraints.
func (m *Methods) SupportsCheckConstraints(ctx context.Context, ex Executor) (bool, error) {
	raw, err := m.d.ServerVersion(ctx, ex)
	if err != nil {
		return false, m.wrap("get database version", "", err)
	}
	return m.d.SupportsCheckConstraints(raw), nil
}

// SupportsOrderedKeysInConstraints reports whether key columns of constraints
// may carry ASC/DESC.
func (m *Methods) SupportsOrderedKeysInConstraints(ctx context.Context, ex Executor) (bool, error) {
	raw, err := m.d.ServerVersion(ctx, ex)
	if err != nil {
		return false, m.wrap("get database version", "", err)
	}
	return m.d.SupportsOrderedKeysInConstraints(raw), nil
}

// GetSQLTypeFromHostType maps a host descriptor to the provider's SQL type.
func (m *Methods) GetSQLTypeFromHostType(d typemap.HostTypeDescriptor) (typemap.SQLTypeDescriptor, bool) {
	return m.d.TypeMap().TryGetSQLType(d)
}

// GetHostTypeFromSQLType maps a provider SQL type to a host descriptor.
func (m *Methods) GetHostTypeFromSQLType(sqlType string) (typemap.HostTypeDescriptor, bool) {
	return m.d.TypeMap().TryGetHostType(sqlType)
}

// NormalizeName canonicalizes an identifier.
func (m *Methods) NormalizeName(name string) string {
	return m.d.NormalizeName(name)
}

// NormalizeSchemaName canonicalizes a schema name, substituting the default schema.
func (m *Methods) NormalizeSchemaName(schemaName string) string {
	return m.d.NormalizeSchemaName(schemaName)
}

// QuoteIdentifier quotes an identifier.
func (m *Methods) QuoteIdentifier(name string) string {
	return m.d.QuoteIdentifier(name)
}

func (m *Methods) wrap(operation, object string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &OperationError{Provider: m.d.Provider(), Operation: operation, Object: object, Err: err}
}

func (m *Methods) exec(ctx context.Context, ex Executor, operation, object string, statements ...string) error {
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return m.wrap(operation, object, err)
		}
	}
	return nil
}

// table returns the quoted, qualified name of a table.
func (m *Methods) table(schemaName, tableName string) string {
	return m.d.QualifiedName(schemaName, tableName)
}

// names normalizes a schema/table pair.
func (m *Methods) names(schemaName, tableName string) (string, string) {
	return m.d.NormalizeSchemaName(schemaName), m.d.NormalizeName(tableName)
}

func requireName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidArgument("%s name is required", kind)
	}
	return nil
}

// likePattern turns a wildcard filter or exact name into a LIKE pattern.
func likePattern(filter string) string {
	return naming.ToLikePattern(filter)
}

// sqlTypeFor resolves the SQL type of c, honoring provider overrides.
func (m *Methods) sqlTypeFor(c *schema.Column) (string, error) {
	if t, ok := c.ProviderType(m.d.Provider()); ok {
		return t, nil
	}
	d, ok := m.d.TypeMap().TryGetSQLType(c.TypeDescriptor())
	if !ok {
		return "", m.wrap("map type", c.String(), fmt.Errorf("%w: %s", ErrTypeNotMapped, c.HostType))
	}
	return d.SQLTypeName, nil
}

// keyColumns renders a key column list, with ASC/DESC when ordered is set.
func (m *Methods) keyColumns(cols []schema.OrderedColumn, ordered bool) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = m.d.QuoteIdentifier(c.ColumnName)
		if ordered && c.Order == schema.Descending {
			parts[i] += " DESC"
		}
	}
	return strings.Join(parts, ", ")
}

func (m *Methods) primaryKeyDefinition(pk *schema.PrimaryKeyConstraint, ordered bool) string {
	return fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", m.d.QuoteIdentifier(pk.ConstraintName), m.keyColumns(pk.Columns, ordered))
}

func (m *Methods) uniqueDefinition(uc *schema.UniqueConstraint, ordered bool) string {
	return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", m.d.QuoteIdentifier(uc.ConstraintName), m.keyColumns(uc.Columns, ordered))
}

func (m *Methods) checkDefinition(ck *schema.CheckConstraint) string {
	return fmt.Sprintf("CONSTRAINT %s CHECK (%s)", m.d.QuoteIdentifier(ck.ConstraintName), stripParens(ck.Expression))
}

func (m *Methods) foreignKeyDefinition(fk *schema.ForeignKeyConstraint) string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		m.d.QuoteIdentifier(fk.ConstraintName),
		m.keyColumns(fk.SourceColumns, false),
		m.table(fk.SchemaName, fk.ReferencedTableName),
		m.keyColumns(fk.ReferencedColumns, false),
		m.d.ReferentialAction(fk.OnDelete),
		m.d.ReferentialAction(fk.OnUpdate),
	)
}

// indexColumns renders index key columns; indexes always accept ASC/DESC.
func (m *Methods) indexColumns(ix *schema.Index) string {
	return m.keyColumns(ix.Columns, true)
}
