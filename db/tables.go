package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/schema"
)

// DoesTableExist reports whether the table exists.
func (m *Methods) DoesTableExist(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error) {
	_, name, err := m.resolveTable(ctx, ex, schemaName, tableName)
	return name != "", err
}

// resolveTable returns the normalized schema and the catalog spelling of the
// table, or an empty name when it does not exist. Lookups ignore case, so DDL
// must quote the catalog spelling on servers with case sensitive names.
func (m *Methods) resolveTable(ctx context.Context, ex Executor, schemaName, tableName string) (string, string, error) {
	if err := requireName("table", tableName); err != nil {
		return "", "", err
	}
	schemaName, tableName = m.names(schemaName, tableName)
	names, err := m.d.TableNames(ctx, ex, schemaName, naming.EscapeLike(tableName))
	if err != nil {
		return "", "", m.wrap("check table", tableName, err)
	}
	for _, n := range names {
		if naming.EqualFold(n, tableName) {
			return schemaName, n, nil
		}
	}
	return schemaName, "", nil
}

// GetTableNames lists table names matching the wildcard filter.
func (m *Methods) GetTableNames(ctx context.Context, ex Executor, schemaName, filter string) ([]string, error) {
	schemaName = m.d.NormalizeSchemaName(schemaName)
	names, err := m.d.TableNames(ctx, ex, schemaName, likePattern(filter))
	if err != nil {
		return nil, m.wrap("get table names", schemaName, err)
	}
	return naming.Filter(names, filter), nil
}

// GetTables introspects the tables matching the wildcard filter.
func (m *Methods) GetTables(ctx context.Context, ex Executor, schemaName, filter string) ([]*schema.Table, error) {
	schemaName = m.d.NormalizeSchemaName(schemaName)
	tables, err := m.readTables(ctx, ex, schemaName, likePattern(filter))
	if err != nil {
		return nil, err
	}
	out := tables[:0]
	for _, t := range tables {
		if naming.Matches(t.TableName, filter) {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetTable introspects one table. It returns nil when the table does not exist.
func (m *Methods) GetTable(ctx context.Context, ex Executor, schemaName, tableName string) (*schema.Table, error) {
	if err := requireName("table", tableName); err != nil {
		return nil, err
	}
	schemaName, tableName = m.names(schemaName, tableName)
	tables, err := m.readTables(ctx, ex, schemaName, naming.EscapeLike(tableName))
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if naming.EqualFold(t.TableName, tableName) {
			return t, nil
		}
	}
	return nil, nil
}

// CreateTableIfNotExists creates the table with its constraints and indexes.
// The input is never modified.
func (m *Methods) CreateTableIfNotExists(ctx context.Context, ex Executor, table *schema.Table) (bool, error) {
	if table == nil {
		return false, invalidArgument("table is required")
	}
	if err := table.Validate(); err != nil {
		return false, err
	}
	exists, err := m.DoesTableExist(ctx, ex, table.SchemaName, table.TableName)
	if err != nil || exists {
		return false, err
	}
	caps, err := m.capabilities(ctx, ex)
	if err != nil {
		return false, err
	}
	t := m.prepareTable(table)
	stmts, err := m.createTableStatements(t, t.TableName, caps)
	if err != nil {
		return false, err
	}
	if err := m.exec(ctx, ex, "create table", t.TableName, stmts...); err != nil {
		return false, err
	}
	return true, nil
}

// DropTableIfExists drops the table.
func (m *Methods) DropTableIfExists(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error) {
	schemaName, name, err := m.resolveTable(ctx, ex, schemaName, tableName)
	if err != nil || name == "" {
		return false, err
	}
	if err := m.exec(ctx, ex, "drop table", name, "DROP TABLE "+m.table(schemaName, name)); err != nil {
		return false, err
	}
	return true, nil
}

// RenameTableIfExists renames the table. It returns false when the table is
// missing or the new name is taken.
func (m *Methods) RenameTableIfExists(ctx context.Context, ex Executor, schemaName, tableName, newTableName string) (bool, error) {
	if err := requireName("new table", newTableName); err != nil {
		return false, err
	}
	schemaName, name, err := m.resolveTable(ctx, ex, schemaName, tableName)
	if err != nil || name == "" {
		return false, err
	}
	taken, err := m.DoesTableExist(ctx, ex, schemaName, newTableName)
	if err != nil || taken {
		return false, err
	}
	stmt, err := m.d.RenameTable(m.table(schemaName, name), m.d.NormalizeName(newTableName))
	if err != nil {
		return false, m.wrap("rename table", name, err)
	}
	if err := m.exec(ctx, ex, "rename table", name, stmt); err != nil {
		return false, err
	}
	return true, nil
}

// TruncateTableIfExists deletes every row of the table.
func (m *Methods) TruncateTableIfExists(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error) {
	schemaName, name, err := m.resolveTable(ctx, ex, schemaName, tableName)
	if err != nil || name == "" {
		return false, err
	}
	if err := m.exec(ctx, ex, "truncate table", name, m.d.TruncateTable(m.table(schemaName, name))); err != nil {
		return false, err
	}
	return true, nil
}

// capabilities holds the version dependent features of a live server.
type capabilities struct {
	orderedKeys bool
	checks      bool
}

func (m *Methods) capabilities(ctx context.Context, ex Executor) (capabilities, error) {
	raw, err := m.d.ServerVersion(ctx, ex)
	if err != nil {
		return capabilities{}, m.wrap("get database version", "", err)
	}
	return capabilities{
		orderedKeys: m.d.SupportsOrderedKeysInConstraints(raw),
		checks:      m.d.SupportsCheckConstraints(raw),
	}, nil
}

// createTableStatements renders CREATE TABLE under name followed by its indexes.
func (m *Methods) createTableStatements(t *schema.Table, name string, caps capabilities) ([]string, error) {
	inline := m.d.InlinePrimaryKey(t)
	defaults := make(map[string]*schema.DefaultConstraint, len(t.DefaultConstraints))
	for _, d := range t.DefaultConstraints {
		defaults[strings.ToLower(d.ColumnName)] = d
	}

	var lines []string
	for _, c := range t.Columns {
		sqlType, err := m.sqlTypeFor(c)
		if err != nil {
			return nil, err
		}
		var pk *schema.PrimaryKeyConstraint
		if inline != nil && naming.EqualFold(inline.Columns[0].ColumnName, c.ColumnName) {
			pk = inline
		}
		lines = append(lines, m.d.ColumnDefinition(c, sqlType, defaults[strings.ToLower(c.ColumnName)], pk))
	}
	if t.PrimaryKey != nil && inline == nil {
		lines = append(lines, m.primaryKeyDefinition(t.PrimaryKey, caps.orderedKeys))
	}
	for _, uc := range t.UniqueConstraints {
		lines = append(lines, m.uniqueDefinition(uc, caps.orderedKeys))
	}
	if caps.checks {
		for _, ck := range t.CheckConstraints {
			lines = append(lines, m.checkDefinition(ck))
		}
	}
	for _, fk := range t.ForeignKeyConstraints {
		lines = append(lines, m.foreignKeyDefinition(fk))
	}

	qualified := m.table(t.SchemaName, name)
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", qualified, strings.Join(lines, ",\n  "))}
	for _, ix := range t.Indexes {
		stmt, err := m.d.CreateIndex(qualified, ix, m.indexColumns(ix))
		if err != nil {
			return nil, m.wrap("create index", ix.IndexName, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// prepareTable returns a normalized copy of t with the constraints implied by
// column flags made explicit and every generated name filled in.
func (m *Methods) prepareTable(in *schema.Table) *schema.Table {
	t := in.Clone()
	norm := m.d.NormalizeName
	t.SetSchemaName(m.d.NormalizeSchemaName(t.SchemaName))
	t.SetTableName(norm(t.TableName))
	for _, c := range t.Columns {
		c.ColumnName = norm(c.ColumnName)
		if c.ReferencedTableName != "" {
			c.ReferencedTableName = norm(c.ReferencedTableName)
			c.ReferencedColumnName = norm(c.ReferencedColumnName)
		}
	}
	normCols := func(cols []schema.OrderedColumn) {
		for i := range cols {
			cols[i].ColumnName = norm(cols[i].ColumnName)
		}
	}
	maxLen := m.d.MaxIdentifierLength()
	name := func(given, generated string) string {
		if given != "" {
			return norm(given)
		}
		return naming.Truncate(generated, maxLen)
	}

	if t.PrimaryKey == nil {
		var cols []schema.OrderedColumn
		for _, c := range t.Columns {
			if c.IsPrimaryKey {
				cols = append(cols, schema.Asc(c.ColumnName))
			}
		}
		if len(cols) > 0 {
			t.PrimaryKey = &schema.PrimaryKeyConstraint{SchemaName: t.SchemaName, TableName: t.TableName, Columns: cols}
		}
	}
	if t.PrimaryKey != nil {
		normCols(t.PrimaryKey.Columns)
		t.PrimaryKey.ConstraintName = name(t.PrimaryKey.ConstraintName, naming.PrimaryKeyName(t.TableName))
		for _, pc := range t.PrimaryKey.Columns {
			if c := t.Column(pc.ColumnName); c != nil {
				c.IsPrimaryKey = true
				c.IsNullable = false
			}
		}
	}

	for _, c := range t.Columns {
		single := []schema.OrderedColumn{schema.Asc(c.ColumnName)}
		if c.IsUnique && !isSinglePrimaryKey(t, c.ColumnName) && !hasUniqueOn(t, c.ColumnName) {
			t.UniqueConstraints = append(t.UniqueConstraints, &schema.UniqueConstraint{
				SchemaName: t.SchemaName, TableName: t.TableName, Columns: single,
			})
		}
		if c.CheckExpression != "" && findCheckOn(t.CheckConstraints, c.ColumnName) == nil {
			t.CheckConstraints = append(t.CheckConstraints, &schema.CheckConstraint{
				SchemaName: t.SchemaName, TableName: t.TableName, ColumnName: c.ColumnName, Expression: c.CheckExpression,
			})
		}
		if c.DefaultExpression != "" && findDefaultOn(t.DefaultConstraints, c.ColumnName) == nil {
			t.DefaultConstraints = append(t.DefaultConstraints, &schema.DefaultConstraint{
				SchemaName: t.SchemaName, TableName: t.TableName, ColumnName: c.ColumnName, Expression: c.DefaultExpression,
			})
		}
		if c.IsForeignKey && findForeignKeyOn(t.ForeignKeyConstraints, c.ColumnName) == nil {
			t.ForeignKeyConstraints = append(t.ForeignKeyConstraints, &schema.ForeignKeyConstraint{
				SchemaName:          t.SchemaName,
				TableName:           t.TableName,
				SourceColumns:       single,
				ReferencedTableName: c.ReferencedTableName,
				ReferencedColumns:   []schema.OrderedColumn{schema.Asc(c.ReferencedColumnName)},
				OnDelete:            c.OnDelete,
				OnUpdate:            c.OnUpdate,
			})
		}
		if c.IsIndexed && !c.IsPrimaryKey && !hasUniqueOn(t, c.ColumnName) && len(findIndexesOn(t.Indexes, c.ColumnName)) == 0 {
			t.Indexes = append(t.Indexes, &schema.Index{
				SchemaName: t.SchemaName, TableName: t.TableName, Columns: single,
			})
		}
	}

	for _, uc := range t.UniqueConstraints {
		normCols(uc.Columns)
		uc.ConstraintName = name(uc.ConstraintName, naming.UniqueName(t.TableName, schema.ColumnNames(uc.Columns)...))
	}
	for _, ck := range t.CheckConstraints {
		ck.ColumnName = norm(ck.ColumnName)
		ck.ConstraintName = name(ck.ConstraintName, naming.CheckName(t.TableName, ck.ColumnName))
	}
	for _, df := range t.DefaultConstraints {
		df.ColumnName = norm(df.ColumnName)
		df.ConstraintName = name(df.ConstraintName, naming.DefaultName(t.TableName, df.ColumnName))
	}
	for _, fk := range t.ForeignKeyConstraints {
		normCols(fk.SourceColumns)
		normCols(fk.ReferencedColumns)
		fk.ReferencedTableName = norm(fk.ReferencedTableName)
		fk.ConstraintName = name(fk.ConstraintName, naming.ForeignKeyName(t.TableName,
			schema.ColumnNames(fk.SourceColumns), fk.ReferencedTableName, schema.ColumnNames(fk.ReferencedColumns)))
	}
	for _, ix := range t.Indexes {
		normCols(ix.Columns)
		ix.IndexName = name(ix.IndexName, naming.IndexName(t.TableName, schema.ColumnNames(ix.Columns)...))
	}
	return t
}

func isSinglePrimaryKey(t *schema.Table, column string) bool {
	return t.PrimaryKey != nil && len(t.PrimaryKey.Columns) == 1 && naming.EqualFold(t.PrimaryKey.Columns[0].ColumnName, column)
}

// hasUniqueOn reports whether a single column unique constraint or unique index covers column.
func hasUniqueOn(t *schema.Table, column string) bool {
	for _, uc := range t.UniqueConstraints {
		if len(uc.Columns) == 1 && naming.EqualFold(uc.Columns[0].ColumnName, column) {
			return true
		}
	}
	for _, ix := range t.Indexes {
		if ix.IsUnique && len(ix.Columns) == 1 && naming.EqualFold(ix.Columns[0].ColumnName, column) {
			return true
		}
	}
	return false
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if naming.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func containsColumn(cols []schema.OrderedColumn, column string) bool {
	for _, c := range cols {
		if naming.EqualFold(c.ColumnName, column) {
			return true
		}
	}
	return false
}

func findCheckOn(checks []*schema.CheckConstraint, column string) *schema.CheckConstraint {
	for _, ck := range checks {
		if ck.ColumnName != "" && naming.EqualFold(ck.ColumnName, column) {
			return ck
		}
	}
	return nil
}

func findDefaultOn(defaults []*schema.DefaultConstraint, column string) *schema.DefaultConstraint {
	for _, df := range defaults {
		if naming.EqualFold(df.ColumnName, column) {
			return df
		}
	}
	return nil
}

func findForeignKeyOn(fks []*schema.ForeignKeyConstraint, column string) *schema.ForeignKeyConstraint {
	for _, fk := range fks {
		if containsColumn(fk.SourceColumns, column) {
			return fk
		}
	}
	return nil
}

func findIndexesOn(indexes []*schema.Index, column string) []*schema.Index {
	var out []*schema.Index
	for _, ix := range indexes {
		if containsColumn(ix.Columns, column) {
			out = append(out, ix)
		}
	}
	return out
}
