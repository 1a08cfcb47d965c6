package db

import (
	"context"
	"errors"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/schema"
)

// DoesColumnExist reports whether the column exists.
func (m *Methods) DoesColumnExist(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	c, err := m.GetColumn(ctx, ex, schemaName, tableName, columnName)
	return c != nil, err
}

// GetColumnNames lists the column names of a table matching the wildcard filter.
func (m *Methods) GetColumnNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error) {
	cols, err := m.GetColumns(ctx, ex, schemaName, tableName, filter)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.ColumnName
	}
	return names, nil
}

// GetColumns introspects the columns of a table matching the wildcard filter.
func (m *Methods) GetColumns(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.Column, error) {
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return []*schema.Column{}, err
	}
	out := make([]*schema.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if naming.Matches(c.ColumnName, filter) {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetColumn introspects one column. It returns nil when the column does not exist.
func (m *Methods) GetColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.Column, error) {
	if err := requireName("column", columnName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return t.Column(m.d.NormalizeName(columnName)), nil
}

// CreateColumnIfNotExists adds the column with the constraints and index its
// flags imply. It returns false when the table is missing or the column exists.
func (m *Methods) CreateColumnIfNotExists(ctx context.Context, ex Executor, column *schema.Column) (bool, error) {
	if column == nil {
		return false, invalidArgument("column is required")
	}
	if err := column.Validate(); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, column.SchemaName, column.TableName)
	if err != nil || t == nil {
		return false, err
	}
	c := column.Clone()
	c.SchemaName, c.TableName = t.SchemaName, t.TableName
	c.ColumnName = m.d.NormalizeName(c.ColumnName)
	if t.Column(c.ColumnName) != nil {
		return false, nil
	}
	sqlType, err := m.sqlTypeFor(c)
	if err != nil {
		return false, err
	}

	var df *schema.DefaultConstraint
	if c.DefaultExpression != "" {
		df = &schema.DefaultConstraint{
			SchemaName:     t.SchemaName,
			TableName:      t.TableName,
			ColumnName:     c.ColumnName,
			ConstraintName: naming.Truncate(naming.DefaultName(t.TableName, c.ColumnName), m.d.MaxIdentifierLength()),
			Expression:     c.DefaultExpression,
		}
	}
	qualified := m.table(t.SchemaName, t.TableName)
	rebuilt, err := m.alterOrRebuild(ctx, ex, "add column", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.AddColumn(qualified, c, m.d.ColumnDefinition(c, sqlType, df, nil))
		},
		func(next *schema.Table) error {
			next.Columns = append(next.Columns, c.Clone())
			return nil
		})
	if err != nil || rebuilt {
		return err == nil, err
	}
	return true, m.createColumnConstraints(ctx, ex, t, c)
}

// createColumnConstraints realizes the constraints implied by the flags of a
// column just added to t.
func (m *Methods) createColumnConstraints(ctx context.Context, ex Executor, t *schema.Table, c *schema.Column) error {
	maxLen := m.d.MaxIdentifierLength()
	single := []schema.OrderedColumn{schema.Asc(c.ColumnName)}
	if c.IsPrimaryKey && t.PrimaryKey == nil {
		pk := &schema.PrimaryKeyConstraint{
			SchemaName:     t.SchemaName,
			TableName:      t.TableName,
			ConstraintName: naming.Truncate(naming.PrimaryKeyName(t.TableName), maxLen),
			Columns:        single,
		}
		if _, err := m.CreatePrimaryKeyConstraintIfNotExists(ctx, ex, pk); err != nil {
			return err
		}
	}
	if c.IsUnique && !c.IsPrimaryKey {
		uc := &schema.UniqueConstraint{
			SchemaName:     t.SchemaName,
			TableName:      t.TableName,
			ConstraintName: naming.Truncate(naming.UniqueName(t.TableName, c.ColumnName), maxLen),
			Columns:        single,
		}
		if _, err := m.CreateUniqueConstraintIfNotExists(ctx, ex, uc); err != nil {
			return err
		}
	}
	if c.CheckExpression != "" {
		ck := &schema.CheckConstraint{
			SchemaName:     t.SchemaName,
			TableName:      t.TableName,
			ColumnName:     c.ColumnName,
			ConstraintName: naming.Truncate(naming.CheckName(t.TableName, c.ColumnName), maxLen),
			Expression:     c.CheckExpression,
		}
		if _, err := m.CreateCheckConstraintIfNotExists(ctx, ex, ck); err != nil {
			return err
		}
	}
	if c.IsForeignKey {
		fk := &schema.ForeignKeyConstraint{
			SchemaName:          t.SchemaName,
			TableName:           t.TableName,
			ConstraintName:      naming.Truncate(naming.ForeignKeyName(t.TableName, []string{c.ColumnName}, c.ReferencedTableName, []string{c.ReferencedColumnName}), maxLen),
			SourceColumns:       single,
			ReferencedTableName: c.ReferencedTableName,
			ReferencedColumns:   []schema.OrderedColumn{schema.Asc(c.ReferencedColumnName)},
			OnDelete:            c.OnDelete,
			OnUpdate:            c.OnUpdate,
		}
		if _, err := m.CreateForeignKeyConstraintIfNotExists(ctx, ex, fk); err != nil {
			return err
		}
	}
	if c.IsIndexed && !c.IsPrimaryKey && !c.IsUnique {
		ix := &schema.Index{
			SchemaName: t.SchemaName,
			TableName:  t.TableName,
			IndexName:  naming.Truncate(naming.IndexName(t.TableName, c.ColumnName), maxLen),
			Columns:    single,
		}
		if _, err := m.CreateIndexIfNotExists(ctx, ex, ix); err != nil {
			return err
		}
	}
	return nil
}

// DropColumnIfExists drops the column together with the constraints and
// indexes that reference it.
func (m *Methods) DropColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	if err := requireName("column", columnName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	c := t.Column(m.d.NormalizeName(columnName))
	if c == nil {
		return false, nil
	}
	qualified := m.table(t.SchemaName, t.TableName)
	stmt, err := m.d.DropColumn(qualified, c.ColumnName)
	if errors.Is(err, errRebuildTable) {
		err = m.rebuild(ctx, ex, "drop column", t.SchemaName, t.TableName, func(next *schema.Table) error {
			removeColumn(next, c.ColumnName)
			return nil
		})
		return err == nil, err
	}
	if err != nil {
		return false, m.wrap("drop column", c.String(), err)
	}
	if err := m.dropColumnDependents(ctx, ex, t, c.ColumnName); err != nil {
		return false, err
	}
	if err := m.exec(ctx, ex, "drop column", c.String(), stmt); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Methods) dropColumnDependents(ctx context.Context, ex Executor, t *schema.Table, column string) error {
	for _, fk := range t.ForeignKeyConstraints {
		if containsColumn(fk.SourceColumns, column) {
			if _, err := m.DropForeignKeyConstraintIfExists(ctx, ex, t.SchemaName, t.TableName, fk.ConstraintName); err != nil {
				return err
			}
		}
	}
	for _, ix := range t.Indexes {
		if containsColumn(ix.Columns, column) {
			if _, err := m.DropIndexIfExists(ctx, ex, t.SchemaName, t.TableName, ix.IndexName); err != nil {
				return err
			}
		}
	}
	for _, uc := range t.UniqueConstraints {
		if containsColumn(uc.Columns, column) {
			if _, err := m.DropUniqueConstraintIfExists(ctx, ex, t.SchemaName, t.TableName, uc.ConstraintName); err != nil {
				return err
			}
		}
	}
	for _, ck := range t.CheckConstraints {
		if naming.EqualFold(ck.ColumnName, column) {
			if _, err := m.DropCheckConstraintIfExists(ctx, ex, t.SchemaName, t.TableName, ck.ConstraintName); err != nil {
				return err
			}
		}
	}
	if df := findDefaultOn(t.DefaultConstraints, column); df != nil {
		if _, err := m.DropDefaultConstraintIfExists(ctx, ex, t.SchemaName, t.TableName, df.ConstraintName); err != nil {
			return err
		}
	}
	if t.PrimaryKey != nil && containsColumn(t.PrimaryKey.Columns, column) {
		if _, err := m.DropPrimaryKeyConstraintIfExists(ctx, ex, t.SchemaName, t.TableName); err != nil {
			return err
		}
	}
	return nil
}

// RenameColumnIfExists renames the column. It returns false when the column
// is missing or the new name is taken.
func (m *Methods) RenameColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName, newColumnName string) (bool, error) {
	if err := requireName("column", columnName); err != nil {
		return false, err
	}
	if err := requireName("new column", newColumnName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	c := t.Column(m.d.NormalizeName(columnName))
	newColumnName = m.d.NormalizeName(newColumnName)
	if c == nil || t.Column(newColumnName) != nil {
		return false, nil
	}
	stmt, err := m.d.RenameColumn(m.table(t.SchemaName, t.TableName), c.ColumnName, newColumnName)
	if err != nil {
		return false, m.wrap("rename column", c.String(), err)
	}
	if err := m.exec(ctx, ex, "rename column", c.String(), stmt); err != nil {
		return false, err
	}
	return true, nil
}

// removeColumn deletes a column and everything that references it from t.
func removeColumn(t *schema.Table, column string) {
	cols := t.Columns[:0]
	for _, c := range t.Columns {
		if !naming.EqualFold(c.ColumnName, column) {
			cols = append(cols, c)
		}
	}
	t.Columns = cols
	if t.PrimaryKey != nil && containsColumn(t.PrimaryKey.Columns, column) {
		t.PrimaryKey = nil
		for _, c := range t.Columns {
			c.IsPrimaryKey = false
		}
	}
	uniques := t.UniqueConstraints[:0]
	for _, uc := range t.UniqueConstraints {
		if !containsColumn(uc.Columns, column) {
			uniques = append(uniques, uc)
		}
	}
	t.UniqueConstraints = uniques
	checks := t.CheckConstraints[:0]
	for _, ck := range t.CheckConstraints {
		if !naming.EqualFold(ck.ColumnName, column) {
			checks = append(checks, ck)
		}
	}
	t.CheckConstraints = checks
	defaults := t.DefaultConstraints[:0]
	for _, df := range t.DefaultConstraints {
		if !naming.EqualFold(df.ColumnName, column) {
			defaults = append(defaults, df)
		}
	}
	t.DefaultConstraints = defaults
	fks := t.ForeignKeyConstraints[:0]
	for _, fk := range t.ForeignKeyConstraints {
		if !containsColumn(fk.SourceColumns, column) {
			fks = append(fks, fk)
		}
	}
	t.ForeignKeyConstraints = fks
	indexes := t.Indexes[:0]
	for _, ix := range t.Indexes {
		if !containsColumn(ix.Columns, column) {
			indexes = append(indexes, ix)
		}
	}
	t.Indexes = indexes
}
