package db

import (
	"context"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/schema"
)

// DoesPrimaryKeyConstraintExist reports whether the table has a primary key.
func (m *Methods) DoesPrimaryKeyConstraintExist(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error) {
	pk, err := m.GetPrimaryKeyConstraint(ctx, ex, schemaName, tableName)
	return pk != nil, err
}

// GetPrimaryKeyConstraint returns the table's primary key, or nil.
func (m *Methods) GetPrimaryKeyConstraint(ctx context.Context, ex Executor, schemaName, tableName string) (*schema.PrimaryKeyConstraint, error) {
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return t.PrimaryKey, nil
}

// CreatePrimaryKeyConstraintIfNotExists adds a primary key to a table that has none.
func (m *Methods) CreatePrimaryKeyConstraintIfNotExists(ctx context.Context, ex Executor, pk *schema.PrimaryKeyConstraint) (bool, error) {
	if pk == nil {
		return false, invalidArgument("primary key is required")
	}
	if err := requireColumns("primary key", pk.Columns); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, pk.SchemaName, pk.TableName)
	if err != nil || t == nil || t.PrimaryKey != nil {
		return false, err
	}
	caps, err := m.capabilities(ctx, ex)
	if err != nil {
		return false, err
	}
	pk = &schema.PrimaryKeyConstraint{
		SchemaName:     t.SchemaName,
		TableName:      t.TableName,
		ConstraintName: m.constraintName(pk.ConstraintName, naming.PrimaryKeyName(t.TableName)),
		Columns:        m.normalizeColumns(pk.Columns),
	}
	_, err = m.alterOrRebuild(ctx, ex, "create primary key", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.AddConstraint(m.table(t.SchemaName, t.TableName), m.primaryKeyDefinition(pk, caps.orderedKeys))
		},
		func(next *schema.Table) error {
			next.PrimaryKey = pk.Clone()
			return nil
		})
	return err == nil, err
}

// DropPrimaryKeyConstraintIfExists drops the table's primary key.
func (m *Methods) DropPrimaryKeyConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName string) (bool, error) {
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil || t.PrimaryKey == nil {
		return false, err
	}
	_, err = m.alterOrRebuild(ctx, ex, "drop primary key", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.DropPrimaryKey(m.table(t.SchemaName, t.TableName), t.PrimaryKey.ConstraintName)
		},
		func(next *schema.Table) error {
			next.PrimaryKey = nil
			for _, c := range next.Columns {
				c.IsPrimaryKey = false
			}
			return nil
		})
	return err == nil, err
}

// DoesUniqueConstraintExist reports whether the named unique constraint exists.
func (m *Methods) DoesUniqueConstraintExist(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error) {
	uc, err := m.GetUniqueConstraint(ctx, ex, schemaName, tableName, constraintName)
	return uc != nil, err
}

// DoesUniqueConstraintExistOnColumn reports whether a unique constraint covers the column.
func (m *Methods) DoesUniqueConstraintExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	uc, err := m.GetUniqueConstraintOnColumn(ctx, ex, schemaName, tableName, columnName)
	return uc != nil, err
}

// GetUniqueConstraintNames lists unique constraint names matching the wildcard filter.
func (m *Methods) GetUniqueConstraintNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error) {
	ucs, err := m.GetUniqueConstraints(ctx, ex, schemaName, tableName, filter)
	return constraintNames(ucs), err
}

// GetUniqueConstraints returns unique constraints matching the wildcard filter.
func (m *Methods) GetUniqueConstraints(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.UniqueConstraint, error) {
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return []*schema.UniqueConstraint{}, err
	}
	return filterConstraints(t.UniqueConstraints, filter), nil
}

// GetUniqueConstraint returns the named unique constraint, or nil.
func (m *Methods) GetUniqueConstraint(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (*schema.UniqueConstraint, error) {
	if err := requireName("constraint", constraintName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return findConstraint(t.UniqueConstraints, constraintName), nil
}

// GetUniqueConstraintOnColumn returns the first unique constraint covering the column, or nil.
func (m *Methods) GetUniqueConstraintOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.UniqueConstraint, error) {
	if err := requireName("column", columnName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	for _, uc := range t.UniqueConstraints {
		if containsColumn(uc.Columns, columnName) {
			return uc, nil
		}
	}
	return nil, nil
}

// CreateUniqueConstraintIfNotExists adds the unique constraint.
func (m *Methods) CreateUniqueConstraintIfNotExists(ctx context.Context, ex Executor, uc *schema.UniqueConstraint) (bool, error) {
	if uc == nil {
		return false, invalidArgument("unique constraint is required")
	}
	if err := requireColumns("unique constraint", uc.Columns); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, uc.SchemaName, uc.TableName)
	if err != nil || t == nil {
		return false, err
	}
	cols := m.normalizeColumns(uc.Columns)
	uc = &schema.UniqueConstraint{
		SchemaName:     t.SchemaName,
		TableName:      t.TableName,
		ConstraintName: m.constraintName(uc.ConstraintName, naming.UniqueName(t.TableName, schema.ColumnNames(cols)...)),
		Columns:        cols,
	}
	if findConstraint(t.UniqueConstraints, uc.ConstraintName) != nil {
		return false, nil
	}
	caps, err := m.capabilities(ctx, ex)
	if err != nil {
		return false, err
	}
	_, err = m.alterOrRebuild(ctx, ex, "create unique constraint", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.AddConstraint(m.table(t.SchemaName, t.TableName), m.uniqueDefinition(uc, caps.orderedKeys))
		},
		func(next *schema.Table) error {
			next.UniqueConstraints = append(next.UniqueConstraints, uc.Clone())
			return nil
		})
	return err == nil, err
}

// DropUniqueConstraintIfExists drops the named unique constraint.
func (m *Methods) DropUniqueConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error) {
	if err := requireName("constraint", constraintName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	uc := findConstraint(t.UniqueConstraints, constraintName)
	if uc == nil {
		return false, nil
	}
	return m.dropUnique(ctx, ex, t, uc)
}

// DropUniqueConstraintOnColumnIfExists drops every unique constraint covering the column.
func (m *Methods) DropUniqueConstraintOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	if err := requireName("column", columnName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	dropped := false
	for _, uc := range t.UniqueConstraints {
		if !containsColumn(uc.Columns, columnName) {
			continue
		}
		if _, err := m.dropUnique(ctx, ex, t, uc); err != nil {
			return dropped, err
		}
		dropped = true
	}
	return dropped, nil
}

func (m *Methods) dropUnique(ctx context.Context, ex Executor, t *schema.Table, uc *schema.UniqueConstraint) (bool, error) {
	_, err := m.alterOrRebuild(ctx, ex, "drop unique constraint", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.DropUnique(m.table(t.SchemaName, t.TableName), uc.ConstraintName)
		},
		func(next *schema.Table) error {
			next.UniqueConstraints = removeConstraint(next.UniqueConstraints, uc.ConstraintName)
			if len(uc.Columns) == 1 {
				if c := next.Column(uc.Columns[0].ColumnName); c != nil {
					c.IsUnique = hasUniqueOn(next, c.ColumnName)
				}
			}
			return nil
		})
	return err == nil, err
}

// DoesCheckConstraintExist reports whether the named check constraint exists.
func (m *Methods) DoesCheckConstraintExist(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error) {
	ck, err := m.GetCheckConstraint(ctx, ex, schemaName, tableName, constraintName)
	return ck != nil, err
}

// DoesCheckConstraintExistOnColumn reports whether a check constraint is scoped to the column.
func (m *Methods) DoesCheckConstraintExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	ck, err := m.GetCheckConstraintOnColumn(ctx, ex, schemaName, tableName, columnName)
	return ck != nil, err
}

// GetCheckConstraintNames lists check constraint names matching the wildcard filter.
func (m *Methods) GetCheckConstraintNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error) {
	cks, err := m.GetCheckConstraints(ctx, ex, schemaName, tableName, filter)
	return constraintNames(cks), err
}

// GetCheckConstraints returns check constraints matching the wildcard filter.
func (m *Methods) GetCheckConstraints(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.CheckConstraint, error) {
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return []*schema.CheckConstraint{}, err
	}
	return filterConstraints(t.CheckConstraints, filter), nil
}

// GetCheckConstraint returns the named check constraint, or nil.
func (m *Methods) GetCheckConstraint(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (*schema.CheckConstraint, error) {
	if err := requireName("constraint", constraintName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return findConstraint(t.CheckConstraints, constraintName), nil
}

// GetCheckConstraintOnColumn returns the check constraint scoped to the column, or nil.
func (m *Methods) GetCheckConstraintOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.CheckConstraint, error) {
	if err := requireName("column", columnName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return findCheckOn(t.CheckConstraints, columnName), nil
}

// CreateCheckConstraintIfNotExists adds the check constraint. Servers that do
// not enforce checks report false.
func (m *Methods) CreateCheckConstraintIfNotExists(ctx context.Context, ex Executor, ck *schema.CheckConstraint) (bool, error) {
	if ck == nil {
		return false, invalidArgument("check constraint is required")
	}
	if err := requireName("check expression", ck.Expression); err != nil {
		return false, err
	}
	caps, err := m.capabilities(ctx, ex)
	if err != nil || !caps.checks {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, ck.SchemaName, ck.TableName)
	if err != nil || t == nil {
		return false, err
	}
	column := ""
	if ck.ColumnName != "" {
		column = m.d.NormalizeName(ck.ColumnName)
	}
	ck = &schema.CheckConstraint{
		SchemaName:     t.SchemaName,
		TableName:      t.TableName,
		ColumnName:     column,
		ConstraintName: m.constraintName(ck.ConstraintName, naming.CheckName(t.TableName, column)),
		Expression:     ck.Expression,
	}
	if findConstraint(t.CheckConstraints, ck.ConstraintName) != nil {
		return false, nil
	}
	_, err = m.alterOrRebuild(ctx, ex, "create check constraint", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.AddConstraint(m.table(t.SchemaName, t.TableName), m.checkDefinition(ck))
		},
		func(next *schema.Table) error {
			next.CheckConstraints = append(next.CheckConstraints, ck.Clone())
			return nil
		})
	return err == nil, err
}

// DropCheckConstraintIfExists drops the named check constraint.
func (m *Methods) DropCheckConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error) {
	if err := requireName("constraint", constraintName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	ck := findConstraint(t.CheckConstraints, constraintName)
	if ck == nil {
		return false, nil
	}
	return m.dropCheck(ctx, ex, t, ck)
}

// DropCheckConstraintOnColumnIfExists drops the check constraint scoped to the column.
func (m *Methods) DropCheckConstraintOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	if err := requireName("column", columnName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	ck := findCheckOn(t.CheckConstraints, columnName)
	if ck == nil {
		return false, nil
	}
	return m.dropCheck(ctx, ex, t, ck)
}

func (m *Methods) dropCheck(ctx context.Context, ex Executor, t *schema.Table, ck *schema.CheckConstraint) (bool, error) {
	_, err := m.alterOrRebuild(ctx, ex, "drop check constraint", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.DropCheck(m.table(t.SchemaName, t.TableName), ck.ConstraintName)
		},
		func(next *schema.Table) error {
			next.CheckConstraints = removeConstraint(next.CheckConstraints, ck.ConstraintName)
			if c := next.Column(ck.ColumnName); c != nil && ck.ColumnName != "" {
				c.CheckExpression = ""
			}
			return nil
		})
	return err == nil, err
}

// DoesDefaultConstraintExist reports whether the named default constraint exists.
func (m *Methods) DoesDefaultConstraintExist(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error) {
	df, err := m.GetDefaultConstraint(ctx, ex, schemaName, tableName, constraintName)
	return df != nil, err
}

// DoesDefaultConstraintExistOnColumn reports whether the column has a default.
func (m *Methods) DoesDefaultConstraintExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	df, err := m.GetDefaultConstraintOnColumn(ctx, ex, schemaName, tableName, columnName)
	return df != nil, err
}

// GetDefaultConstraintNames lists default constraint names matching the wildcard filter.
func (m *Methods) GetDefaultConstraintNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error) {
	dfs, err := m.GetDefaultConstraints(ctx, ex, schemaName, tableName, filter)
	return constraintNames(dfs), err
}

// GetDefaultConstraints returns default constraints matching the wildcard filter.
func (m *Methods) GetDefaultConstraints(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.DefaultConstraint, error) {
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return []*schema.DefaultConstraint{}, err
	}
	return filterConstraints(t.DefaultConstraints, filter), nil
}

// GetDefaultConstraint returns the named default constraint, or nil.
func (m *Methods) GetDefaultConstraint(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (*schema.DefaultConstraint, error) {
	if err := requireName("constraint", constraintName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return findConstraint(t.DefaultConstraints, constraintName), nil
}

// GetDefaultConstraintOnColumn returns the default of the column, or nil.
func (m *Methods) GetDefaultConstraintOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.DefaultConstraint, error) {
	if err := requireName("column", columnName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return findDefaultOn(t.DefaultConstraints, columnName), nil
}

// CreateDefaultConstraintIfNotExists sets a column default. It returns false
// when the name is taken or the column already has a default.
func (m *Methods) CreateDefaultConstraintIfNotExists(ctx context.Context, ex Executor, df *schema.DefaultConstraint) (bool, error) {
	if df == nil {
		return false, invalidArgument("default constraint is required")
	}
	if err := requireName("column", df.ColumnName); err != nil {
		return false, err
	}
	if err := requireName("default expression", df.Expression); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, df.SchemaName, df.TableName)
	if err != nil || t == nil {
		return false, err
	}
	column := m.d.NormalizeName(df.ColumnName)
	df = &schema.DefaultConstraint{
		SchemaName:     t.SchemaName,
		TableName:      t.TableName,
		ColumnName:     column,
		ConstraintName: m.constraintName(df.ConstraintName, naming.DefaultName(t.TableName, column)),
		Expression:     df.Expression,
	}
	if t.Column(column) == nil {
		return false, m.wrap("create default constraint", df.ConstraintName, invalidArgument("column %q does not exist", column))
	}
	if findConstraint(t.DefaultConstraints, df.ConstraintName) != nil || findDefaultOn(t.DefaultConstraints, column) != nil {
		return false, nil
	}
	_, err = m.alterOrRebuild(ctx, ex, "create default constraint", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.AddDefault(m.table(t.SchemaName, t.TableName), df)
		},
		func(next *schema.Table) error {
			next.DefaultConstraints = append(next.DefaultConstraints, df.Clone())
			if c := next.Column(column); c != nil {
				c.DefaultExpression = df.Expression
			}
			return nil
		})
	return err == nil, err
}

// DropDefaultConstraintIfExists drops the named default constraint.
func (m *Methods) DropDefaultConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error) {
	if err := requireName("constraint", constraintName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	df := findConstraint(t.DefaultConstraints, constraintName)
	if df == nil {
		return false, nil
	}
	return m.dropDefault(ctx, ex, t, df)
}

// DropDefaultConstraintOnColumnIfExists drops the default of the column.
func (m *Methods) DropDefaultConstraintOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	if err := requireName("column", columnName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	df := findDefaultOn(t.DefaultConstraints, columnName)
	if df == nil {
		return false, nil
	}
	return m.dropDefault(ctx, ex, t, df)
}

func (m *Methods) dropDefault(ctx context.Context, ex Executor, t *schema.Table, df *schema.DefaultConstraint) (bool, error) {
	_, err := m.alterOrRebuild(ctx, ex, "drop default constraint", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.DropDefault(m.table(t.SchemaName, t.TableName), df.ColumnName, df.ConstraintName)
		},
		func(next *schema.Table) error {
			next.DefaultConstraints = removeConstraint(next.DefaultConstraints, df.ConstraintName)
			if c := next.Column(df.ColumnName); c != nil {
				c.DefaultExpression = ""
			}
			return nil
		})
	return err == nil, err
}

// DoesForeignKeyConstraintExist reports whether the named foreign key exists.
func (m *Methods) DoesForeignKeyConstraintExist(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error) {
	fk, err := m.GetForeignKeyConstraint(ctx, ex, schemaName, tableName, constraintName)
	return fk != nil, err
}

// DoesForeignKeyConstraintExistOnColumn reports whether a foreign key uses the column.
func (m *Methods) DoesForeignKeyConstraintExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	fk, err := m.GetForeignKeyConstraintOnColumn(ctx, ex, schemaName, tableName, columnName)
	return fk != nil, err
}

// GetForeignKeyConstraintNames lists foreign key names matching the wildcard filter.
func (m *Methods) GetForeignKeyConstraintNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error) {
	fks, err := m.GetForeignKeyConstraints(ctx, ex, schemaName, tableName, filter)
	return constraintNames(fks), err
}

// GetForeignKeyConstraints returns foreign keys matching the wildcard filter.
func (m *Methods) GetForeignKeyConstraints(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.ForeignKeyConstraint, error) {
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return []*schema.ForeignKeyConstraint{}, err
	}
	return filterConstraints(t.ForeignKeyConstraints, filter), nil
}

// GetForeignKeyConstraint returns the named foreign key, or nil.
func (m *Methods) GetForeignKeyConstraint(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (*schema.ForeignKeyConstraint, error) {
	if err := requireName("constraint", constraintName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return findConstraint(t.ForeignKeyConstraints, constraintName), nil
}

// GetForeignKeyConstraintOnColumn returns the first foreign key using the column, or nil.
func (m *Methods) GetForeignKeyConstraintOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (*schema.ForeignKeyConstraint, error) {
	if err := requireName("column", columnName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return findForeignKeyOn(t.ForeignKeyConstraints, columnName), nil
}

// CreateForeignKeyConstraintIfNotExists adds the foreign key.
func (m *Methods) CreateForeignKeyConstraintIfNotExists(ctx context.Context, ex Executor, fk *schema.ForeignKeyConstraint) (bool, error) {
	if fk == nil {
		return false, invalidArgument("foreign key is required")
	}
	if err := requireColumns("foreign key", fk.SourceColumns); err != nil {
		return false, err
	}
	if err := requireName("referenced table", fk.ReferencedTableName); err != nil {
		return false, err
	}
	if len(fk.SourceColumns) != len(fk.ReferencedColumns) {
		return false, invalidArgument("foreign key %q must reference as many columns as it has", fk.ConstraintName)
	}
	t, err := m.GetTable(ctx, ex, fk.SchemaName, fk.TableName)
	if err != nil || t == nil {
		return false, err
	}
	src := m.normalizeColumns(fk.SourceColumns)
	ref := m.normalizeColumns(fk.ReferencedColumns)
	refTable := m.d.NormalizeName(fk.ReferencedTableName)
	fk = &schema.ForeignKeyConstraint{
		SchemaName:          t.SchemaName,
		TableName:           t.TableName,
		ConstraintName:      m.constraintName(fk.ConstraintName, naming.ForeignKeyName(t.TableName, schema.ColumnNames(src), refTable, schema.ColumnNames(ref))),
		SourceColumns:       src,
		ReferencedTableName: refTable,
		ReferencedColumns:   ref,
		OnDelete:            fk.OnDelete,
		OnUpdate:            fk.OnUpdate,
	}
	if findConstraint(t.ForeignKeyConstraints, fk.ConstraintName) != nil {
		return false, nil
	}
	_, err = m.alterOrRebuild(ctx, ex, "create foreign key", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.AddConstraint(m.table(t.SchemaName, t.TableName), m.foreignKeyDefinition(fk))
		},
		func(next *schema.Table) error {
			next.ForeignKeyConstraints = append(next.ForeignKeyConstraints, fk.Clone())
			return nil
		})
	return err == nil, err
}

// DropForeignKeyConstraintIfExists drops the named foreign key.
func (m *Methods) DropForeignKeyConstraintIfExists(ctx context.Context, ex Executor, schemaName, tableName, constraintName string) (bool, error) {
	if err := requireName("constraint", constraintName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	fk := findConstraint(t.ForeignKeyConstraints, constraintName)
	if fk == nil {
		return false, nil
	}
	return m.dropForeignKey(ctx, ex, t, fk)
}

// DropForeignKeyConstraintOnColumnIfExists drops every foreign key using the column.
func (m *Methods) DropForeignKeyConstraintOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	if err := requireName("column", columnName); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return false, err
	}
	dropped := false
	for _, fk := range t.ForeignKeyConstraints {
		if !containsColumn(fk.SourceColumns, columnName) {
			continue
		}
		if _, err := m.dropForeignKey(ctx, ex, t, fk); err != nil {
			return dropped, err
		}
		dropped = true
	}
	return dropped, nil
}

func (m *Methods) dropForeignKey(ctx context.Context, ex Executor, t *schema.Table, fk *schema.ForeignKeyConstraint) (bool, error) {
	_, err := m.alterOrRebuild(ctx, ex, "drop foreign key", t.SchemaName, t.TableName,
		func() (string, error) {
			return m.d.DropForeignKey(m.table(t.SchemaName, t.TableName), fk.ConstraintName)
		},
		func(next *schema.Table) error {
			next.ForeignKeyConstraints = removeConstraint(next.ForeignKeyConstraints, fk.ConstraintName)
			for _, sc := range fk.SourceColumns {
				if c := next.Column(sc.ColumnName); c != nil && findForeignKeyOn(next.ForeignKeyConstraints, c.ColumnName) == nil {
					c.IsForeignKey = false
					c.ReferencedTableName = ""
					c.ReferencedColumnName = ""
				}
			}
			return nil
		})
	return err == nil, err
}

// constraintName normalizes a given name or truncates a generated one.
func (m *Methods) constraintName(given, generated string) string {
	if given != "" {
		return m.d.NormalizeName(given)
	}
	return naming.Truncate(generated, m.d.MaxIdentifierLength())
}

func (m *Methods) normalizeColumns(cols []schema.OrderedColumn) []schema.OrderedColumn {
	out := make([]schema.OrderedColumn, len(cols))
	for i, c := range cols {
		out[i] = schema.OrderedColumn{ColumnName: m.d.NormalizeName(c.ColumnName), Order: c.Order}
	}
	return out
}

func requireColumns(kind string, cols []schema.OrderedColumn) error {
	if len(cols) == 0 {
		return invalidArgument("%s requires at least one column", kind)
	}
	for _, c := range cols {
		if err := requireName("column", c.ColumnName); err != nil {
			return err
		}
	}
	return nil
}

func findConstraint[T schema.Constraint](items []T, name string) T {
	for _, c := range items {
		if naming.EqualFold(c.Name(), name) {
			return c
		}
	}
	var zero T
	return zero
}

func filterConstraints[T schema.Constraint](items []T, filter string) []T {
	out := make([]T, 0, len(items))
	for _, c := range items {
		if naming.Matches(c.Name(), filter) {
			out = append(out, c)
		}
	}
	return out
}

func removeConstraint[T schema.Constraint](items []T, name string) []T {
	out := items[:0]
	for _, c := range items {
		if !naming.EqualFold(c.Name(), name) {
			out = append(out, c)
		}
	}
	return out
}

func constraintNames[T schema.Constraint](items []T) []string {
	names := make([]string, len(items))
	for i, c := range items {
		names[i] = c.Name()
	}
	return names
}
