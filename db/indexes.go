package db

import (
	"context"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/schema"
)

// DoesIndexExist reports whether the named index exists.
func (m *Methods) DoesIndexExist(ctx context.Context, ex Executor, schemaName, tableName, indexName string) (bool, error) {
	ix, err := m.GetIndex(ctx, ex, schemaName, tableName, indexName)
	return ix != nil, err
}

// DoesIndexExistOnColumn reports whether any index includes the column.
func (m *Methods) DoesIndexExistOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	ixs, err := m.GetIndexesOnColumn(ctx, ex, schemaName, tableName, columnName)
	return len(ixs) > 0, err
}

// GetIndexNames lists index names matching the wildcard filter.
func (m *Methods) GetIndexNames(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]string, error) {
	ixs, err := m.GetIndexes(ctx, ex, schemaName, tableName, filter)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ixs))
	for i, ix := range ixs {
		names[i] = ix.IndexName
	}
	return names, nil
}

// GetIndexes returns the indexes of a table matching the wildcard filter.
// Indexes backing primary key and unique constraints are not included.
func (m *Methods) GetIndexes(ctx context.Context, ex Executor, schemaName, tableName, filter string) ([]*schema.Index, error) {
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return []*schema.Index{}, err
	}
	out := make([]*schema.Index, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		if naming.Matches(ix.IndexName, filter) {
			out = append(out, ix)
		}
	}
	return out, nil
}

// GetIndex returns the named index, or nil.
func (m *Methods) GetIndex(ctx context.Context, ex Executor, schemaName, tableName, indexName string) (*schema.Index, error) {
	if err := requireName("index", indexName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return nil, err
	}
	return findIndex(t.Indexes, indexName), nil
}

// GetIndexesOnColumn returns every index that includes the column.
func (m *Methods) GetIndexesOnColumn(ctx context.Context, ex Executor, schemaName, tableName, columnName string) ([]*schema.Index, error) {
	if err := requireName("column", columnName); err != nil {
		return nil, err
	}
	t, err := m.GetTable(ctx, ex, schemaName, tableName)
	if err != nil || t == nil {
		return []*schema.Index{}, err
	}
	ixs := findIndexesOn(t.Indexes, columnName)
	if ixs == nil {
		ixs = []*schema.Index{}
	}
	return ixs, nil
}

// CreateIndexIfNotExists creates the index.
func (m *Methods) CreateIndexIfNotExists(ctx context.Context, ex Executor, index *schema.Index) (bool, error) {
	if index == nil {
		return false, invalidArgument("index is required")
	}
	if err := requireColumns("index", index.Columns); err != nil {
		return false, err
	}
	t, err := m.GetTable(ctx, ex, index.SchemaName, index.TableName)
	if err != nil || t == nil {
		return false, err
	}
	cols := m.normalizeColumns(index.Columns)
	ix := &schema.Index{
		SchemaName: t.SchemaName,
		TableName:  t.TableName,
		IndexName:  m.constraintName(index.IndexName, naming.IndexName(t.TableName, schema.ColumnNames(cols)...)),
		Columns:    cols,
		IsUnique:   index.IsUnique,
	}
	if findIndex(t.Indexes, ix.IndexName) != nil {
		return false, nil
	}
	stmt, err := m.d.CreateIndex(m.table(t.SchemaName, t.TableName), ix, m.indexColumns(ix))
	if err != nil {
		return false, m.wrap("create index", ix.IndexName, err)
	}
	if err := m.exec(ctx, ex, "create index", ix.IndexName, stmt); err != nil {
		return false, err
	}
	return true, nil
}

// DropIndexIfExists drops the named index.
func (m *Methods) DropIndexIfExists(ctx context.Context, ex Executor, schemaName, tableName, indexName string) (bool, error) {
	ix, err := m.GetIndex(ctx, ex, schemaName, tableName, indexName)
	if err != nil || ix == nil {
		return false, err
	}
	return m.dropIndex(ctx, ex, ix)
}

// DropIndexesOnColumnIfExists drops every index that includes the column.
func (m *Methods) DropIndexesOnColumnIfExists(ctx context.Context, ex Executor, schemaName, tableName, columnName string) (bool, error) {
	ixs, err := m.GetIndexesOnColumn(ctx, ex, schemaName, tableName, columnName)
	if err != nil {
		return false, err
	}
	for _, ix := range ixs {
		if _, err := m.dropIndex(ctx, ex, ix); err != nil {
			return false, err
		}
	}
	return len(ixs) > 0, nil
}

func (m *Methods) dropIndex(ctx context.Context, ex Executor, ix *schema.Index) (bool, error) {
	stmt, err := m.d.DropIndex(ix.SchemaName, m.table(ix.SchemaName, ix.TableName), ix.IndexName)
	if err != nil {
		return false, m.wrap("drop index", ix.IndexName, err)
	}
	if err := m.exec(ctx, ex, "drop index", ix.IndexName, stmt); err != nil {
		return false, err
	}
	return true, nil
}

func findIndex(indexes []*schema.Index, name string) *schema.Index {
	for _, ix := range indexes {
		if naming.EqualFold(ix.IndexName, name) {
			return ix
		}
	}
	return nil
}
