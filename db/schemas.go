package db

import (
	"context"

	"github.com/tordrt/dmschema/internal/naming"
)

// DoesSchemaExist reports whether the schema exists. Providers without
// schemas always report false.
func (m *Methods) DoesSchemaExist(ctx context.Context, ex Executor, schemaName string) (bool, error) {
	if !m.d.SupportsSchemas() {
		return false, nil
	}
	if err := requireName("schema", schemaName); err != nil {
		return false, err
	}
	schemaName = m.d.NormalizeSchemaName(schemaName)
	names, err := m.d.SchemaNames(ctx, ex, naming.EscapeLike(schemaName))
	if err != nil {
		return false, m.wrap("check schema", schemaName, err)
	}
	return containsName(names, schemaName), nil
}

// CreateSchemaIfNotExists creates the schema.
func (m *Methods) CreateSchemaIfNotExists(ctx context.Context, ex Executor, schemaName string) (bool, error) {
	if !m.d.SupportsSchemas() {
		return false, nil
	}
	exists, err := m.DoesSchemaExist(ctx, ex, schemaName)
	if err != nil || exists {
		return false, err
	}
	schemaName = m.d.NormalizeSchemaName(schemaName)
	stmt, err := m.d.CreateSchema(schemaName)
	if err != nil {
		return false, m.wrap("create schema", schemaName, err)
	}
	if err := m.exec(ctx, ex, "create schema", schemaName, stmt); err != nil {
		return false, err
	}
	return true, nil
}

// GetSchemaNames lists schema names matching the wildcard filter.
func (m *Methods) GetSchemaNames(ctx context.Context, ex Executor, filter string) ([]string, error) {
	if !m.d.SupportsSchemas() {
		return []string{}, nil
	}
	names, err := m.d.SchemaNames(ctx, ex, likePattern(filter))
	if err != nil {
		return nil, m.wrap("get schema names", filter, err)
	}
	return naming.Filter(names, filter), nil
}

// DropSchemaIfExists drops the schema.
func (m *Methods) DropSchemaIfExists(ctx context.Context, ex Executor, schemaName string) (bool, error) {
	if !m.d.SupportsSchemas() {
		return false, nil
	}
	exists, err := m.DoesSchemaExist(ctx, ex, schemaName)
	if err != nil || !exists {
		return false, err
	}
	schemaName = m.d.NormalizeSchemaName(schemaName)
	stmt, err := m.d.DropSchema(schemaName)
	if err != nil {
		return false, m.wrap("drop schema", schemaName, err)
	}
	if err := m.exec(ctx, ex, "drop schema", schemaName, stmt); err != nil {
		return false, err
	}
	return true, nil
}
