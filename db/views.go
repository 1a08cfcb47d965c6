package db

import (
	"context"
	"strings"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/schema"
)

// DoesViewExist reports whether the view exists.
func (m *Methods) DoesViewExist(ctx context.Context, ex Executor, schemaName, viewName string) (bool, error) {
	v, err := m.GetView(ctx, ex, schemaName, viewName)
	return v != nil, err
}

// GetViewNames lists view names matching the wildcard filter.
func (m *Methods) GetViewNames(ctx context.Context, ex Executor, schemaName, filter string) ([]string, error) {
	views, err := m.GetViews(ctx, ex, schemaName, filter)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.ViewName
	}
	return names, nil
}

// GetViews introspects the views matching the wildcard filter.
func (m *Methods) GetViews(ctx context.Context, ex Executor, schemaName, filter string) ([]*schema.View, error) {
	schemaName = m.d.NormalizeSchemaName(schemaName)
	views, err := m.d.Views(ctx, ex, schemaName, likePattern(filter))
	if err != nil {
		return nil, m.wrap("get views", schemaName, err)
	}
	out := make([]*schema.View, 0, len(views))
	for _, v := range views {
		if naming.Matches(v.ViewName, filter) {
			out = append(out, v)
		}
	}
	return out, nil
}

// GetView introspects one view. It returns nil when the view does not exist.
func (m *Methods) GetView(ctx context.Context, ex Executor, schemaName, viewName string) (*schema.View, error) {
	if err := requireName("view", viewName); err != nil {
		return nil, err
	}
	schemaName, viewName = m.names(schemaName, viewName)
	views, err := m.d.Views(ctx, ex, schemaName, naming.EscapeLike(viewName))
	if err != nil {
		return nil, m.wrap("get view", viewName, err)
	}
	for _, v := range views {
		if naming.EqualFold(v.ViewName, viewName) {
			return v, nil
		}
	}
	return nil, nil
}

// CreateViewIfNotExists creates the view.
func (m *Methods) CreateViewIfNotExists(ctx context.Context, ex Executor, view *schema.View) (bool, error) {
	if view == nil {
		return false, invalidArgument("view is required")
	}
	if err := requireName("view definition", view.Definition); err != nil {
		return false, err
	}
	exists, err := m.DoesViewExist(ctx, ex, view.SchemaName, view.ViewName)
	if err != nil || exists {
		return false, err
	}
	schemaName, viewName := m.names(view.SchemaName, view.ViewName)
	def := strings.TrimSuffix(strings.TrimSpace(view.Definition), ";")
	if err := m.exec(ctx, ex, "create view", viewName, m.d.CreateView(m.table(schemaName, viewName), def)); err != nil {
		return false, err
	}
	return true, nil
}

// DropViewIfExists drops the view.
func (m *Methods) DropViewIfExists(ctx context.Context, ex Executor, schemaName, viewName string) (bool, error) {
	v, err := m.GetView(ctx, ex, schemaName, viewName)
	if err != nil || v == nil {
		return false, err
	}
	if err := m.exec(ctx, ex, "drop view", v.ViewName, m.d.DropView(m.table(v.SchemaName, v.ViewName))); err != nil {
		return false, err
	}
	return true, nil
}

// RenameViewIfExists recreates the view under a new name. It returns false
// when the view is missing or the new name is taken.
func (m *Methods) RenameViewIfExists(ctx context.Context, ex Executor, schemaName, viewName, newViewName string) (bool, error) {
	if err := requireName("new view", newViewName); err != nil {
		return false, err
	}
	v, err := m.GetView(ctx, ex, schemaName, viewName)
	if err != nil || v == nil {
		return false, err
	}
	taken, err := m.DoesViewExist(ctx, ex, schemaName, newViewName)
	if err != nil || taken {
		return false, err
	}
	newViewName = m.d.NormalizeName(newViewName)
	if err := m.exec(ctx, ex, "rename view", v.ViewName,
		m.d.DropView(m.table(v.SchemaName, v.ViewName)),
		m.d.CreateView(m.table(v.SchemaName, newViewName), v.Definition),
	); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateViewIfExists replaces the definition of an existing view.
func (m *Methods) UpdateViewIfExists(ctx context.Context, ex Executor, schemaName, viewName, definition string) (bool, error) {
	if err := requireName("view definition", definition); err != nil {
		return false, err
	}
	v, err := m.GetView(ctx, ex, schemaName, viewName)
	if err != nil || v == nil {
		return false, err
	}
	def := strings.TrimSuffix(strings.TrimSpace(definition), ";")
	if err := m.exec(ctx, ex, "update view", v.ViewName,
		m.d.DropView(m.table(v.SchemaName, v.ViewName)),
		m.d.CreateView(m.table(v.SchemaName, v.ViewName), def),
	); err != nil {
		return false, err
	}
	return true, nil
}
