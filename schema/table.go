package schema

import (
	"strings"

	"github.com/tordrt/dmschema/internal/naming"
)

// Table is a table and every object it owns.
type Table struct {
	SchemaName            string
	TableName             string
	Columns               []*Column
	PrimaryKey            *PrimaryKeyConstraint
	CheckConstraints      []*CheckConstraint
	DefaultConstraints    []*DefaultConstraint
	UniqueConstraints     []*UniqueConstraint
	ForeignKeyConstraints []*ForeignKeyConstraint
	Indexes               []*Index
}

// NewTable creates a table owning columns. Columns without a table name are
// attached to the new table.
func NewTable(schemaName, tableName string, columns ...*Column) (*Table, error) {
	if strings.TrimSpace(tableName) == "" {
		return nil, invalid("table requires a name")
	}
	t := &Table{SchemaName: schemaName, TableName: tableName}
	for _, c := range columns {
		if c.TableName == "" {
			c.TableName = tableName
		}
		if c.SchemaName == "" {
			c.SchemaName = schemaName
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		t.Columns = append(t.Columns, c)
	}
	return t, nil
}

func (t *Table) String() string {
	if t.SchemaName == "" {
		return t.TableName
	}
	return t.SchemaName + "." + t.TableName
}

// Column finds a column by name, ignoring case.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if naming.EqualFold(c.ColumnName, name) {
			return c
		}
	}
	return nil
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.ColumnName
	}
	return names
}

// Validate checks names and that every constraint and index references existing columns.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.TableName) == "" {
		return invalid("table requires a name")
	}
	if len(t.Columns) == 0 {
		return invalid("table %q requires at least one column", t.TableName)
	}
	for _, c := range t.Columns {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	check := func(owner string, cols []OrderedColumn) error {
		for _, c := range cols {
			if !t.HasColumn(c.ColumnName) {
				return invalid("%s references unknown column %q on table %q", owner, c.ColumnName, t.TableName)
			}
		}
		return nil
	}
	if t.PrimaryKey != nil {
		if err := check(t.PrimaryKey.ConstraintName, t.PrimaryKey.Columns); err != nil {
			return err
		}
	}
	for _, u := range t.UniqueConstraints {
		if err := check(u.ConstraintName, u.Columns); err != nil {
			return err
		}
	}
	for _, fk := range t.ForeignKeyConstraints {
		if err := check(fk.ConstraintName, fk.SourceColumns); err != nil {
			return err
		}
	}
	for _, ix := range t.Indexes {
		if err := check(ix.IndexName, ix.Columns); err != nil {
			return err
		}
	}
	for _, d := range t.DefaultConstraints {
		if err := check(d.ConstraintName, []OrderedColumn{Asc(d.ColumnName)}); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the table and its children.
func (t *Table) Clone() *Table {
	cp := &Table{SchemaName: t.SchemaName, TableName: t.TableName}
	for _, c := range t.Columns {
		cp.Columns = append(cp.Columns, c.Clone())
	}
	if t.PrimaryKey != nil {
		cp.PrimaryKey = t.PrimaryKey.Clone()
	}
	for _, c := range t.CheckConstraints {
		cp.CheckConstraints = append(cp.CheckConstraints, c.Clone())
	}
	for _, c := range t.DefaultConstraints {
		cp.DefaultConstraints = append(cp.DefaultConstraints, c.Clone())
	}
	for _, c := range t.UniqueConstraints {
		cp.UniqueConstraints = append(cp.UniqueConstraints, c.Clone())
	}
	for _, c := range t.ForeignKeyConstraints {
		cp.ForeignKeyConstraints = append(cp.ForeignKeyConstraints, c.Clone())
	}
	for _, ix := range t.Indexes {
		cp.Indexes = append(cp.Indexes, ix.Clone())
	}
	return cp
}

// Constraints returns every constraint of the table.
func (t *Table) Constraints() []Constraint {
	var out []Constraint
	if t.PrimaryKey != nil {
		out = append(out, t.PrimaryKey)
	}
	for _, c := range t.CheckConstraints {
		out = append(out, c)
	}
	for _, c := range t.DefaultConstraints {
		out = append(out, c)
	}
	for _, c := range t.UniqueConstraints {
		out = append(out, c)
	}
	for _, c := range t.ForeignKeyConstraints {
		out = append(out, c)
	}
	return out
}

// SetSchemaName sets the schema on the table and its children.
func (t *Table) SetSchemaName(schemaName string) {
	t.SchemaName = schemaName
	for _, c := range t.Columns {
		c.SchemaName = schemaName
	}
	if t.PrimaryKey != nil {
		t.PrimaryKey.SchemaName = schemaName
	}
	for _, c := range t.CheckConstraints {
		c.SchemaName = schemaName
	}
	for _, c := range t.DefaultConstraints {
		c.SchemaName = schemaName
	}
	for _, c := range t.UniqueConstraints {
		c.SchemaName = schemaName
	}
	for _, c := range t.ForeignKeyConstraints {
		c.SchemaName = schemaName
	}
	for _, ix := range t.Indexes {
		ix.SchemaName = schemaName
	}
}

// SetTableName renames the table in memory, updating its children.
func (t *Table) SetTableName(tableName string) {
	t.TableName = tableName
	for _, c := range t.Columns {
		c.TableName = tableName
	}
	if t.PrimaryKey != nil {
		t.PrimaryKey.TableName = tableName
	}
	for _, c := range t.CheckConstraints {
		c.TableName = tableName
	}
	for _, c := range t.DefaultConstraints {
		c.TableName = tableName
	}
	for _, c := range t.UniqueConstraints {
		c.TableName = tableName
	}
	for _, c := range t.ForeignKeyConstraints {
		c.TableName = tableName
	}
	for _, ix := range t.Indexes {
		ix.TableName = tableName
	}
}
