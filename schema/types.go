// Package schema is the provider neutral model of tables, columns,
// constraints, indexes and views.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/typemap"
)

// ErrInvalidArgument is returned when a required name or expression is missing.
var ErrInvalidArgument = errors.New("invalid argument")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// SortOrder is the direction of a key column.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// OrderedColumn is a column reference with a sort direction.
type OrderedColumn struct {
	ColumnName string
	Order      SortOrder
}

// Asc returns an ascending column reference.
func Asc(name string) OrderedColumn {
	return OrderedColumn{ColumnName: name, Order: Ascending}
}

// Desc returns a descending column reference.
func Desc(name string) OrderedColumn {
	return OrderedColumn{ColumnName: name, Order: Descending}
}

// Columns builds ascending references from names.
func Columns(names ...string) []OrderedColumn {
	out := make([]OrderedColumn, len(names))
	for i, n := range names {
		out[i] = Asc(n)
	}
	return out
}

// ParseOrderedColumn parses "name", "name asc" or "name desc".
func ParseOrderedColumn(s string) (OrderedColumn, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return Asc(naming.Normalize(fields[0])), nil
	case 2:
		switch strings.ToLower(fields[1]) {
		case "asc":
			return Asc(naming.Normalize(fields[0])), nil
		case "desc":
			return Desc(naming.Normalize(fields[0])), nil
		}
	}
	return OrderedColumn{}, invalid("cannot parse ordered column %q", s)
}

func (c OrderedColumn) String() string {
	if c.Order == Descending {
		return c.ColumnName + " DESC"
	}
	return c.ColumnName
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *OrderedColumn) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderedColumn(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c OrderedColumn) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ColumnNames returns the bare names of cols.
func ColumnNames(cols []OrderedColumn) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.ColumnName
	}
	return names
}

// ForeignKeyAction is the referential action of a foreign key.
type ForeignKeyAction int

const (
	NoAction ForeignKeyAction = iota
	Cascade
	Restrict
	SetNull
	SetDefault
)

// ParseForeignKeyAction accepts SQL spellings such as "SET NULL" or "set_null".
func ParseForeignKeyAction(s string) (ForeignKeyAction, error) {
	switch strings.ToUpper(strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '_' }), " ")) {
	case "", "NO ACTION", "NOACTION":
		return NoAction, nil
	case "CASCADE":
		return Cascade, nil
	case "RESTRICT":
		return Restrict, nil
	case "SET NULL", "SETNULL":
		return SetNull, nil
	case "SET DEFAULT", "SETDEFAULT":
		return SetDefault, nil
	}
	return NoAction, invalid("unknown foreign key action %q", s)
}

func (a ForeignKeyAction) String() string {
	switch a {
	case Cascade:
		return "CASCADE"
	case Restrict:
		return "RESTRICT"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	}
	return "NO ACTION"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ForeignKeyAction) UnmarshalText(b []byte) error {
	parsed, err := ParseForeignKeyAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a ForeignKeyAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Column is a table column.
type Column struct {
	SchemaName string
	TableName  string
	ColumnName string
	HostType   typemap.HostType
	// ProviderTypes overrides the mapped SQL type for specific providers.
	ProviderTypes map[provider.Type]string

	Length        *int
	Precision     *int
	Scale         *int
	IsUnicode     *bool
	IsFixedLength *bool

	IsNullable      bool
	IsPrimaryKey    bool
	IsAutoIncrement bool
	IsUnique        bool
	IsIndexed       bool
	IsForeignKey    bool

	CheckExpression   string
	DefaultExpression string

	ReferencedTableName  string
	ReferencedColumnName string
	OnDelete             ForeignKeyAction
	OnUpdate             ForeignKeyAction
}

// NewColumn creates a nullable column of the given host type.
func NewColumn(schemaName, tableName, columnName string, hostType typemap.HostType) (*Column, error) {
	c := &Column{
		SchemaName: schemaName,
		TableName:  tableName,
		ColumnName: columnName,
		HostType:   hostType,
		IsNullable: true,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks required names and foreign key targets.
func (c *Column) Validate() error {
	if strings.TrimSpace(c.TableName) == "" {
		return invalid("column %q has no table name", c.ColumnName)
	}
	if strings.TrimSpace(c.ColumnName) == "" {
		return invalid("column in table %q has no name", c.TableName)
	}
	if c.IsForeignKey && (c.ReferencedTableName == "" || c.ReferencedColumnName == "") {
		return invalid("foreign key column %q must name its referenced table and column", c.ColumnName)
	}
	return nil
}

// TypeDescriptor returns the host descriptor used to resolve the column's SQL type.
func (c *Column) TypeDescriptor() typemap.HostTypeDescriptor {
	return typemap.HostTypeDescriptor{
		Type:          c.HostType,
		Length:        c.Length,
		Precision:     c.Precision,
		Scale:         c.Scale,
		IsUnicode:     c.IsUnicode,
		IsFixedLength: c.IsFixedLength,
	}
}

// ProviderType returns the SQL type override for p, if any.
func (c *Column) ProviderType(p provider.Type) (string, bool) {
	t, ok := c.ProviderTypes[p]
	return t, ok && t != ""
}

// Clone returns a deep copy.
func (c *Column) Clone() *Column {
	cp := *c
	if c.ProviderTypes != nil {
		cp.ProviderTypes = make(map[provider.Type]string, len(c.ProviderTypes))
		for k, v := range c.ProviderTypes {
			cp.ProviderTypes[k] = v
		}
	}
	cp.Length = clonePtr(c.Length)
	cp.Precision = clonePtr(c.Precision)
	cp.Scale = clonePtr(c.Scale)
	cp.IsUnicode = clonePtr(c.IsUnicode)
	cp.IsFixedLength = clonePtr(c.IsFixedLength)
	return &cp
}

func (c *Column) String() string {
	return c.TableName + "." + c.ColumnName
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Index is a table index.
type Index struct {
	SchemaName string
	TableName  string
	IndexName  string
	Columns    []OrderedColumn
	IsUnique   bool
}

// NewIndex creates an index, validating names and columns.
func NewIndex(schemaName, tableName, indexName string, unique bool, columns ...OrderedColumn) (*Index, error) {
	if tableName == "" || indexName == "" {
		return nil, invalid("index requires a table name and an index name")
	}
	if len(columns) == 0 {
		return nil, invalid("index %q requires at least one column", indexName)
	}
	return &Index{
		SchemaName: schemaName,
		TableName:  tableName,
		IndexName:  indexName,
		Columns:    columns,
		IsUnique:   unique,
	}, nil
}

// Clone returns a deep copy.
func (i *Index) Clone() *Index {
	cp := *i
	cp.Columns = append([]OrderedColumn(nil), i.Columns...)
	return &cp
}

// View is a named query.
type View struct {
	SchemaName string
	ViewName   string
	Definition string
}

// NewView creates a view, validating the name and definition.
func NewView(schemaName, viewName, definition string) (*View, error) {
	if strings.TrimSpace(viewName) == "" {
		return nil, invalid("view requires a name")
	}
	if strings.TrimSpace(definition) == "" {
		return nil, invalid("view %q requires a definition", viewName)
	}
	return &View{SchemaName: schemaName, ViewName: viewName, Definition: definition}, nil
}
