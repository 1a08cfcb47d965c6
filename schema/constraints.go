package schema

import "strings"

// ConstraintType discriminates constraint variants.
type ConstraintType int

const (
	PrimaryKey ConstraintType = iota
	ForeignKey
	Unique
	Check
	Default
)

func (t ConstraintType) String() string {
	switch t {
	case PrimaryKey:
		return "primary key"
	case ForeignKey:
		return "foreign key"
	case Unique:
		return "unique"
	case Check:
		return "check"
	case Default:
		return "default"
	}
	return "unknown"
}

// Constraint is implemented by every constraint variant.
type Constraint interface {
	Name() string
	Type() ConstraintType
}

// PrimaryKeyConstraint is a table's primary key.
type PrimaryKeyConstraint struct {
	SchemaName     string
	TableName      string
	ConstraintName string
	Columns        []OrderedColumn
}

// NewPrimaryKeyConstraint validates and creates a primary key.
func NewPrimaryKeyConstraint(schemaName, tableName, constraintName string, columns ...OrderedColumn) (*PrimaryKeyConstraint, error) {
	if err := requireNames("primary key", tableName, constraintName); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, invalid("primary key %q requires at least one column", constraintName)
	}
	return &PrimaryKeyConstraint{SchemaName: schemaName, TableName: tableName, ConstraintName: constraintName, Columns: columns}, nil
}

func (c *PrimaryKeyConstraint) Name() string         { return c.ConstraintName }
func (c *PrimaryKeyConstraint) Type() ConstraintType { return PrimaryKey }

// Clone returns a deep copy.
func (c *PrimaryKeyConstraint) Clone() *PrimaryKeyConstraint {
	cp := *c
	cp.Columns = append([]OrderedColumn(nil), c.Columns...)
	return &cp
}

// UniqueConstraint is a named unique key.
type UniqueConstraint struct {
	SchemaName     string
	TableName      string
	ConstraintName string
	Columns        []OrderedColumn
}

// NewUniqueConstraint validates and creates a unique constraint.
func NewUniqueConstraint(schemaName, tableName, constraintName string, columns ...OrderedColumn) (*UniqueConstraint, error) {
	if err := requireNames("unique constraint", tableName, constraintName); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, invalid("unique constraint %q requires at least one column", constraintName)
	}
	return &UniqueConstraint{SchemaName: schemaName, TableName: tableName, ConstraintName: constraintName, Columns: columns}, nil
}

func (c *UniqueConstraint) Name() string         { return c.ConstraintName }
func (c *UniqueConstraint) Type() ConstraintType { return Unique }

// Clone returns a deep copy.
func (c *UniqueConstraint) Clone() *UniqueConstraint {
	cp := *c
	cp.Columns = append([]OrderedColumn(nil), c.Columns...)
	return &cp
}

// CheckConstraint is a check expression, optionally scoped to one column.
type CheckConstraint struct {
	SchemaName     string
	TableName      string
	ColumnName     string
	ConstraintName string
	Expression     string
}

// NewCheckConstraint validates and creates a check constraint.
func NewCheckConstraint(schemaName, tableName, columnName, constraintName, expression string) (*CheckConstraint, error) {
	if err := requireNames("check constraint", tableName, constraintName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(expression) == "" {
		return nil, invalid("check constraint %q requires an expression", constraintName)
	}
	return &CheckConstraint{SchemaName: schemaName, TableName: tableName, ColumnName: columnName, ConstraintName: constraintName, Expression: expression}, nil
}

func (c *CheckConstraint) Name() string         { return c.ConstraintName }
func (c *CheckConstraint) Type() ConstraintType { return Check }

// Clone returns a copy.
func (c *CheckConstraint) Clone() *CheckConstraint {
	cp := *c
	return &cp
}

// DefaultConstraint is a column default.
type DefaultConstraint struct {
	SchemaName     string
	TableName      string
	ColumnName     string
	ConstraintName string
	Expression     string
}

// NewDefaultConstraint validates and creates a default constraint.
func NewDefaultConstraint(schemaName, tableName, columnName, constraintName, expression string) (*DefaultConstraint, error) {
	if err := requireNames("default constraint", tableName, constraintName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(columnName) == "" {
		return nil, invalid("default constraint %q requires a column", constraintName)
	}
	if strings.TrimSpace(expression) == "" {
		return nil, invalid("default constraint %q requires an expression", constraintName)
	}
	return &DefaultConstraint{SchemaName: schemaName, TableName: tableName, ColumnName: columnName, ConstraintName: constraintName, Expression: expression}, nil
}

func (c *DefaultConstraint) Name() string         { return c.ConstraintName }
func (c *DefaultConstraint) Type() ConstraintType { return Default }

// Clone returns a copy.
func (c *DefaultConstraint) Clone() *DefaultConstraint {
	cp := *c
	return &cp
}

// ForeignKeyConstraint links source columns to columns of a referenced table.
type ForeignKeyConstraint struct {
	SchemaName          string
	TableName           string
	ConstraintName      string
	SourceColumns       []OrderedColumn
	ReferencedTableName string
	ReferencedColumns   []OrderedColumn
	OnDelete            ForeignKeyAction
	OnUpdate            ForeignKeyAction
}

// NewForeignKeyConstraint validates and creates a foreign key.
func NewForeignKeyConstraint(schemaName, tableName, constraintName string, sourceColumns []OrderedColumn, referencedTableName string, referencedColumns []OrderedColumn, onDelete, onUpdate ForeignKeyAction) (*ForeignKeyConstraint, error) {
	if err := requireNames("foreign key", tableName, constraintName); err != nil {
		return nil, err
	}
	if referencedTableName == "" {
		return nil, invalid("foreign key %q requires a referenced table", constraintName)
	}
	if len(sourceColumns) == 0 || len(sourceColumns) != len(referencedColumns) {
		return nil, invalid("foreign key %q requires matching source and referenced columns", constraintName)
	}
	return &ForeignKeyConstraint{
		SchemaName:          schemaName,
		TableName:           tableName,
		ConstraintName:      constraintName,
		SourceColumns:       sourceColumns,
		ReferencedTableName: referencedTableName,
		ReferencedColumns:   referencedColumns,
		OnDelete:            onDelete,
		OnUpdate:            onUpdate,
	}, nil
}

func (c *ForeignKeyConstraint) Name() string         { return c.ConstraintName }
func (c *ForeignKeyConstraint) Type() ConstraintType { return ForeignKey }

// Clone returns a deep copy.
func (c *ForeignKeyConstraint) Clone() *ForeignKeyConstraint {
	cp := *c
	cp.SourceColumns = append([]OrderedColumn(nil), c.SourceColumns...)
	cp.ReferencedColumns = append([]OrderedColumn(nil), c.ReferencedColumns...)
	return &cp
}

func requireNames(kind, tableName, constraintName string) error {
	if strings.TrimSpace(tableName) == "" {
		return invalid("%s %q has no table name", kind, constraintName)
	}
	if strings.TrimSpace(constraintName) == "" {
		return invalid("%s on table %q has no name", kind, tableName)
	}
	return nil
}
