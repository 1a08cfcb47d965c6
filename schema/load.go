package schema

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/typemap"
)

// Definition file layout.
type definitionFile struct {
	Tables []tableDef `yaml:"tables"`
	Views  []viewDef  `yaml:"views"`
}

type tableDef struct {
	Schema      string          `yaml:"schema"`
	Name        string          `yaml:"name"`
	Columns     []columnDef     `yaml:"columns"`
	PrimaryKey  *keyDef         `yaml:"primary_key"`
	Unique      []keyDef        `yaml:"unique"`
	Checks      []expressionDef `yaml:"checks"`
	Defaults    []expressionDef `yaml:"defaults"`
	ForeignKeys []foreignKeyDef `yaml:"foreign_keys"`
	Indexes     []indexDef      `yaml:"indexes"`
}

type columnDef struct {
	Name          string                   `yaml:"name"`
	Type          typemap.HostType         `yaml:"type"`
	ProviderTypes map[provider.Type]string `yaml:"provider_types"`
	Length        *int                     `yaml:"length"`
	Precision     *int                     `yaml:"precision"`
	Scale         *int                     `yaml:"scale"`
	Unicode       *bool                    `yaml:"unicode"`
	Fixed         *bool                    `yaml:"fixed"`
	Nullable      *bool                    `yaml:"nullable"`
	PrimaryKey    bool                     `yaml:"primary_key"`
	AutoIncrement bool                     `yaml:"auto_increment"`
	Unique        bool                     `yaml:"unique"`
	Indexed       bool                     `yaml:"indexed"`
	Check         string                   `yaml:"check"`
	Default       string                   `yaml:"default"`
	References    *referenceDef            `yaml:"references"`
}

type referenceDef struct {
	Table    string           `yaml:"table"`
	Column   string           `yaml:"column"`
	OnDelete ForeignKeyAction `yaml:"on_delete"`
	OnUpdate ForeignKeyAction `yaml:"on_update"`
}

type keyDef struct {
	Name    string          `yaml:"name"`
	Columns []OrderedColumn `yaml:"columns"`
}

type expressionDef struct {
	Name       string `yaml:"name"`
	Column     string `yaml:"column"`
	Expression string `yaml:"expression"`
}

type foreignKeyDef struct {
	Name       string           `yaml:"name"`
	Columns    []OrderedColumn  `yaml:"columns"`
	References string           `yaml:"references"`
	RefColumns []OrderedColumn  `yaml:"referenced_columns"`
	OnDelete   ForeignKeyAction `yaml:"on_delete"`
	OnUpdate   ForeignKeyAction `yaml:"on_update"`
}

type indexDef struct {
	Name    string          `yaml:"name"`
	Columns []OrderedColumn `yaml:"columns"`
	Unique  bool            `yaml:"unique"`
}

type viewDef struct {
	Schema     string `yaml:"schema"`
	Name       string `yaml:"name"`
	Definition string `yaml:"definition"`
}

// Definitions is the content of a definition file.
type Definitions struct {
	Tables []*Table
	Views  []*View
}

// Load reads table and view definitions from YAML. Constraints and indexes
// without a name receive a generated one.
func Load(r io.Reader) (*Definitions, error) {
	var file definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode definitions: %w", err)
	}

	defs := &Definitions{}
	for _, td := range file.Tables {
		t, err := td.build()
		if err != nil {
			return nil, err
		}
		defs.Tables = append(defs.Tables, t)
	}
	for _, vd := range file.Views {
		v, err := NewView(vd.Schema, vd.Name, vd.Definition)
		if err != nil {
			return nil, err
		}
		defs.Views = append(defs.Views, v)
	}
	return defs, nil
}

// LoadTables reads only the table definitions from YAML.
func LoadTables(r io.Reader) ([]*Table, error) {
	defs, err := Load(r)
	if err != nil {
		return nil, err
	}
	return defs.Tables, nil
}

func (td tableDef) build() (*Table, error) {
	var columns []*Column
	for _, cd := range td.Columns {
		c, err := cd.build(td.Schema, td.Name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}

	t, err := NewTable(td.Schema, td.Name, columns...)
	if err != nil {
		return nil, err
	}

	if td.PrimaryKey != nil {
		name := orDefault(td.PrimaryKey.Name, naming.PrimaryKeyName(td.Name))
		if t.PrimaryKey, err = NewPrimaryKeyConstraint(td.Schema, td.Name, name, td.PrimaryKey.Columns...); err != nil {
			return nil, err
		}
	}
	for _, u := range td.Unique {
		name := orDefault(u.Name, naming.UniqueName(td.Name, ColumnNames(u.Columns)...))
		uc, err := NewUniqueConstraint(td.Schema, td.Name, name, u.Columns...)
		if err != nil {
			return nil, err
		}
		t.UniqueConstraints = append(t.UniqueConstraints, uc)
	}
	for _, c := range td.Checks {
		name := orDefault(c.Name, naming.CheckName(td.Name, c.Column))
		ck, err := NewCheckConstraint(td.Schema, td.Name, c.Column, name, c.Expression)
		if err != nil {
			return nil, err
		}
		t.CheckConstraints = append(t.CheckConstraints, ck)
	}
	for _, d := range td.Defaults {
		name := orDefault(d.Name, naming.DefaultName(td.Name, d.Column))
		df, err := NewDefaultConstraint(td.Schema, td.Name, d.Column, name, d.Expression)
		if err != nil {
			return nil, err
		}
		t.DefaultConstraints = append(t.DefaultConstraints, df)
	}
	for _, f := range td.ForeignKeys {
		name := orDefault(f.Name, naming.ForeignKeyName(td.Name, ColumnNames(f.Columns), f.References, ColumnNames(f.RefColumns)))
		fk, err := NewForeignKeyConstraint(td.Schema, td.Name, name, f.Columns, f.References, f.RefColumns, f.OnDelete, f.OnUpdate)
		if err != nil {
			return nil, err
		}
		t.ForeignKeyConstraints = append(t.ForeignKeyConstraints, fk)
	}
	for _, i := range td.Indexes {
		name := orDefault(i.Name, naming.IndexName(td.Name, ColumnNames(i.Columns)...))
		ix, err := NewIndex(td.Schema, td.Name, name, i.Unique, i.Columns...)
		if err != nil {
			return nil, err
		}
		t.Indexes = append(t.Indexes, ix)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (cd columnDef) build(schemaName, tableName string) (*Column, error) {
	if cd.Type.IsZero() {
		return nil, invalid("column %q on table %q has no type", cd.Name, tableName)
	}
	c := &Column{
		SchemaName:        schemaName,
		TableName:         tableName,
		ColumnName:        cd.Name,
		HostType:          cd.Type,
		ProviderTypes:     cd.ProviderTypes,
		Length:            cd.Length,
		Precision:         cd.Precision,
		Scale:             cd.Scale,
		IsUnicode:         cd.Unicode,
		IsFixedLength:     cd.Fixed,
		IsNullable:        !cd.PrimaryKey,
		IsPrimaryKey:      cd.PrimaryKey,
		IsAutoIncrement:   cd.AutoIncrement,
		IsUnique:          cd.Unique,
		IsIndexed:         cd.Indexed,
		CheckExpression:   strings.TrimSpace(cd.Check),
		DefaultExpression: strings.TrimSpace(cd.Default),
	}
	if cd.Nullable != nil {
		c.IsNullable = *cd.Nullable
	}
	if cd.References != nil {
		c.IsForeignKey = true
		c.ReferencedTableName = cd.References.Table
		c.ReferencedColumnName = cd.References.Column
		c.OnDelete = cd.References.OnDelete
		c.OnUpdate = cd.References.OnUpdate
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
