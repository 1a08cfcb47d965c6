package db

import (
	"context"
	"sort"

	"github.com/tordrt/dmschema/schema"
)

// TableAlteration batches changes to one table. AlterTable applies them in a
// fixed order regardless of how the fields are filled in.
type TableAlteration struct {
	SchemaName string
	TableName  string

	NewTableName  string
	RenameColumns map[string]string

	DropPrimaryKey            bool
	DropColumns               []string
	DropCheckConstraints      []string
	DropDefaultConstraints    []string
	DropUniqueConstraints     []string
	DropForeignKeyConstraints []string
	DropIndexes               []string

	AddColumns               []*schema.Column
	AddPrimaryKey            *schema.PrimaryKeyConstraint
	AddCheckConstraints      []*schema.CheckConstraint
	AddDefaultConstraints    []*schema.DefaultConstraint
	AddUniqueConstraints     []*schema.UniqueConstraint
	AddForeignKeyConstraints []*schema.ForeignKeyConstraint
	AddIndexes               []*schema.Index
}

type alterOp int

const (
	opDropForeignKey alterOp = iota
	opDropIndex
	opDropUnique
	opDropCheck
	opDropDefault
	opDropPrimaryKey
	opDropColumn
	opRenameTable
	opRenameColumn
	opAddColumn
	opAddPrimaryKey
	opAddUnique
	opAddCheck
	opAddDefault
	opAddIndex
	opAddForeignKey
)

func (o alterOp) String() string {
	switch o {
	case opDropForeignKey:
		return "drop foreign key"
	case opDropIndex:
		return "drop index"
	case opDropUnique:
		return "drop unique constraint"
	case opDropCheck:
		return "drop check constraint"
	case opDropDefault:
		return "drop default constraint"
	case opDropPrimaryKey:
		return "drop primary key"
	case opDropColumn:
		return "drop column"
	case opRenameTable:
		return "rename table"
	case opRenameColumn:
		return "rename column"
	case opAddColumn:
		return "add column"
	case opAddPrimaryKey:
		return "add primary key"
	case opAddUnique:
		return "add unique constraint"
	case opAddCheck:
		return "add check constraint"
	case opAddDefault:
		return "add default constraint"
	case opAddIndex:
		return "add index"
	default:
		return "add foreign key"
	}
}

// alterStep is one change of a planned alteration. Table is the table name
// in effect when the step runs.
type alterStep struct {
	op      alterOp
	table   string
	name    string
	newName string
	object  any
}

// planAlteration orders the changes of a so that every drop precedes the
// renames and every add follows them, with foreign keys dropped first and
// added last.
func planAlteration(a *TableAlteration) []alterStep {
	var steps []alterStep
	table := a.TableName
	for _, n := range a.DropForeignKeyConstraints {
		steps = append(steps, alterStep{op: opDropForeignKey, table: table, name: n})
	}
	for _, n := range a.DropIndexes {
		steps = append(steps, alterStep{op: opDropIndex, table: table, name: n})
	}
	for _, n := range a.DropUniqueConstraints {
		steps = append(steps, alterStep{op: opDropUnique, table: table, name: n})
	}
	for _, n := range a.DropCheckConstraints {
		steps = append(steps, alterStep{op: opDropCheck, table: table, name: n})
	}
	for _, n := range a.DropDefaultConstraints {
		steps = append(steps, alterStep{op: opDropDefault, table: table, name: n})
	}
	if a.DropPrimaryKey {
		steps = append(steps, alterStep{op: opDropPrimaryKey, table: table})
	}
	for _, n := range a.DropColumns {
		steps = append(steps, alterStep{op: opDropColumn, table: table, name: n})
	}
	if a.NewTableName != "" && a.NewTableName != a.TableName {
		steps = append(steps, alterStep{op: opRenameTable, table: table, newName: a.NewTableName})
		table = a.NewTableName
	}
	olds := make([]string, 0, len(a.RenameColumns))
	for old := range a.RenameColumns {
		olds = append(olds, old)
	}
	sort.Strings(olds)
	for _, old := range olds {
		steps = append(steps, alterStep{op: opRenameColumn, table: table, name: old, newName: a.RenameColumns[old]})
	}
	for _, c := range a.AddColumns {
		steps = append(steps, alterStep{op: opAddColumn, table: table, name: c.ColumnName, object: c})
	}
	if a.AddPrimaryKey != nil {
		steps = append(steps, alterStep{op: opAddPrimaryKey, table: table, name: a.AddPrimaryKey.ConstraintName, object: a.AddPrimaryKey})
	}
	for _, c := range a.AddUniqueConstraints {
		steps = append(steps, alterStep{op: opAddUnique, table: table, name: c.ConstraintName, object: c})
	}
	for _, c := range a.AddCheckConstraints {
		steps = append(steps, alterStep{op: opAddCheck, table: table, name: c.ConstraintName, object: c})
	}
	for _, c := range a.AddDefaultConstraints {
		steps = append(steps, alterStep{op: opAddDefault, table: table, name: c.ConstraintName, object: c})
	}
	for _, ix := range a.AddIndexes {
		steps = append(steps, alterStep{op: opAddIndex, table: table, name: ix.IndexName, object: ix})
	}
	for _, c := range a.AddForeignKeyConstraints {
		steps = append(steps, alterStep{op: opAddForeignKey, table: table, name: c.ConstraintName, object: c})
	}
	return steps
}

// AlterTable applies a batch of changes to one table. Each step is
// idempotent; the first failing step aborts the batch.
func (m *Methods) AlterTable(ctx context.Context, ex Executor, a *TableAlteration) error {
	if a == nil {
		return invalidArgument("table alteration is required")
	}
	if err := requireName("table", a.TableName); err != nil {
		return err
	}
	if err := a.validate(); err != nil {
		return err
	}
	exists, err := m.DoesTableExist(ctx, ex, a.SchemaName, a.TableName)
	if err != nil {
		return err
	}
	if !exists {
		return m.wrap("alter table", a.TableName, invalidArgument("table %q does not exist", a.TableName))
	}
	for _, s := range planAlteration(a) {
		if err := m.applyStep(ctx, ex, a.SchemaName, s); err != nil {
			return err
		}
	}
	return nil
}

// validate rejects nil entries in the lists of objects to add.
func (a *TableAlteration) validate() error {
	lists := []struct {
		field string
		index int
	}{
		{"AddColumns", nilEntry(a.AddColumns)},
		{"AddCheckConstraints", nilEntry(a.AddCheckConstraints)},
		{"AddDefaultConstraints", nilEntry(a.AddDefaultConstraints)},
		{"AddUniqueConstraints", nilEntry(a.AddUniqueConstraints)},
		{"AddForeignKeyConstraints", nilEntry(a.AddForeignKeyConstraints)},
		{"AddIndexes", nilEntry(a.AddIndexes)},
	}
	for _, l := range lists {
		if l.index >= 0 {
			return invalidArgument("%s[%d] is nil", l.field, l.index)
		}
	}
	return nil
}

// nilEntry returns the index of the first nil pointer in list, or -1.
func nilEntry[T any](list []*T) int {
	for i, v := range list {
		if v == nil {
			return i
		}
	}
	return -1
}

func (m *Methods) applyStep(ctx context.Context, ex Executor, schemaName string, s alterStep) error {
	var err error
	switch s.op {
	case opDropForeignKey:
		_, err = m.DropForeignKeyConstraintIfExists(ctx, ex, schemaName, s.table, s.name)
	case opDropIndex:
		_, err = m.DropIndexIfExists(ctx, ex, schemaName, s.table, s.name)
	case opDropUnique:
		_, err = m.DropUniqueConstraintIfExists(ctx, ex, schemaName, s.table, s.name)
	case opDropCheck:
		_, err = m.DropCheckConstraintIfExists(ctx, ex, schemaName, s.table, s.name)
	case opDropDefault:
		_, err = m.DropDefaultConstraintIfExists(ctx, ex, schemaName, s.table, s.name)
	case opDropPrimaryKey:
		_, err = m.DropPrimaryKeyConstraintIfExists(ctx, ex, schemaName, s.table)
	case opDropColumn:
		_, err = m.DropColumnIfExists(ctx, ex, schemaName, s.table, s.name)
	case opRenameTable:
		_, err = m.RenameTableIfExists(ctx, ex, schemaName, s.table, s.newName)
	case opRenameColumn:
		_, err = m.RenameColumnIfExists(ctx, ex, schemaName, s.table, s.name, s.newName)
	case opAddColumn:
		c := s.object.(*schema.Column).Clone()
		c.SchemaName, c.TableName = schemaName, s.table
		_, err = m.CreateColumnIfNotExists(ctx, ex, c)
	case opAddPrimaryKey:
		pk := s.object.(*schema.PrimaryKeyConstraint).Clone()
		pk.SchemaName, pk.TableName = schemaName, s.table
		_, err = m.CreatePrimaryKeyConstraintIfNotExists(ctx, ex, pk)
	case opAddUnique:
		uc := s.object.(*schema.UniqueConstraint).Clone()
		uc.SchemaName, uc.TableName = schemaName, s.table
		_, err = m.CreateUniqueConstraintIfNotExists(ctx, ex, uc)
	case opAddCheck:
		ck := s.object.(*schema.CheckConstraint).Clone()
		ck.SchemaName, ck.TableName = schemaName, s.table
		_, err = m.CreateCheckConstraintIfNotExists(ctx, ex, ck)
	case opAddDefault:
		df := s.object.(*schema.DefaultConstraint).Clone()
		df.SchemaName, df.TableName = schemaName, s.table
		_, err = m.CreateDefaultConstraintIfNotExists(ctx, ex, df)
	case opAddIndex:
		ix := s.object.(*schema.Index).Clone()
		ix.SchemaName, ix.TableName = schemaName, s.table
		_, err = m.CreateIndexIfNotExists(ctx, ex, ix)
	case opAddForeignKey:
		fk := s.object.(*schema.ForeignKeyConstraint).Clone()
		fk.SchemaName, fk.TableName = schemaName, s.table
		_, err = m.CreateForeignKeyConstraintIfNotExists(ctx, ex, fk)
	}
	if err != nil {
		return m.wrap(s.op.String(), s.table, err)
	}
	return nil
}
