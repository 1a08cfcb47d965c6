package db

import (
	"context"
	"errors"
	"testing"

	"github.com/tordrt/dmschema/schema"
)

func TestPlanAlterationOrder(t *testing.T) {
	a := &TableAlteration{
		TableName:                 "orders",
		NewTableName:              "purchases",
		RenameColumns:             map[string]string{"b": "b2", "a": "a2"},
		AddForeignKeyConstraints:  []*schema.ForeignKeyConstraint{{ConstraintName: "fk_new"}},
		AddIndexes:                []*schema.Index{{IndexName: "ix_new"}},
		AddDefaultConstraints:     []*schema.DefaultConstraint{{ConstraintName: "df_new"}},
		AddCheckConstraints:       []*schema.CheckConstraint{{ConstraintName: "ck_new"}},
		AddUniqueConstraints:      []*schema.UniqueConstraint{{ConstraintName: "uc_new"}},
		AddPrimaryKey:             &schema.PrimaryKeyConstraint{ConstraintName: "pk_new"},
		AddColumns:                []*schema.Column{{ColumnName: "c_new"}},
		DropColumns:               []string{"c_old"},
		DropPrimaryKey:            true,
		DropDefaultConstraints:    []string{"df_old"},
		DropCheckConstraints:      []string{"ck_old"},
		DropUniqueConstraints:     []string{"uc_old"},
		DropIndexes:               []string{"ix_old"},
		DropForeignKeyConstraints: []string{"fk_old"},
	}

	want := []struct {
		op    alterOp
		table string
		name  string
	}{
		{opDropForeignKey, "orders", "fk_old"},
		{opDropIndex, "orders", "ix_old"},
		{opDropUnique, "orders", "uc_old"},
		{opDropCheck, "orders", "ck_old"},
		{opDropDefault, "orders", "df_old"},
		{opDropPrimaryKey, "orders", ""},
		{opDropColumn, "orders", "c_old"},
		{opRenameTable, "orders", ""},
		{opRenameColumn, "purchases", "a"},
		{opRenameColumn, "purchases", "b"},
		{opAddColumn, "purchases", "c_new"},
		{opAddPrimaryKey, "purchases", "pk_new"},
		{opAddUnique, "purchases", "uc_new"},
		{opAddCheck, "purchases", "ck_new"},
		{opAddDefault, "purchases", "df_new"},
		{opAddIndex, "purchases", "ix_new"},
		{opAddForeignKey, "purchases", "fk_new"},
	}

	steps := planAlteration(a)
	if len(steps) != len(want) {
		t.Fatalf("Expected %d steps, got %d", len(want), len(steps))
	}
	for i, w := range want {
		s := steps[i]
		if s.op != w.op || s.table != w.table || s.name != w.name {
			t.Errorf("Step %d: expected %s %s.%s, got %s %s.%s", i, w.op, w.table, w.name, s.op, s.table, s.name)
		}
	}
	if steps[7].newName != "purchases" {
		t.Errorf("Expected rename to purchases, got %q", steps[7].newName)
	}
}

func TestPlanAlterationSkipsNoOpRename(t *testing.T) {
	steps := planAlteration(&TableAlteration{TableName: "t", NewTableName: "t"})
	if len(steps) != 0 {
		t.Errorf("Expected no steps, got %d", len(steps))
	}
}

func TestAlterTableRejectsNilEntries(t *testing.T) {
	tests := []struct {
		name string
		a    *TableAlteration
	}{
		{"column", &TableAlteration{AddColumns: []*schema.Column{{ColumnName: "a"}, nil}}},
		{"check", &TableAlteration{AddCheckConstraints: []*schema.CheckConstraint{nil}}},
		{"default", &TableAlteration{AddDefaultConstraints: []*schema.DefaultConstraint{nil}}},
		{"unique", &TableAlteration{AddUniqueConstraints: []*schema.UniqueConstraint{nil}}},
		{"foreign key", &TableAlteration{AddForeignKeyConstraints: []*schema.ForeignKeyConstraint{nil}}},
		{"index", &TableAlteration{AddIndexes: []*schema.Index{nil}}},
	}

	m := NewPostgresMethods()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.a.TableName = "orders"
			// The executor is never reached.
			err := m.AlterTable(context.Background(), nil, tt.a)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
