package db

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		input   string
		want    string
	}{
		{"postgres", NewPostgresMethods().d, "Order", `"Order"`},
		{"postgres escapes quotes", NewPostgresMethods().d, `a"b`, `"a""b"`},
		{"sqlserver", NewSQLServerMethods().d, "[Order]", "[Order]"},
		{"sqlserver escapes brackets", NewSQLServerMethods().d, "a]b", "[a]]b]"},
		{"mysql", NewMySQLMethods().d, "`order`", "`order`"},
		{"sqlite", NewSQLiteMethods().d, `"order"`, `"order"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.QuoteIdentifier(tt.input); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNormalizeSchemaName(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		input   string
		want    string
	}{
		{"postgres default", NewPostgresMethods().d, "", "public"},
		{"postgres folds case", NewPostgresMethods().d, "Sales", "sales"},
		{"sqlserver default", NewSQLServerMethods().d, " ", "dbo"},
		{"sqlserver keeps case", NewSQLServerMethods().d, "[Sales]", "Sales"},
		{"mysql ignores schemas", NewMySQLMethods().d, "sales", ""},
		{"sqlite ignores schemas", NewSQLiteMethods().d, "main", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.NormalizeSchemaName(tt.input); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSQLServerStatements(t *testing.T) {
	d := NewSQLServerMethods().d

	rename, _ := d.RenameTable("[dbo].[o'rders]", "archive")
	if want := "EXEC sp_rename N'[dbo].[o''rders]', N'archive'"; rename != want {
		t.Errorf("Expected %s, got %s", want, rename)
	}
	col, _ := d.RenameColumn("[dbo].[orders]", "qty", "quantity")
	if want := "EXEC sp_rename N'[dbo].[orders].[qty]', N'quantity', 'COLUMN'"; col != want {
		t.Errorf("Expected %s, got %s", want, col)
	}
	def, _ := d.AddDefault("[dbo].[orders]", &schema.DefaultConstraint{ConstraintName: "df_orders_qty", ColumnName: "qty", Expression: "((1))"})
	if want := "ALTER TABLE [dbo].[orders] ADD CONSTRAINT [df_orders_qty] DEFAULT (1) FOR [qty]"; def != want {
		t.Errorf("Expected %s, got %s", want, def)
	}
	if got := d.ReferentialAction(schema.Restrict); got != "NO ACTION" {
		t.Errorf("Expected RESTRICT to map to NO ACTION, got %s", got)
	}
	c := &schema.Column{ColumnName: "id", IsAutoIncrement: true}
	if got := d.ColumnDefinition(c, "int", nil, nil); got != "[id] int IDENTITY(1,1) NOT NULL" {
		t.Errorf("Unexpected identity column: %s", got)
	}
}

func TestMySQLDefaults(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "0"},
		{"'new'", "'new'"},
		{"CURRENT_TIMESTAMP(6)", "CURRENT_TIMESTAMP(6)"},
		{"NULL", "NULL"},
		{"uuid()", "(uuid())"},
		{"(now())", "(now())"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := mysqlDefault(tt.input); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMySQLCapabilities(t *testing.T) {
	d := NewMySQLMethods().d
	tests := []struct {
		version     string
		checks      bool
		orderedKeys bool
	}{
		{"5.7.44", false, false},
		{"8.0.15", false, true},
		{"8.0.36", true, true},
		{"10.1.48-MariaDB", false, false},
		{"10.6.12-MariaDB-1:10.6.12+maria~ubu2004", true, false},
		{"11.2.2-MariaDB", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := d.SupportsCheckConstraints(tt.version); got != tt.checks {
				t.Errorf("Expected checks %v, got %v", tt.checks, got)
			}
			if got := d.SupportsOrderedKeysInConstraints(tt.version); got != tt.orderedKeys {
				t.Errorf("Expected ordered keys %v, got %v", tt.orderedKeys, got)
			}
		})
	}
}

func TestSQLiteAddColumnNeedsRebuild(t *testing.T) {
	d := NewSQLiteMethods().d
	tests := []struct {
		name    string
		column  *schema.Column
		rebuild bool
	}{
		{"nullable", &schema.Column{ColumnName: "a", IsNullable: true}, false},
		{"literal default", &schema.Column{ColumnName: "a", DefaultExpression: "'x'"}, false},
		{"not null without default", &schema.Column{ColumnName: "a"}, true},
		{"expression default", &schema.Column{ColumnName: "a", IsNullable: true, DefaultExpression: "CURRENT_TIMESTAMP"}, true},
		{"unique", &schema.Column{ColumnName: "a", IsNullable: true, IsUnique: true}, true},
		{"foreign key", &schema.Column{ColumnName: "a", IsNullable: true, IsForeignKey: true}, true},
		{"check", &schema.Column{ColumnName: "a", IsNullable: true, CheckExpression: "a > 0"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.AddColumn(`"t"`, tt.column, `"a" text`)
			if got := errors.Is(err, errRebuildTable); got != tt.rebuild {
				t.Errorf("Expected rebuild %v, got %v (%v)", tt.rebuild, got, err)
			}
		})
	}
}

func TestStripCreateView(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"CREATE VIEW v AS SELECT 1", "SELECT 1"},
		{"create temp view if not exists \"my view\" as\n  select * from t", "select * from t"},
		{"CREATE VIEW [dbo].[v] AS SELECT a FROM b", "SELECT a FROM b"},
		{"SELECT 2", "SELECT 2"},
	}

	for _, tt := range tests {
		if got := stripCreateView(tt.input); got != tt.want {
			t.Errorf("stripCreateView(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestColumnFromRow(t *testing.T) {
	d := NewPostgresMethods().d
	row := ColumnRow{
		TableName:    "orders",
		ColumnName:   "id",
		DataType:     "integer",
		IsNullable:   false,
		DefaultValue: sql.NullString{String: "nextval('orders_id_seq'::regclass)", Valid: true},
	}
	if !d.IsAutoIncrement(row) {
		t.Error("Expected a serial column to be auto increment")
	}
	h, ok := d.TypeMap().TryGetHostType(row.DataType)
	if !ok || !h.Type.Is(typemap.Int32) {
		t.Errorf("Expected int32, got %v", h.Type)
	}
}
