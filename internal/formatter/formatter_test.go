package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

func sampleTables() []*schema.Table {
	customers := &schema.Table{
		SchemaName: "public",
		TableName:  "customers",
		Columns: []*schema.Column{
			{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.Int32), IsPrimaryKey: true, IsAutoIncrement: true,
				ProviderTypes: map[provider.Type]string{provider.PostgreSQL: "integer"}},
			{ColumnName: "email", HostType: typemap.PrimitiveOf(typemap.String), IsUnique: true,
				ProviderTypes: map[provider.Type]string{provider.PostgreSQL: "character varying(200)"}},
		},
		PrimaryKey: &schema.PrimaryKeyConstraint{TableName: "customers", ConstraintName: "pk_customers", Columns: schema.Columns("id")},
	}
	orders := &schema.Table{
		SchemaName: "public",
		TableName:  "orders",
		Columns: []*schema.Column{
			{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.Int64), IsPrimaryKey: true},
			{ColumnName: "customer_id", HostType: typemap.PrimitiveOf(typemap.Int32), IsForeignKey: true},
			{ColumnName: "total", HostType: typemap.PrimitiveOf(typemap.Decimal), DefaultExpression: "0", CheckExpression: "total >= 0"},
			{ColumnName: "note", IsNullable: true, ProviderTypes: map[provider.Type]string{provider.PostgreSQL: "tsvector"}},
		},
		PrimaryKey: &schema.PrimaryKeyConstraint{TableName: "orders", ConstraintName: "pk_orders", Columns: schema.Columns("id")},
		ForeignKeyConstraints: []*schema.ForeignKeyConstraint{{
			TableName:           "orders",
			ConstraintName:      "fk_orders_customer_id_customers_id",
			SourceColumns:       schema.Columns("customer_id"),
			ReferencedTableName: "customers",
			ReferencedColumns:   schema.Columns("id"),
			OnDelete:            schema.Cascade,
		}},
		Indexes: []*schema.Index{{TableName: "orders", IndexName: "ix_orders_total", Columns: []schema.OrderedColumn{schema.Desc("total")}}},
	}
	return []*schema.Table{orders, customers}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextFormatter(&buf).Format(sampleTables()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	expected := []string{
		"TABLE public.orders (PK: id)",
		"  id: int64 PK NOT NULL",
		"  total: decimal NOT NULL DEFAULT 0 CHECK(total >= 0)",
		"  note: tsvector (unmapped)",
		"    customer_id → customers(id) ON DELETE CASCADE",
		"    ix_orders_total (total DESC)",
		"  id: integer (int32) PK AUTO INCREMENT NOT NULL",
		"  email: character varying(200) (string) UNIQUE NOT NULL",
		"    ← orders(customer_id)",
	}
	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdownFormatter(&buf).Format(sampleTables()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	expected := []string{
		"# Database Schema",
		"## public.orders",
		"- **total:** decimal, NOT NULL, DEFAULT 0, CHECK(total >= 0)",
		"- **note:** tsvector (unmapped)\n",
		"Primary key `pk_orders` on (id)",
		"- customer_id → customers(id), on delete CASCADE, on update NO ACTION",
		"### Referenced By",
		"- orders(customer_id) → id",
		"- ix_orders_total on (total DESC)",
	}
	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "## public.orders") > strings.Index(out, "## public.customers") {
		t.Error("Expected tables in the order given")
	}
}

func TestMultiFileFormatter(t *testing.T) {
	for _, format := range []string{FormatMarkdown, FormatText} {
		t.Run(format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			if err := NewMultiFileFormatter(dir, format).Format(sampleTables()); err != nil {
				t.Fatal(err)
			}

			ext := ".txt"
			if format == FormatMarkdown {
				ext = ".md"
			}
			for _, name := range []string{"_overview", "public.orders", "public.customers"} {
				if _, err := os.Stat(filepath.Join(dir, name+ext)); err != nil {
					t.Errorf("Expected file %s%s: %v", name, ext, err)
				}
			}

			overview, err := os.ReadFile(filepath.Join(dir, "_overview"+ext))
			if err != nil {
				t.Fatal(err)
			}
			if strings.Index(string(overview), "public.customers") > strings.Index(string(overview), "public.orders") {
				t.Errorf("Expected overview sorted by table name, got:\n%s", overview)
			}

			customers, err := os.ReadFile(filepath.Join(dir, "public.customers"+ext))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(customers), "orders(customer_id)") {
				t.Errorf("Expected the customers file to list incoming references, got:\n%s", customers)
			}
		})
	}
}

func TestTableFileName(t *testing.T) {
	if got := TableFileName(&schema.Table{TableName: "order items"}); got != "order_items" {
		t.Errorf("Expected order_items, got %s", got)
	}
	if got := TableFileName(&schema.Table{SchemaName: "dbo", TableName: "x"}); got != "dbo.x" {
		t.Errorf("Expected dbo.x, got %s", got)
	}
}
