package db

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

func ordersTable() *schema.Table {
	return &schema.Table{
		TableName: "Orders",
		Columns: []*schema.Column{
			{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.Int32), IsPrimaryKey: true, IsAutoIncrement: true},
			{ColumnName: "code", HostType: typemap.PrimitiveOf(typemap.String), Length: typemap.IntPtr(20), IsUnique: true},
			{ColumnName: "total", HostType: typemap.PrimitiveOf(typemap.Decimal), Precision: typemap.IntPtr(10), Scale: typemap.IntPtr(2),
				CheckExpression: "total >= 0", DefaultExpression: "0"},
			{ColumnName: "customer_id", HostType: typemap.PrimitiveOf(typemap.Int64), IsForeignKey: true,
				ReferencedTableName: "Customers", ReferencedColumnName: "id", OnDelete: schema.Cascade},
			{ColumnName: "created", HostType: typemap.PrimitiveOf(typemap.DateTime), IsNullable: true, IsIndexed: true},
		},
	}
}

func TestPrepareTableMakesConstraintsExplicit(t *testing.T) {
	in := ordersTable()
	got := NewPostgresMethods().prepareTable(in)

	if got.SchemaName != "public" || got.TableName != "orders" {
		t.Errorf("Expected public.orders, got %s.%s", got.SchemaName, got.TableName)
	}
	if got.PrimaryKey == nil || got.PrimaryKey.ConstraintName != "pk_orders" {
		t.Fatalf("Expected pk_orders, got %+v", got.PrimaryKey)
	}
	if len(got.UniqueConstraints) != 1 || got.UniqueConstraints[0].ConstraintName != "uc_orders_code" {
		t.Errorf("Expected uc_orders_code, got %+v", got.UniqueConstraints)
	}
	if len(got.CheckConstraints) != 1 || got.CheckConstraints[0].ConstraintName != "ck_orders_total" {
		t.Errorf("Expected ck_orders_total, got %+v", got.CheckConstraints)
	}
	if len(got.DefaultConstraints) != 1 || got.DefaultConstraints[0].ConstraintName != "df_orders_total" {
		t.Errorf("Expected df_orders_total, got %+v", got.DefaultConstraints)
	}
	if len(got.ForeignKeyConstraints) != 1 || got.ForeignKeyConstraints[0].ConstraintName != "fk_orders_customer_id_customers_id" {
		t.Errorf("Expected fk_orders_customer_id_customers_id, got %+v", got.ForeignKeyConstraints)
	}
	if len(got.Indexes) != 1 || got.Indexes[0].IndexName != "ix_orders_created" {
		t.Errorf("Expected ix_orders_created, got %+v", got.Indexes)
	}

	if in.TableName != "Orders" || in.PrimaryKey != nil || len(in.UniqueConstraints) != 0 {
		t.Error("Expected the input table to be left untouched")
	}
}

func TestPrepareTableTruncatesGeneratedNames(t *testing.T) {
	long := strings.Repeat("x", 70)
	tbl := &schema.Table{
		TableName: "t",
		Columns:   []*schema.Column{{ColumnName: long, HostType: typemap.PrimitiveOf(typemap.Int32), IsIndexed: true}},
	}
	got := NewPostgresMethods().prepareTable(tbl)
	if n := len(got.Indexes[0].IndexName); n > 63 {
		t.Errorf("Expected an index name of at most 63 characters, got %d", n)
	}

	// Names given by the caller are kept.
	tbl.Indexes = []*schema.Index{{TableName: "t", IndexName: "custom", Columns: schema.Columns(long)}}
	got = NewPostgresMethods().prepareTable(tbl)
	if len(got.Indexes) != 1 || got.Indexes[0].IndexName != "custom" {
		t.Errorf("Expected the custom index only, got %+v", got.Indexes)
	}
}

func TestCreateTableStatementsPostgres(t *testing.T) {
	m := NewPostgresMethods()
	tbl := m.prepareTable(ordersTable())
	stmts, err := m.createTableStatements(tbl, tbl.TableName, capabilities{checks: true})
	if err != nil {
		t.Fatalf("createTableStatements failed: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("Expected create table and one index, got %d statements", len(stmts))
	}

	for _, want := range []string{
		`CREATE TABLE "public"."orders" (`,
		`"id" integer GENERATED BY DEFAULT AS IDENTITY NOT NULL`,
		`"code" varchar(20) NOT NULL`,
		`"total" numeric(10,2) NOT NULL DEFAULT 0`,
		`"created" timestamp NULL`,
		`CONSTRAINT "pk_orders" PRIMARY KEY ("id")`,
		`CONSTRAINT "uc_orders_code" UNIQUE ("code")`,
		`CONSTRAINT "ck_orders_total" CHECK (total >= 0)`,
		`CONSTRAINT "fk_orders_customer_id_customers_id" FOREIGN KEY ("customer_id") REFERENCES "public"."customers" ("id") ON DELETE CASCADE ON UPDATE NO ACTION`,
	} {
		if !strings.Contains(stmts[0], want) {
			t.Errorf("Expected statement to contain %q:\n%s", want, stmts[0])
		}
	}
	if want := `CREATE INDEX "ix_orders_created" ON "public"."orders" ("created")`; stmts[1] != want {
		t.Errorf("Expected %q, got %q", want, stmts[1])
	}
}

func TestCreateTableStatementsWithoutChecks(t *testing.T) {
	m := NewMySQLMethods()
	tbl := m.prepareTable(ordersTable())
	stmts, err := m.createTableStatements(tbl, tbl.TableName, capabilities{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stmts[0], "CHECK") {
		t.Errorf("Expected no check constraints on an old server:\n%s", stmts[0])
	}
	if !strings.Contains(stmts[0], "`id` int NOT NULL AUTO_INCREMENT") {
		t.Errorf("Expected an AUTO_INCREMENT id column:\n%s", stmts[0])
	}
}

func TestCreateTableStatementsSQLiteInlineKey(t *testing.T) {
	m := NewSQLiteMethods()
	tbl := m.prepareTable(ordersTable())
	stmts, err := m.createTableStatements(tbl, tbl.TableName, capabilities{orderedKeys: true, checks: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmts[0], `"id" integer CONSTRAINT "pk_orders" PRIMARY KEY AUTOINCREMENT NOT NULL`) {
		t.Errorf("Expected an inline autoincrement key:\n%s", stmts[0])
	}
	if strings.Contains(stmts[0], `CONSTRAINT "pk_orders" PRIMARY KEY ("id")`) {
		t.Errorf("Expected no table level primary key:\n%s", stmts[0])
	}
	if !strings.Contains(stmts[0], `CONSTRAINT "df_orders_total" DEFAULT 0`) {
		t.Errorf("Expected a named literal default:\n%s", stmts[0])
	}
}

func TestCreateTableStatementsProviderOverride(t *testing.T) {
	m := NewPostgresMethods()
	tbl := &schema.Table{
		TableName: "docs",
		Columns: []*schema.Column{{
			ColumnName:    "body",
			HostType:      typemap.PrimitiveOf(typemap.String),
			ProviderTypes: map[provider.Type]string{provider.PostgreSQL: "citext"},
		}},
	}
	stmts, err := m.createTableStatements(m.prepareTable(tbl), "docs", capabilities{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmts[0], `"body" citext NOT NULL`) {
		t.Errorf("Expected the provider override:\n%s", stmts[0])
	}
}

// fixedCatalog is a MySQL dialect whose catalog always lists the same tables.
type fixedCatalog struct {
	*mysqlDialect
	tables []string
}

func (c fixedCatalog) TableNames(context.Context, Executor, string, string) ([]string, error) {
	return c.tables, nil
}

// recorder captures executed statements.
type recorder struct {
	sqlx.ExtContext
	stmts []string
}

func (r *recorder) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.stmts = append(r.stmts, query)
	return nil, nil
}

func TestTableDDLQuotesCatalogSpelling(t *testing.T) {
	tests := []struct {
		name string
		run  func(m *Methods, ex Executor) (bool, error)
		want string
	}{
		{
			name: "drop",
			run: func(m *Methods, ex Executor) (bool, error) {
				return m.DropTableIfExists(context.Background(), ex, "", "orders")
			},
			want: "DROP TABLE `Orders`",
		},
		{
			name: "rename",
			run: func(m *Methods, ex Executor) (bool, error) {
				return m.RenameTableIfExists(context.Background(), ex, "", "ORDERS", "sales")
			},
			want: "RENAME TABLE `Orders` TO `sales`",
		},
		{
			name: "truncate",
			run: func(m *Methods, ex Executor) (bool, error) {
				return m.TruncateTableIfExists(context.Background(), ex, "", "orders")
			},
			want: "TRUNCATE TABLE `Orders`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMethods(fixedCatalog{mysqlDialect: NewMySQLMethods().d.(*mysqlDialect), tables: []string{"Orders"}})
			rec := &recorder{}
			ok, err := tt.run(m, rec)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !ok {
				t.Fatal("Expected the table to be found")
			}
			if len(rec.stmts) != 1 || rec.stmts[0] != tt.want {
				t.Errorf("Expected [%s], got %v", tt.want, rec.stmts)
			}
		})
	}
}

func TestTableDDLSkipsMissingTable(t *testing.T) {
	m := NewMethods(fixedCatalog{mysqlDialect: NewMySQLMethods().d.(*mysqlDialect), tables: []string{"Orders"}})
	rec := &recorder{}
	ok, err := m.DropTableIfExists(context.Background(), rec, "", "customers")
	if err != nil || ok {
		t.Errorf("Expected false without error, got %v, %v", ok, err)
	}
	if len(rec.stmts) != 0 {
		t.Errorf("Expected no statements, got %v", rec.stmts)
	}
}
