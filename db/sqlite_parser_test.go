package db

import (
	"testing"
)

func findRows(rows []ConstraintRow, name string) []ConstraintRow {
	var out []ConstraintRow
	for _, r := range rows {
		if r.ConstraintName == name {
			out = append(out, r)
		}
	}
	return out
}

func TestParseSQLiteCreateTable(t *testing.T) {
	stmt := `CREATE TABLE "orders" (
		"id" integer CONSTRAINT "pk_orders" PRIMARY KEY AUTOINCREMENT NOT NULL,
		"customer_id" integer NOT NULL REFERENCES "customers" ("id") ON DELETE CASCADE,
		"code" varchar(20) NOT NULL CONSTRAINT "uc_orders_code" UNIQUE,
		"total" numeric(10,2) NOT NULL CONSTRAINT "df_orders_total" DEFAULT 0 CHECK (total >= 0),
		"status" text DEFAULT ('new'), -- trailing comment
		"created" datetime DEFAULT CURRENT_TIMESTAMP,
		[note] text COLLATE NOCASE,
		CONSTRAINT "uc_orders_pair" UNIQUE ("customer_id", "code" DESC),
		CONSTRAINT "ck_orders" CHECK (length(code) > 2 AND status <> ''),
		FOREIGN KEY ("customer_id", "code") REFERENCES "accounts" ("id", "code") ON UPDATE SET NULL
	)`

	info := parseSQLiteCreateTable("orders", stmt)

	if !info.autoIncrement["id"] {
		t.Error("Expected id to be AUTOINCREMENT")
	}

	tests := []struct {
		name     string
		kind     string
		columns  []string
		def      string
		refTable string
		onDelete string
		onUpdate string
	}{
		{name: "pk_orders", kind: constraintPrimaryKey, columns: []string{"id"}},
		{name: "fk_orders_customer_id_customers_id", kind: constraintForeignKey, columns: []string{"customer_id"}, refTable: "customers", onDelete: "CASCADE", onUpdate: "NO ACTION"},
		{name: "uc_orders_code", kind: constraintUnique, columns: []string{"code"}},
		{name: "df_orders_total", kind: constraintDefault, columns: []string{"total"}, def: "0"},
		{name: "ck_orders_total", kind: constraintCheck, columns: []string{"total"}, def: "total >= 0"},
		{name: "df_orders_status", kind: constraintDefault, columns: []string{"status"}, def: "('new')"},
		{name: "df_orders_created", kind: constraintDefault, columns: []string{"created"}, def: "CURRENT_TIMESTAMP"},
		{name: "uc_orders_pair", kind: constraintUnique, columns: []string{"customer_id", "code"}},
		{name: "ck_orders", kind: constraintCheck, def: "length(code) > 2 AND status <> ''"},
		{name: "fk_orders_customer_id_code_accounts_id_code", kind: constraintForeignKey, columns: []string{"customer_id", "code"}, refTable: "accounts", onDelete: "NO ACTION", onUpdate: "SET NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := findRows(info.constraints, tt.name)
			if len(rows) == 0 {
				t.Fatalf("Constraint %s not found in %+v", tt.name, info.constraints)
			}
			if rows[0].ConstraintType != tt.kind {
				t.Errorf("Expected type %s, got %s", tt.kind, rows[0].ConstraintType)
			}
			if rows[0].TableName != "orders" {
				t.Errorf("Expected table orders, got %s", rows[0].TableName)
			}
			var cols []string
			for _, r := range rows {
				if r.ColumnName.Valid {
					cols = append(cols, r.ColumnName.String)
				}
			}
			if len(cols) != len(tt.columns) {
				t.Fatalf("Expected columns %v, got %v", tt.columns, cols)
			}
			for i := range cols {
				if cols[i] != tt.columns[i] {
					t.Errorf("Expected columns %v, got %v", tt.columns, cols)
				}
			}
			if tt.def != "" && rows[0].Definition.String != tt.def {
				t.Errorf("Expected definition %q, got %q", tt.def, rows[0].Definition.String)
			}
			if tt.refTable != "" {
				if rows[0].ReferencedTableName.String != tt.refTable {
					t.Errorf("Expected referenced table %s, got %s", tt.refTable, rows[0].ReferencedTableName.String)
				}
				if rows[0].DeleteRule.String != tt.onDelete || rows[0].UpdateRule.String != tt.onUpdate {
					t.Errorf("Expected actions %s/%s, got %s/%s", tt.onDelete, tt.onUpdate, rows[0].DeleteRule.String, rows[0].UpdateRule.String)
				}
			}
		})
	}

	pair := findRows(info.constraints, "uc_orders_pair")
	if len(pair) == 2 && !pair[1].IsDescending {
		t.Error("Expected code to be descending in uc_orders_pair")
	}
}

func TestParseSQLiteTablePrimaryKey(t *testing.T) {
	info := parseSQLiteCreateTable("line", `CREATE TABLE line (order_id int, line_no int, PRIMARY KEY (order_id, line_no DESC))`)
	rows := findRows(info.constraints, "pk_line")
	if len(rows) != 2 {
		t.Fatalf("Expected 2 primary key rows, got %d", len(rows))
	}
	if rows[0].ColumnName.String != "order_id" || rows[1].ColumnName.String != "line_no" {
		t.Errorf("Unexpected key columns: %s, %s", rows[0].ColumnName.String, rows[1].ColumnName.String)
	}
	if rows[1].Position != 2 || !rows[1].IsDescending {
		t.Errorf("Expected line_no at position 2 descending, got %d %v", rows[1].Position, rows[1].IsDescending)
	}
	if len(info.autoIncrement) != 0 {
		t.Errorf("Expected no autoincrement columns, got %v", info.autoIncrement)
	}
}

func TestTokenizeSQLiteQuoting(t *testing.T) {
	toks := tokenizeSQLite(`"a""b" 'it''s' [x y] ` + "`q`" + ` /* skip */ 1.5e3 -- rest`)
	want := []struct {
		kind  tokenKind
		value string
	}{
		{tokQuoted, `a"b`},
		{tokString, "it's"},
		{tokQuoted, "x y"},
		{tokQuoted, "q"},
		{tokNumber, "1.5e3"},
	}
	if len(toks) != len(want) {
		t.Fatalf("Expected %d tokens, got %d: %+v", len(want), len(toks), toks)
	}
	for i, w := range want {
		if toks[i].kind != w.kind || toks[i].value != w.value {
			t.Errorf("Token %d: expected %v %q, got %v %q", i, w.kind, w.value, toks[i].kind, toks[i].value)
		}
	}
}
