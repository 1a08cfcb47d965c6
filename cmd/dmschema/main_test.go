package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DMSCHEMA_DATABASE", "")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const definitions = `
tables:
  - name: customers
    columns:
      - name: id
        type: int32
        primary_key: true
        auto_increment: true
      - name: email
        type: string
        length: 200
        unique: true
  - name: orders
    columns:
      - name: id
        type: int64
        primary_key: true
      - name: customer_id
        type: int32
        references:
          table: customers
          column: id
          on_delete: cascade
      - name: total
        type: decimal
        precision: 10
        scale: 2
        default: "0"
        check: total >= 0
views:
  - name: order_totals
    definition: SELECT customer_id, SUM(total) AS total FROM orders GROUP BY customer_id
`

func TestMapTypeCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"sized string", []string{"map-type", "string", "--length", "100", "--provider", "postgres"}, "postgresql: varchar(100)"},
		{"decimal", []string{"map-type", "decimal", "--precision", "10", "--scale", "2", "-p", "pg"}, "postgresql: numeric(10,2)"},
		{"fixed ansi string", []string{"map-type", "string", "--length", "10", "--unicode=false", "--fixed", "-p", "sqlserver"}, "sqlserver: char(10)"},
		{"array", []string{"map-type", "[]int64", "-p", "postgres"}, "postgresql: bigint[]"},
		{"every provider", []string{"map-type", "guid"}, "sqlserver: uniqueidentifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("Expected %q in output, got:\n%s", tt.want, out)
			}
		})
	}

	if _, err := execute(t, "map-type", "widget"); err == nil {
		t.Error("Expected an error for an unknown host type")
	}
	if _, err := execute(t, "map-type", "string", "-p", "oracle"); err == nil {
		t.Error("Expected an error for an unknown provider")
	}
}

func TestSQLTypeCommand(t *testing.T) {
	out, err := execute(t, "sql-type", "tinyint(1)", "--provider", "mysql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "mysql: bool") {
		t.Errorf("Expected tinyint(1) to read back as bool, got %q", out)
	}

	out, err = execute(t, "sql-type", "numeric(10,2)", "-p", "postgres")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "decimal") || !strings.Contains(out, "precision=10") || !strings.Contains(out, "scale=2") {
		t.Errorf("Expected decimal(10,2), got %q", out)
	}
}

func TestRequiresDatabase(t *testing.T) {
	_, err := execute(t, "tables")
	if err == nil || !strings.Contains(err.Error(), "--database") {
		t.Errorf("Expected a missing database error, got %v", err)
	}
}

func TestVersionWithoutDatabase(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "dmschema dev\n" {
		t.Errorf("Expected only the tool version, got %q", out)
	}
}

func TestSQLiteCommands(t *testing.T) {
	dir := t.TempDir()
	url := "sqlite+pure://" + filepath.Join(dir, "app.db")
	defsFile := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(defsFile, []byte(definitions), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "create", "--database", url, "-f", defsFile)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for _, want := range []string{"created table customers", "created table orders", "created view order_totals"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q, got:\n%s", want, out)
		}
	}

	out, err = execute(t, "create", "--database", url, "-f", defsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "table orders already exists") {
		t.Errorf("Expected a second create to be a no-op, got:\n%s", out)
	}

	out, err = execute(t, "tables", "--database", url)
	if err != nil {
		t.Fatal(err)
	}
	if out != "customers\norders\n" {
		t.Errorf("Expected customers and orders, got %q", out)
	}

	out, err = execute(t, "tables", "--database", url, "ord*")
	if err != nil {
		t.Fatal(err)
	}
	if out != "orders\n" {
		t.Errorf("Expected only orders, got %q", out)
	}

	out, err = execute(t, "describe", "--database", url, "--format", "markdown")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"## customers", "## orders", "### Referenced By", "CHECK(total >= 0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in describe output, got:\n%s", want, out)
		}
	}

	docs := filepath.Join(dir, "docs")
	if _, err := execute(t, "describe", "--database", url, "--output-dir", docs, "--exclude", "customers"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(docs, "orders.txt")); err != nil {
		t.Errorf("Expected orders.txt: %v", err)
	}
	if _, err := os.Stat(filepath.Join(docs, "customers.txt")); !os.IsNotExist(err) {
		t.Errorf("Expected customers to be excluded, got %v", err)
	}

	out, err = execute(t, "views", "--database", url)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "VIEW order_totals") || !strings.Contains(out, "SUM(total)") {
		t.Errorf("Expected the view definition, got:\n%s", out)
	}

	out, err = execute(t, "version", "--database", url)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "provider: sqlite") || !strings.Contains(out, "check constraints: true") {
		t.Errorf("Expected sqlite capabilities, got:\n%s", out)
	}

	if _, err := execute(t, "drop", "--database", url, "orders"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "drop", "--database", url, "orders")
	if err != nil {
		t.Fatal(err)
	}
	if out != "table orders does not exist\n" {
		t.Errorf("Expected a second drop to be a no-op, got %q", out)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	url := "sqlite+pure://" + filepath.Join(dir, "cfg.db")
	cfg := filepath.Join(dir, "dmschema.yaml")
	if err := os.WriteFile(cfg, []byte("database: "+url+"\nverbose: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "version", "--config", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "provider: sqlite") {
		t.Errorf("Expected the database from the config file, got:\n%s", out)
	}
}
