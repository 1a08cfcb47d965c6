package dmschema

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		provider provider.Type
		connStr  string
		pure     bool
		wantErr  bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost/db", provider: provider.PostgreSQL, connStr: "postgres://u:p@localhost/db"},
		{name: "postgresql", url: "postgresql://localhost/db", provider: provider.PostgreSQL, connStr: "postgresql://localhost/db"},
		{name: "sqlserver", url: "sqlserver://sa:pw@localhost?database=app", provider: provider.SQLServer, connStr: "sqlserver://sa:pw@localhost?database=app"},
		{name: "mysql strips scheme", url: "mysql://root:pw@tcp(localhost:3306)/app", provider: provider.MySQL, connStr: "root:pw@tcp(localhost:3306)/app"},
		{name: "sqlite", url: "sqlite://data/app.db", provider: provider.SQLite, connStr: "data/app.db"},
		{name: "sqlite pure", url: "sqlite+pure://:memory:", provider: provider.SQLite, connStr: ":memory:", pure: true},
		{name: "empty", url: "", wantErr: true},
		{name: "unknown scheme", url: "oracle://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, connStr, pure, err := parseDatabaseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if p != tt.provider || connStr != tt.connStr || pure != tt.pure {
				t.Errorf("Expected (%s, %q, %v), got (%s, %q, %v)", tt.provider, tt.connStr, tt.pure, p, connStr, pure)
			}
		})
	}
}

func TestFilterExcludedTables(t *testing.T) {
	tables := []*schema.Table{{TableName: "users"}, {TableName: "posts"}, {TableName: "audit_2024"}, {TableName: "audit_2025"}}

	tests := []struct {
		name        string
		excludeList []string
		wantTables  []string
	}{
		{name: "exclude single table", excludeList: []string{"posts"}, wantTables: []string{"users", "audit_2024", "audit_2025"}},
		{name: "exclude by wildcard", excludeList: []string{"audit_*"}, wantTables: []string{"users", "posts"}},
		{name: "exclude ignores case", excludeList: []string{"USERS"}, wantTables: []string{"posts", "audit_2024", "audit_2025"}},
		{name: "exclude non-existent table", excludeList: []string{"products"}, wantTables: []string{"users", "posts", "audit_2024", "audit_2025"}},
		{name: "exclude no tables", excludeList: nil, wantTables: []string{"users", "posts", "audit_2024", "audit_2025"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterExcludedTables(tables, tt.excludeList)
			if len(got) != len(tt.wantTables) {
				t.Fatalf("Expected %d tables, got %d", len(tt.wantTables), len(got))
			}
			for i, want := range tt.wantTables {
				if got[i].TableName != want {
					t.Errorf("Expected table %s at %d, got %s", want, i, got[i].TableName)
				}
			}
		})
	}
}

func TestReadAndFormatTables(t *testing.T) {
	ctx := context.Background()

	conn, err := Open(ctx, "sqlite+pure://:memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	p, err := ProviderOf(conn)
	if err != nil || p != provider.SQLite {
		t.Fatalf("Expected sqlite provider, got %s: %v", p, err)
	}
	m, err := MethodsFor(conn)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"users", "posts", "schema_migrations"} {
		table := &schema.Table{
			TableName: name,
			Columns: []*schema.Column{
				{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.Int32), IsPrimaryKey: true, IsAutoIncrement: true},
				{ColumnName: "title", HostType: typemap.PrimitiveOf(typemap.String), Length: typemap.IntPtr(100), IsNullable: true},
			},
		}
		if _, err := m.CreateTableIfNotExists(ctx, conn, table); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}

	tables, err := ReadTables(ctx, conn, &Options{Tables: []string{"users", "*s"}, ExcludeTables: []string{"schema_*"}})
	if err != nil {
		t.Fatalf("Failed to read tables: %v", err)
	}
	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.TableName)
	}
	if strings.Join(names, ",") != "users,posts" {
		t.Errorf("Expected users and posts once each, got %v", names)
	}

	var buf bytes.Buffer
	if err := FormatTables(tables, &OutputOptions{Writer: &buf, Format: "text"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "TABLE users (PK: id)") {
		t.Errorf("Expected text output for users, got:\n%s", buf.String())
	}

	dir := t.TempDir()
	if err := FormatTables(tables, &OutputOptions{OutputDir: dir}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"_overview.md", "users.md", "posts.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}

	if err := FormatTables(tables, &OutputOptions{Writer: &buf, Format: "html"}); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}
