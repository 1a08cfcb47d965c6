package provider

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
		wantErr  bool
	}{
		{"postgres", PostgreSQL, false},
		{"PostgreSQL", PostgreSQL, false},
		{" pgx ", PostgreSQL, false},
		{"mssql", SQLServer, false},
		{"mariadb", MySQL, false},
		{"sqlite3", SQLite, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	for _, p := range All() {
		b, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var got Type
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", b, err)
		}
		if got != p {
			t.Errorf("Expected %q, got %q", p, got)
		}
	}
}
