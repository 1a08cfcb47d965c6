package db

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected Version
		wantErr  bool
	}{
		{"PostgreSQL 15.7 (Debian 15.7-1.pgdg120+1) on x86_64-pc-linux-gnu", Version{15, 7, 0}, false},
		{"8.0.36", Version{8, 0, 36}, false},
		{"10.11.6-MariaDB-0+deb12u1", Version{10, 11, 6}, false},
		{"16.0.4135.4", Version{16, 0, 4135}, false},
		{"3.45.1", Version{3, 45, 1}, false},
		{"version 17", Version{17, 0, 0}, false},
		{"unknown", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	v := Version{Major: 8, Minor: 0, Patch: 16}
	if !v.AtLeast(8, 0, 16) {
		t.Error("Expected 8.0.16 >= 8.0.16")
	}
	if v.AtLeast(8, 1, 0) {
		t.Error("Expected 8.0.16 < 8.1.0")
	}
	if !v.AtLeast(5, 7, 99) {
		t.Error("Expected 8.0.16 >= 5.7.99")
	}
}
