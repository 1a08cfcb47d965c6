// Package provider identifies the SQL dialects dmschema can drive.
package provider

import (
	"fmt"
	"strings"
)

// Type identifies a database provider.
type Type string

const (
	PostgreSQL Type = "postgresql"
	SQLServer  Type = "sqlserver"
	MySQL      Type = "mysql"
	SQLite     Type = "sqlite"
)

// All returns the built-in providers in registration order.
func All() []Type {
	return []Type{PostgreSQL, SQLServer, MySQL, SQLite}
}

var aliases = map[string]Type{
	"postgresql": PostgreSQL,
	"postgres":   PostgreSQL,
	"pg":         PostgreSQL,
	"pgx":        PostgreSQL,
	"sqlserver":  SQLServer,
	"mssql":      SQLServer,
	"azuresql":   SQLServer,
	"mysql":      MySQL,
	"mariadb":    MySQL,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
}

// Parse resolves a provider name or common alias.
func Parse(name string) (Type, error) {
	if t, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown provider %q", name)
}

// String returns the provider name.
func (t Type) String() string {
	return string(t)
}

// UnmarshalText lets providers be used as YAML map keys.
func (t *Type) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = p
	return nil
}

// MarshalText renders the canonical provider name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t), nil
}
