// Package formatter renders introspected tables for people and agents.
package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
)

const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Formatter writes a set of tables.
type Formatter interface {
	Format(tables []*schema.Table) error
}

// columnType returns the declared SQL type, when one is known, with the mapped host type.
func columnType(c *schema.Column) string {
	host := "unmapped"
	if !c.HostType.IsZero() {
		host = c.HostType.String()
	}
	for _, p := range provider.All() {
		if t, ok := c.ProviderType(p); ok {
			return fmt.Sprintf("%s (%s)", t, host)
		}
	}
	return host
}

// columnFlags lists the constraints that apply to one column.
func columnFlags(c *schema.Column) []string {
	var flags []string
	if c.IsPrimaryKey {
		flags = append(flags, "PK")
	}
	if c.IsAutoIncrement {
		flags = append(flags, "AUTO INCREMENT")
	}
	if c.IsUnique {
		flags = append(flags, "UNIQUE")
	}
	if !c.IsNullable {
		flags = append(flags, "NOT NULL")
	}
	if c.DefaultExpression != "" {
		flags = append(flags, "DEFAULT "+c.DefaultExpression)
	}
	if c.CheckExpression != "" {
		flags = append(flags, "CHECK("+c.CheckExpression+")")
	}
	return flags
}

func orderedColumns(cols []schema.OrderedColumn) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func sortedTables(tables []*schema.Table) []*schema.Table {
	out := make([]*schema.Table, len(tables))
	copy(out, tables)
	sort.Slice(out, func(i, j int) bool {
		return out[i].TableName < out[j].TableName
	})
	return out
}

// incomingKeys finds the foreign keys of other tables that reference table.
func incomingKeys(table string, tables []*schema.Table) []*schema.ForeignKeyConstraint {
	var out []*schema.ForeignKeyConstraint
	for _, t := range tables {
		for _, fk := range t.ForeignKeyConstraints {
			if strings.EqualFold(fk.ReferencedTableName, table) {
				out = append(out, fk)
			}
		}
	}
	return out
}
