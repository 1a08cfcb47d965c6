package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dmschema/schema"
)

// TextFormatter formats tables as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the tables in compact text format
func (f *TextFormatter) Format(tables []*schema.Table) error {
	for i, table := range tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(table, tables)
	}
	return nil
}

func (f *TextFormatter) formatTable(table *schema.Table, all []*schema.Table) {
	pkStr := ""
	if table.PrimaryKey != nil {
		pkStr = fmt.Sprintf(" (PK: %s)", orderedColumns(table.PrimaryKey.Columns))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", table, pkStr)

	for _, col := range table.Columns {
		parts := append([]string{col.ColumnName + ":", columnType(col)}, columnFlags(col)...)
		_, _ = fmt.Fprintf(f.writer, "  %s\n", strings.Join(parts, " "))
	}

	if len(table.ForeignKeyConstraints) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, fk := range table.ForeignKeyConstraints {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s(%s) ON DELETE %s\n",
				orderedColumns(fk.SourceColumns), fk.ReferencedTableName, orderedColumns(fk.ReferencedColumns), fk.OnDelete)
		}
	}
	if incoming := incomingKeys(table.TableName, all); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  REFERENCED BY:")
		for _, fk := range incoming {
			_, _ = fmt.Fprintf(f.writer, "    ← %s(%s)\n", fk.TableName, orderedColumns(fk.SourceColumns))
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.IndexName, orderedColumns(idx.Columns), unique)
		}
	}
}
