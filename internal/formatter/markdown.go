package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dmschema/schema"
)

// MarkdownFormatter formats tables as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the tables in markdown format
func (f *MarkdownFormatter) Format(tables []*schema.Table) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range tables {
		f.formatTable(table, tables)
	}
	return nil
}

// formatTable writes one table; all is used to find incoming references.
func (f *MarkdownFormatter) formatTable(table *schema.Table, all []*schema.Table) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table)

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range table.Columns {
		if flags := columnFlags(col); len(flags) > 0 {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.ColumnName, columnType(col), strings.Join(flags, ", "))
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.ColumnName, columnType(col))
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if table.PrimaryKey != nil {
		_, _ = fmt.Fprintf(f.writer, "Primary key `%s` on (%s)\n\n", table.PrimaryKey.ConstraintName, orderedColumns(table.PrimaryKey.Columns))
	}

	if len(table.ForeignKeyConstraints) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, fk := range table.ForeignKeyConstraints {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s(%s), on delete %s, on update %s\n",
				orderedColumns(fk.SourceColumns),
				fk.ReferencedTableName,
				orderedColumns(fk.ReferencedColumns),
				fk.OnDelete,
				fk.OnUpdate)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if incoming := incomingKeys(table.TableName, all); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced By")
		_, _ = fmt.Fprintln(f.writer)
		for _, fk := range incoming {
			_, _ = fmt.Fprintf(f.writer, "- %s(%s) → %s\n", fk.TableName, orderedColumns(fk.SourceColumns), orderedColumns(fk.ReferencedColumns))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Idx")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			if idx.IsUnique {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", idx.IndexName, orderedColumns(idx.Columns))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", idx.IndexName, orderedColumns(idx.Columns))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}
