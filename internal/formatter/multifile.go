package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/schema"
)

// MultiFileFormatter writes one file per table plus an overview
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the tables to the output directory
func (f *MultiFileFormatter) Format(tables []*schema.Table) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) { f.writeOverview(w, tables) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range tables {
		err := f.writeFile(TableFileName(table), func(w io.Writer) {
			if f.OutputFormat == FormatMarkdown {
				NewMarkdownFormatter(w).formatTable(table, tables)
			} else {
				NewTextFormatter(w).formatTable(table, tables)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.TableName, err)
		}
	}
	return nil
}

// TableFileName returns the base name, without extension, of a table's file.
func TableFileName(table *schema.Table) string {
	if table.SchemaName == "" {
		return naming.Sanitize(table.TableName)
	}
	return naming.Sanitize(table.SchemaName) + "." + naming.Sanitize(table.TableName)
}

func (f *MultiFileFormatter) writeFile(base string, write func(io.Writer)) error {
	file, err := os.Create(filepath.Join(f.OutputDir, base+f.fileExtension()))
	if err != nil {
		return err
	}
	write(file)
	return file.Close()
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, tables []*schema.Table) {
	ext := f.fileExtension()
	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", ext)
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
		for _, t := range sortedTables(tables) {
			_, _ = fmt.Fprintf(w, "- [%s](%s%s): %d columns, %d references\n",
				t, TableFileName(t), ext, len(t.Columns), len(t.ForeignKeyConstraints))
		}
		return
	}
	_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW (%d tables)\n\n", len(tables))
	for _, t := range sortedTables(tables) {
		_, _ = fmt.Fprintf(w, "%s -> %s%s\n", t, TableFileName(t), ext)
	}
}

func (f *MultiFileFormatter) fileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
