package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/dmschema"
	"github.com/tordrt/dmschema/db"
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

func optionalFilter(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (a *app) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [filter]",
		Short: "List table names, optionally matching a * or ? filter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, ex, m, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(conn)

			names, err := m.GetTableNames(cmd.Context(), ex, a.v.GetString("schema"), optionalFilter(args))
			if err != nil {
				return err
			}
			for _, name := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func (a *app) describeCmd() *cobra.Command {
	var (
		outputFile string
		outputDir  string
		exclude    []string
	)
	cmd := &cobra.Command{
		Use:   "describe [filter]",
		Short: "Describe tables with their columns, keys and indexes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir != "" && outputFile != "" {
				return fmt.Errorf("cannot use both --output-dir and --output flags")
			}

			conn, ex, _, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(conn)

			opts := &dmschema.Options{ExcludeTables: exclude, SchemaName: a.v.GetString("schema")}
			if filter := optionalFilter(args); filter != "" {
				opts.Tables = []string{filter}
			}
			tables, err := dmschema.ReadTables(cmd.Context(), ex, opts)
			if err != nil {
				return err
			}

			outOpts := &dmschema.OutputOptions{
				Writer:    cmd.OutOrStdout(),
				OutputDir: outputDir,
				Format:    a.v.GetString("format"),
			}
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer a.close(f)
				outOpts.Writer = f
			}
			if err := dmschema.FormatTables(tables, outOpts); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			a.logger.Debug("described tables", slog.Int("count", len(tables)))
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "text", "Output format: text or markdown")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for one file per table")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Tables to leave out (names or * filters, comma-separated)")
	_ = a.v.BindPFlag("format", cmd.Flags().Lookup("format"))
	return cmd
}

func (a *app) viewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "views [filter]",
		Short: "List views and their definitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, ex, m, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(conn)

			views, err := m.GetViews(cmd.Context(), ex, a.v.GetString("schema"), optionalFilter(args))
			if err != nil {
				return err
			}
			for _, v := range views {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "VIEW %s\n  %s\n", v.ViewName, strings.TrimSpace(v.Definition))
			}
			return nil
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create -f file.yaml",
		Short: "Create the tables and views defined in a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open definitions: %w", err)
			}
			defs, err := schema.Load(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			conn, ex, m, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(conn)

			schemaName := a.v.GetString("schema")
			if schemaName != "" && m.SupportsSchemas() {
				if _, err := m.CreateSchemaIfNotExists(cmd.Context(), ex, schemaName); err != nil {
					return err
				}
			}
			for _, t := range defs.Tables {
				if t.SchemaName == "" && schemaName != "" {
					t.SetSchemaName(schemaName)
				}
				created, err := m.CreateTableIfNotExists(cmd.Context(), ex, t)
				if err != nil {
					return err
				}
				report(cmd, "table", t.String(), created)
			}
			for _, v := range defs.Views {
				if v.SchemaName == "" {
					v.SchemaName = schemaName
				}
				created, err := m.CreateViewIfNotExists(cmd.Context(), ex, v)
				if err != nil {
					return err
				}
				report(cmd, "view", v.ViewName, created)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with table and view definitions")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func report(cmd *cobra.Command, kind, name string, created bool) {
	if created {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", kind, name)
	} else {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s already exists\n", kind, name)
	}
}

func (a *app) dropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table if it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, ex, m, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(conn)

			dropped, err := m.DropTableIfExists(cmd.Context(), ex, a.v.GetString("schema"), args[0])
			if err != nil {
				return err
			}
			if dropped {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dropped table %s\n", args[0])
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "table %s does not exist\n", args[0])
			}
			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tool version and, with --database, the server version and capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "dmschema %s\n", version)
			if a.v.GetString("database") == "" {
				return nil
			}

			conn, ex, m, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(conn)

			v, err := m.GetDatabaseVersion(cmd.Context(), ex)
			if err != nil {
				return err
			}
			checks, err := m.SupportsCheckConstraints(cmd.Context(), ex)
			if err != nil {
				return err
			}
			ordered, err := m.SupportsOrderedKeysInConstraints(cmd.Context(), ex)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "provider: %s\n", m.ProviderType())
			_, _ = fmt.Fprintf(out, "server version: %s\n", v)
			_, _ = fmt.Fprintf(out, "schemas: %t\n", m.SupportsSchemas())
			_, _ = fmt.Fprintf(out, "check constraints: %t\n", checks)
			_, _ = fmt.Fprintf(out, "ordered keys in constraints: %t\n", ordered)
			return nil
		},
	}
}

// providersFlag resolves --provider, or every built in provider when unset.
func providersFlag(name string) ([]provider.Type, error) {
	if name == "" {
		return provider.All(), nil
	}
	p, err := provider.Parse(name)
	if err != nil {
		return nil, err
	}
	return []provider.Type{p}, nil
}

func (a *app) mapTypeCmd() *cobra.Command {
	var (
		providerName     string
		length           int
		precision, scale int
		unicode, fixed   bool
	)
	cmd := &cobra.Command{
		Use:   "map-type <host-type>",
		Short: "Show the SQL type each provider uses for a host type",
		Example: `  dmschema map-type string --length 100
  dmschema map-type decimal --precision 10 --scale 2
  dmschema map-type "[]int32" --provider postgres`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := typemap.ParseHostType(args[0])
			if err != nil {
				return err
			}
			d := typemap.Describe(h)
			flags := cmd.Flags()
			if flags.Changed("length") {
				d.Length = typemap.IntPtr(length)
			}
			if flags.Changed("precision") {
				d.Precision = typemap.IntPtr(precision)
			}
			if flags.Changed("scale") {
				d.Scale = typemap.IntPtr(scale)
			}
			if flags.Changed("unicode") {
				d.IsUnicode = typemap.BoolPtr(unicode)
			}
			if flags.Changed("fixed") {
				d.IsFixedLength = typemap.BoolPtr(fixed)
			}

			providers, err := providersFlag(providerName)
			if err != nil {
				return err
			}
			for _, p := range providers {
				tm, err := db.DefaultTypeMaps().Get(p)
				if err != nil {
					return err
				}
				if sqlType, ok := tm.TryGetSQLType(d); ok {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p, sqlType.SQLTypeName)
				} else {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: (not mapped)\n", p)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Provider (default: all)")
	cmd.Flags().IntVar(&length, "length", 0, "Length")
	cmd.Flags().IntVar(&precision, "precision", 0, "Numeric precision")
	cmd.Flags().IntVar(&scale, "scale", 0, "Numeric scale")
	cmd.Flags().BoolVar(&unicode, "unicode", true, "Store text as unicode")
	cmd.Flags().BoolVar(&fixed, "fixed", false, "Use a fixed length type")
	return cmd
}

func (a *app) sqlTypeCmd() *cobra.Command {
	var providerName string
	cmd := &cobra.Command{
		Use:   "sql-type <sql-type>",
		Short: "Show the host type a SQL type reads back as",
		Example: `  dmschema sql-type "varchar(100)" --provider mysql
  dmschema sql-type "numeric(10,2)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := providersFlag(providerName)
			if err != nil {
				return err
			}
			for _, p := range providers {
				tm, err := db.DefaultTypeMaps().Get(p)
				if err != nil {
					return err
				}
				d, ok := tm.TryGetHostType(args[0])
				if !ok {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: (not mapped)\n", p)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p, describeHost(d))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Provider (default: all)")
	return cmd
}

func describeHost(d typemap.HostTypeDescriptor) string {
	parts := []string{d.Type.String()}
	if d.Length != nil {
		parts = append(parts, fmt.Sprintf("length=%d", *d.Length))
	}
	if d.Precision != nil {
		parts = append(parts, fmt.Sprintf("precision=%d", *d.Precision))
	}
	if d.Scale != nil {
		parts = append(parts, fmt.Sprintf("scale=%d", *d.Scale))
	}
	if d.IsUnicode != nil {
		parts = append(parts, fmt.Sprintf("unicode=%t", *d.IsUnicode))
	}
	if d.IsFixedLength != nil {
		parts = append(parts, fmt.Sprintf("fixed=%t", *d.IsFixedLength))
	}
	return strings.Join(parts, " ")
}
