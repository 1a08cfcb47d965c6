package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tordrt/dmschema"
	"github.com/tordrt/dmschema/db"
)

var version = "dev"

// app carries the configuration and logger shared by every command.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "dmschema",
		Short:         "Create, alter and inspect database schemas",
		Long:          `dmschema manages tables, constraints, indexes and views on PostgreSQL, SQL Server, MySQL and SQLite through one model, and maps host types to SQL types for each of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("database", "", "Database URL (postgres://, sqlserver://, mysql://, sqlite://, sqlite+pure://)")
	flags.StringP("schema", "s", "", "Schema name (default: the provider's default schema)")
	flags.BoolP("verbose", "v", false, "Log executed statements")
	flags.String("config", "", "Config file (default: ./dmschema.yaml or $HOME/.dmschema/dmschema.yaml)")
	for _, key := range []string{"database", "schema", "verbose"} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(
		a.tablesCmd(),
		a.describeCmd(),
		a.viewsCmd(),
		a.createCmd(),
		a.dropCmd(),
		a.versionCmd(),
		a.mapTypeCmd(),
		a.sqlTypeCmd(),
	)
	return rootCmd
}

// setup loads configuration from flags, DMSCHEMA_* variables and an optional
// config file, then sets up logging.
func (a *app) setup(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("dmschema")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		a.v.SetConfigFile(path)
	} else {
		a.v.SetConfigName("dmschema")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.dmschema")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	level := slog.LevelInfo
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("config loaded", slog.String("file", used))
	}
	return nil
}

// connect opens the configured database and resolves its provider methods.
// Statements run through the returned executor are logged at debug level.
func (a *app) connect(ctx context.Context) (*sqlx.DB, db.Executor, db.DatabaseMethods, error) {
	url := a.v.GetString("database")
	if url == "" {
		return nil, nil, nil, fmt.Errorf("--database or DMSCHEMA_DATABASE must be specified")
	}
	conn, err := dmschema.Open(ctx, url)
	if err != nil {
		return nil, nil, nil, err
	}
	ex := db.NewLoggingExecutor(conn, a.logger)
	m, err := dmschema.MethodsFor(ex)
	if err != nil {
		_ = conn.Close()
		return nil, nil, nil, err
	}
	a.logger.Debug("connected", slog.String("provider", string(m.ProviderType())))
	return conn, ex, m, nil
}

func (a *app) close(conn io.Closer) {
	if err := conn.Close(); err != nil {
		a.logger.Warn("failed to close database connection", slog.Any("error", err))
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
