package db

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tordrt/dmschema/provider"
)

// Executor is the connection or transaction every operation runs against.
// Both *sqlx.DB and *sqlx.Tx satisfy it.
type Executor = sqlx.ExtContext

// ProviderHinter is implemented by executors that wrap another connection and
// want to be treated as the wrapped provider.
type ProviderHinter interface {
	Provider() provider.Type
}

// LoggingExecutor logs every statement before delegating to the wrapped executor.
type LoggingExecutor struct {
	ex     Executor
	logger *slog.Logger
	hint   provider.Type
}

// NewLoggingExecutor wraps ex. The provider of ex is resolved through the
// default registry so the wrapper keeps dispatching to the same methods.
func NewLoggingExecutor(ex Executor, logger *slog.Logger) *LoggingExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	l := &LoggingExecutor{ex: ex, logger: logger}
	if h, ok := ex.(ProviderHinter); ok {
		l.hint = h.Provider()
	} else if p, ok := providerForDriver(ex.DriverName()); ok {
		l.hint = p
	}
	return l
}

// Provider implements ProviderHinter.
func (l *LoggingExecutor) Provider() provider.Type {
	return l.hint
}

// Unwrap returns the wrapped executor.
func (l *LoggingExecutor) Unwrap() Executor {
	return l.ex
}

func (l *LoggingExecutor) log(ctx context.Context, query string, args []any, start time.Time, err error) {
	attrs := []any{
		slog.String("provider", string(l.hint)),
		slog.String("sql", query),
		slog.Any("args", args),
		slog.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		l.logger.DebugContext(ctx, "statement failed", append(attrs, slog.Any("error", err))...)
		return
	}
	l.logger.DebugContext(ctx, "statement executed", attrs...)
}

// DriverName implements sqlx.ExtContext.
func (l *LoggingExecutor) DriverName() string {
	return l.ex.DriverName()
}

// Rebind implements sqlx.ExtContext.
func (l *LoggingExecutor) Rebind(query string) string {
	return l.ex.Rebind(query)
}

// BindNamed implements sqlx.ExtContext.
func (l *LoggingExecutor) BindNamed(query string, arg any) (string, []any, error) {
	return l.ex.BindNamed(query, arg)
}

// QueryContext implements sqlx.ExtContext.
func (l *LoggingExecutor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := l.ex.QueryContext(ctx, query, args...)
	l.log(ctx, query, args, start, err)
	return rows, err
}

// QueryxContext implements sqlx.ExtContext.
func (l *LoggingExecutor) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	start := time.Now()
	rows, err := l.ex.QueryxContext(ctx, query, args...)
	l.log(ctx, query, args, start, err)
	return rows, err
}

// QueryRowxContext implements sqlx.ExtContext.
func (l *LoggingExecutor) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	start := time.Now()
	row := l.ex.QueryRowxContext(ctx, query, args...)
	l.log(ctx, query, args, start, row.Err())
	return row
}

// ExecContext implements sqlx.ExtContext.
func (l *LoggingExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := l.ex.ExecContext(ctx, query, args...)
	l.log(ctx, query, args, start, err)
	return res, err
}
