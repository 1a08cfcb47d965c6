package db

import (
	"errors"
	"fmt"

	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
)

var (
	// ErrInvalidArgument is returned for missing names, expressions or definitions.
	ErrInvalidArgument = schema.ErrInvalidArgument

	// ErrProviderNotFound is returned when no registered provider accepts a connection.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrTypeNotMapped is returned when a column's host type has no SQL type on the provider.
	ErrTypeNotMapped = errors.New("type not mapped")

	// ErrForeignKeysEnforced is returned when a SQLite table rebuild runs inside a
	// transaction with foreign keys enabled. Dropping the old table would fire
	// ON DELETE actions on referencing rows.
	ErrForeignKeysEnforced = errors.New("foreign keys are enforced inside the transaction")

	// errRebuildTable is returned by DDL builders when the change requires recreating the table.
	errRebuildTable = errors.New("table rebuild required")
)

// OperationError identifies the provider, operation and object behind a failure.
// The underlying driver error stays reachable through errors.As and errors.Is.
type OperationError struct {
	Provider  provider.Type
	Operation string
	Object    string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("[%s] %s: %v", e.Provider, e.Operation, e.Err)
	}
	return fmt.Sprintf("[%s] %s %s: %v", e.Provider, e.Operation, e.Object, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
