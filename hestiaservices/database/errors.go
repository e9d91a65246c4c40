package database

import (
	"errors"
	"fmt"
)

var (
	ErrNoRows                = errors.New("no rows found")
	ErrBlankQuery            = errors.New("blank query")
	ErrInvalidPredicate      = errors.New("invalid predicate")
	ErrInvalidOrder          = errors.New("invalid order direction")
	ErrNoTable               = errors.New("no table specified")
	ErrNoValues              = errors.New("no values to write")
	ErrInconsistentInsert    = errors.New("insert rows do not share the same columns")
	ErrStatementCompiled     = errors.New("statement already compiled")
	ErrUnsupported           = errors.New("unsupported by dialect")
	ErrTransactionActive     = errors.New("transaction already active")
	ErrNoTransaction         = errors.New("no active transaction")
	ErrConnectionClosed      = errors.New("connection closed")
	ErrMissingConnectionName = errors.New("missing connection name")
	ErrNoConnection          = errors.New("query builder has no connection")
)

// ErrConfiguration is returned when a connection name or driver name has no
// usable configuration.
type ErrConfiguration struct {
	Name   string
	Reason string
}

func (err ErrConfiguration) Error() string {
	if err.Reason == "" {
		return fmt.Sprintf("database configuration [%s] not configured", err.Name)
	}

	return fmt.Sprintf("database configuration [%s]: %s", err.Name, err.Reason)
}

// ErrConnection wraps the driver error raised while establishing a handle, or
// the last lost-connection error once the reconnect budget is spent.
type ErrConnection struct {
	Driver   string
	Attempts int
	Err      error
}

func (err ErrConnection) Error() string {
	if err.Attempts > 0 {
		return fmt.Sprintf("%s connection lost after %d reconnect attempts: %s", err.Driver, err.Attempts, err.Err)
	}

	return fmt.Sprintf("%s connection failed: %s", err.Driver, err.Err)
}

func (err ErrConnection) Unwrap() error {
	return err.Err
}

// ErrCompilation describes builder state that cannot be turned into valid SQL.
// Reason is one of the package sentinels so callers can match with errors.Is.
type ErrCompilation struct {
	Reason error
	Detail string
}

func (err ErrCompilation) Error() string {
	if err.Detail == "" {
		return err.Reason.Error()
	}

	return fmt.Sprintf("%s: %s", err.Reason, err.Detail)
}

func (err ErrCompilation) Unwrap() error {
	return err.Reason
}

func compilationError(reason error, format string, args ...any) error {
	return ErrCompilation{
		Reason: reason,
		Detail: fmt.Sprintf(format, args...),
	}
}

// ErrExecution is a query-time failure reported by the driver. SQL is only
// populated when the connection runs in debug mode.
type ErrExecution struct {
	SQL string
	Err error
}

func (err ErrExecution) Error() string {
	if err.SQL == "" {
		return err.Err.Error()
	}

	return fmt.Sprintf("%s (SQL: %s)", err.Err, err.SQL)
}

func (err ErrExecution) Unwrap() error {
	return err.Err
}
