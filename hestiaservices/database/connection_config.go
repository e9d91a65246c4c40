package database

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lunagic/hestia/hestiaservices/cache"
	"github.com/lunagic/hestia/hestiaservices/queue"
)

type ConnectionConfigFunc func(connection *Connection) error

// WithPostConnectFunc runs callback against every freshly opened handle,
// including the ones opened by a reconnect.
func WithPostConnectFunc(callback func(db *sql.DB) error) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.postConnectFuncs = append(connection.postConnectFuncs, callback)
		return nil
	}
}

func WithPreRunFunc(preRunFunc func(ctx context.Context, statement string, args []any) error) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.preRunFuncs = append(connection.preRunFuncs, preRunFunc)
		return nil
	}
}

func WithPostRunFunc(postRunFunc func(ctx context.Context, event StatementEvent) error) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.postRunFuncs = append(connection.postRunFuncs, postRunFunc)
		return nil
	}
}

func WithLogger(logger *slog.Logger) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.logger = logger
		connection.preRunFuncs = append(connection.preRunFuncs, func(ctx context.Context, statement string, args []any) error {
			if !connection.debug {
				return nil
			}

			logger.Debug("Database Run",
				"connection", connection.name,
				"statement", statement,
				"args", args,
			)

			return nil
		})
		return nil
	}
}

// WithDebug adds the SQL text to execution errors and turns on connection
// lifecycle logging.
func WithDebug(debug bool) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.debug = debug
		return nil
	}
}

// WithOpener replaces the driver's Open, mostly for tests.
func WithOpener(opener func() (*sql.DB, error)) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.opener = opener
		return nil
	}
}

func WithTablePrefix(prefix string) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.driver.setTablePrefix(prefix)
		return nil
	}
}

func WithMaxReconnectAttempts(attempts int) ConnectionConfigFunc {
	return func(connection *Connection) error {
		if attempts < 0 {
			attempts = 0
		}

		connection.maxReconnectAttempts = attempts
		return nil
	}
}

func WithQueryLog() ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.loggingQueries = true
		return nil
	}
}

// WithResultCache stores the rows of statements marked with Remember.
func WithResultCache(driver cache.Driver) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.resultCache = cache.NewRepository[string, []Row](driver, "hestia-"+connection.name).
			OnError(func(err error) {
				connection.logger.Warn("Database Cache Failed",
					"connection", connection.name,
					"error", err,
				)
			})
		return nil
	}
}

// WithStatementEvents publishes a StatementEvent for every statement that
// completes. A failed publish is logged and does not fail the statement.
func WithStatementEvents(events queue.Queue[StatementEvent]) ConnectionConfigFunc {
	return func(connection *Connection) error {
		connection.postRunFuncs = append(connection.postRunFuncs, func(ctx context.Context, event StatementEvent) error {
			if err := events.Publish(ctx, event); err != nil {
				connection.logger.Warn("Database Event Publish Failed",
					"connection", connection.name,
					"error", err,
				)
			}

			return nil
		})
		return nil
	}
}
