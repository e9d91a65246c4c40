package database

import (
	"context"
	"fmt"
	"log/slog"
)

func (connection *Connection) InTransaction() bool {
	return connection.tx != nil
}

// Begin opens a transaction on the connection. Transactions do not nest.
func (connection *Connection) Begin(ctx context.Context) error {
	if connection.tx != nil {
		return ErrTransactionActive
	}

	if err := connection.connect(ctx); err != nil {
		return err
	}

	tx, err := connection.db.BeginTx(ctx, nil)
	if err != nil && causedByLostConnection(err) {
		if err := connection.Reconnect(ctx); err != nil {
			return err
		}

		tx, err = connection.db.BeginTx(ctx, nil)
	}
	if err != nil {
		return connection.executionError(statement{Query: "BEGIN"}, err)
	}

	connection.tx = tx

	return nil
}

func (connection *Connection) Commit() error {
	if connection.tx == nil {
		return ErrNoTransaction
	}

	tx := connection.tx
	connection.tx = nil

	if err := tx.Commit(); err != nil {
		return connection.transactionError("COMMIT", err)
	}

	return nil
}

func (connection *Connection) Rollback() error {
	if connection.tx == nil {
		return ErrNoTransaction
	}

	tx := connection.tx
	connection.tx = nil

	if err := tx.Rollback(); err != nil {
		return connection.transactionError("ROLLBACK", err)
	}

	return nil
}

func (connection *Connection) transactionError(query string, err error) error {
	if causedByLostConnection(err) {
		return ErrConnection{
			Driver: connection.driver.Name(),
			Err:    err,
		}
	}

	return connection.executionError(statement{Query: query}, err)
}

// Transaction runs callback inside a transaction. The transaction is committed
// when callback returns nil and rolled back when it returns an error or
// panics. The callback's error, or panic, reaches the caller unchanged.
func (connection *Connection) Transaction(
	ctx context.Context,
	callback func(ctx context.Context, connection *Connection) error,
) error {
	if err := connection.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			connection.rollbackAfterFailure(ctx, fmt.Errorf("panic: %v", recovered))
			panic(recovered)
		}
	}()

	if err := callback(ctx, connection); err != nil {
		connection.rollbackAfterFailure(ctx, err)
		return err
	}

	return connection.Commit()
}

func (connection *Connection) rollbackAfterFailure(ctx context.Context, cause error) {
	if connection.tx == nil {
		return
	}

	if err := connection.Rollback(); err != nil {
		connection.logAttrs(ctx, slog.LevelError, "Database Rollback Failed",
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()),
		)
	}
}
