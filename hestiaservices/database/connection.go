package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lunagic/hestia/hestiaservices/cache"
	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
)

const DefaultMaxReconnectAttempts = 3

// Connection owns one live database handle. A Connection is not safe for
// concurrent use: callers running statements from several goroutines must
// serialize access themselves.
type Connection struct {
	name                 string
	driver               Driver
	opener               func() (*sql.DB, error)
	db                   *sql.DB
	tx                   *sql.Tx
	logger               *slog.Logger
	debug                bool
	maxReconnectAttempts int
	reconnectAttempts    int
	loggingQueries       bool
	queryLog             []QueryLogEntry
	preRunFuncs          []func(ctx context.Context, statement string, args []any) error
	postRunFuncs         []func(ctx context.Context, event StatementEvent) error
	postConnectFuncs     []func(db *sql.DB) error
	resultCache          *cache.Repository[string, []Row]
}

type QueryLogEntry struct {
	SQL      string
	Bindings []any
	Elapsed  time.Duration
}

// NewConnection prepares a connection. The handle is opened on first use.
func NewConnection(
	name string,
	driver Driver,
	configFuncs ...ConnectionConfigFunc,
) (*Connection, error) {
	connection := &Connection{
		name:                 name,
		driver:               driver,
		opener:               driver.Open,
		logger:               slog.Default(),
		maxReconnectAttempts: DefaultMaxReconnectAttempts,
		preRunFuncs:          []func(ctx context.Context, statement string, args []any) error{},
		postRunFuncs:         []func(ctx context.Context, event StatementEvent) error{},
		postConnectFuncs:     []func(db *sql.DB) error{},
	}

	for _, configFunc := range configFuncs {
		if err := configFunc(connection); err != nil {
			return nil, err
		}
	}

	return connection, nil
}

func (connection *Connection) Name() string {
	return connection.name
}

func (connection *Connection) Driver() Driver {
	return connection.driver
}

// Table starts a new statement against table.
func (connection *Connection) Table(table string) *QueryBuilder {
	return newQueryBuilder(connection, connection.driver).From(table)
}

// Query starts a new statement without a table, for use with From.
func (connection *Connection) Query() *QueryBuilder {
	return newQueryBuilder(connection, connection.driver)
}

func (connection *Connection) Ping(ctx context.Context) error {
	if err := connection.connect(ctx); err != nil {
		return err
	}

	return connection.db.PingContext(ctx)
}

// Disconnect closes the handle. An open transaction is abandoned.
func (connection *Connection) Disconnect() error {
	connection.tx = nil

	if connection.db == nil {
		return nil
	}

	db := connection.db
	connection.db = nil

	return db.Close()
}

// Reconnect replaces the handle in place.
func (connection *Connection) Reconnect(ctx context.Context) error {
	if err := connection.Disconnect(); err != nil {
		connection.logger.Debug("Database Disconnect Failed",
			"connection", connection.name,
			"error", err,
		)
	}

	return connection.connect(ctx)
}

func (connection *Connection) connect(ctx context.Context) error {
	if connection.db != nil {
		return nil
	}

	if connection.debug {
		connection.logAttrs(ctx, slog.LevelDebug, "Database Connect")
	}

	db, err := connection.opener()
	if err != nil {
		return connection.connectionFailed(ctx, err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return connection.connectionFailed(ctx, err)
	}

	for _, postConnectFunc := range connection.postConnectFuncs {
		if err := postConnectFunc(db); err != nil {
			_ = db.Close()
			return connection.connectionFailed(ctx, err)
		}
	}

	connection.db = db

	return nil
}

func (connection *Connection) connectionFailed(ctx context.Context, err error) error {
	if connection.debug {
		connection.logAttrs(ctx, slog.LevelError, "Database Connect Failed", slog.String("error", err.Error()))
	}

	return ErrConnection{
		Driver: connection.driver.Name(),
		Err:    err,
	}
}

// logAttrs logs with the connection's identifying attributes. Credentials are
// never part of them.
func (connection *Connection) logAttrs(ctx context.Context, level slog.Level, message string, attrs ...slog.Attr) {
	description := connection.driver.describe()

	connection.logger.LogAttrs(ctx, level, message, append([]slog.Attr{
		slog.String("connection", connection.name),
		slog.String("driver", connection.driver.Name()),
		slog.String("host", description.Host),
		slog.String("database", description.Database),
		slog.String("username", description.Username),
	}, attrs...)...)
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (connection *Connection) executor() executor {
	if connection.tx != nil {
		return connection.tx
	}

	return connection.db
}

// Select runs a raw query and returns its rows.
func (connection *Connection) Select(ctx context.Context, query string, bindings ...any) ([]Row, error) {
	return connection.runSelect(ctx, statement{Query: query, Bindings: bindings})
}

// Statement runs a raw statement.
func (connection *Connection) Statement(ctx context.Context, query string, bindings ...any) (sql.Result, error) {
	return connection.runExecute(ctx, statement{Query: query, Bindings: bindings})
}

// AffectingStatement runs a raw statement and returns the affected row count.
func (connection *Connection) AffectingStatement(ctx context.Context, query string, bindings ...any) (int64, error) {
	result, err := connection.runExecute(ctx, statement{Query: query, Bindings: bindings})
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (connection *Connection) runSelect(ctx context.Context, s statement) ([]Row, error) {
	var result []Row

	err := connection.run(ctx, s, func(ctx context.Context, executor executor, query string, args []any) error {
		rows, err := executor.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		result, err = scanRows(rows)

		return err
	})

	return result, err
}

func (connection *Connection) runExecute(ctx context.Context, s statement) (sql.Result, error) {
	var result sql.Result

	err := connection.run(ctx, s, func(ctx context.Context, executor executor, query string, args []any) error {
		var err error
		result, err = executor.ExecContext(ctx, query, args...)

		return err
	})

	return result, err
}

// run executes callback with the prepared statement. A lost connection outside
// a transaction is retried on a fresh handle until maxReconnectAttempts
// consecutive reconnects have failed to get the statement through.
func (connection *Connection) run(
	ctx context.Context,
	s statement,
	callback func(ctx context.Context, executor executor, query string, args []any) error,
) error {
	if s.isBlank() {
		return ErrBlankQuery
	}

	if err := connection.connect(ctx); err != nil {
		return err
	}

	preparedQuery := utils.Prepare(s.Query, connection.driver.placeholderStyle())
	preparedArgs := normalizeBindings(connection.driver.DateFormat(), s.Bindings)

	for _, preRunFunc := range connection.preRunFuncs {
		if err := preRunFunc(ctx, preparedQuery, preparedArgs); err != nil {
			return err
		}
	}

	for {
		start := time.Now()
		err := callback(ctx, connection.executor(), preparedQuery, preparedArgs)
		elapsed := time.Since(start)

		if err == nil {
			connection.reconnectAttempts = 0
			return connection.afterRun(ctx, s, elapsed)
		}

		if ctx.Err() != nil || !causedByLostConnection(err) {
			return connection.executionError(s, err)
		}

		if connection.tx != nil {
			tx := connection.tx
			connection.tx = nil

			// The transaction is gone with the connection, but the Tx still
			// holds its pooled handle until it is released.
			if rollbackErr := tx.Rollback(); rollbackErr != nil && connection.debug {
				connection.logAttrs(ctx, slog.LevelWarn, "Database Rollback Failed",
					slog.String("cause", err.Error()),
					slog.String("error", rollbackErr.Error()),
				)
			}

			return ErrConnection{
				Driver: connection.driver.Name(),
				Err:    err,
			}
		}

		if connection.reconnectAttempts >= connection.maxReconnectAttempts {
			attempts := connection.reconnectAttempts
			connection.reconnectAttempts = 0

			return ErrConnection{
				Driver:   connection.driver.Name(),
				Attempts: attempts,
				Err:      err,
			}
		}

		connection.reconnectAttempts++

		if connection.debug {
			connection.logAttrs(ctx, slog.LevelWarn, "Database Reconnect",
				slog.Int("attempt", connection.reconnectAttempts),
				slog.String("error", err.Error()),
			)
		}

		if err := connection.Reconnect(ctx); err != nil {
			connection.reconnectAttempts = 0
			return err
		}
	}
}

func (connection *Connection) afterRun(ctx context.Context, s statement, elapsed time.Duration) error {
	if connection.loggingQueries {
		connection.queryLog = append(connection.queryLog, QueryLogEntry{
			SQL:      s.Query,
			Bindings: s.Bindings,
			Elapsed:  elapsed,
		})
	}

	event := StatementEvent{
		Connection: connection.name,
		SQL:        s.Query,
		Bindings:   s.Bindings,
		Elapsed:    elapsed,
	}

	for _, postRunFunc := range connection.postRunFuncs {
		if err := postRunFunc(ctx, event); err != nil {
			return err
		}
	}

	return nil
}

func (connection *Connection) executionError(s statement, err error) error {
	executionError := ErrExecution{
		Err: err,
	}

	if connection.debug {
		executionError.SQL = s.Query
	}

	return executionError
}

func (connection *Connection) EnableQueryLog() {
	connection.loggingQueries = true
}

func (connection *Connection) DisableQueryLog() {
	connection.loggingQueries = false
}

func (connection *Connection) QueryLog() []QueryLogEntry {
	return connection.queryLog
}

func (connection *Connection) FlushQueryLog() {
	connection.queryLog = nil
}
