package hestia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lunagic/hestia/hestia/internal/agenda"
	"github.com/lunagic/hestia/hestiaservices/database"
	"github.com/lunagic/hestia/hestiaservices/queue"
)

const statementQueueName = "hestia-statements"

// NewApp opens the connection registry described by config. Background work
// (statement event handlers and the health check) stops on Close or when ctx
// is done.
func NewApp(
	ctx context.Context,
	config AppConfig,
	configFuncs ...AppConfigFunc,
) (
	*App,
	error,
) {
	app := &App{
		config: config,
		logger: slog.Default(),
	}

	for _, configFunc := range configFuncs {
		if err := configFunc(app); err != nil {
			return nil, err
		}
	}

	ctx, app.cancel = context.WithCancel(ctx)

	connectionConfigFuncs := []database.ConnectionConfigFunc{
		database.WithLogger(app.logger),
	}

	cacheDriver, err := config.Cache(ctx)
	if err != nil {
		app.cancel()
		return nil, err
	}

	if cacheDriver != nil {
		connectionConfigFuncs = append(connectionConfigFuncs, database.WithResultCache(cacheDriver))
	}

	if len(app.statementHandlers) > 0 {
		events, err := app.statementEvents(ctx)
		if err != nil {
			app.cancel()
			return nil, err
		}

		connectionConfigFuncs = append(connectionConfigFuncs, database.WithStatementEvents(events))
	}

	app.registry, err = config.Database(append(connectionConfigFuncs, app.connectionConfigFuncs...)...)
	if err != nil {
		app.cancel()
		return nil, err
	}

	if config.HealthCheckInterval > 0 {
		app.goBackground(func() {
			_ = agenda.Interval(ctx, config.HealthCheckInterval, app.healthCheck, func(ctx context.Context, err error) error {
				app.logger.Error("Database Health Check Failed", "error", err)
				return nil
			})
		})
	}

	return app, nil
}

type App struct {
	config                AppConfig
	logger                *slog.Logger
	registry              *database.Registry
	connectionConfigFuncs []database.ConnectionConfigFunc
	statementHandlers     []queue.Handler[database.StatementEvent]
	cancel                context.CancelFunc
	background            sync.WaitGroup
}

func (app *App) Config() AppConfig {
	return app.config
}

func (app *App) Logger() *slog.Logger {
	return app.logger
}

func (app *App) Registry() *database.Registry {
	return app.registry
}

// Connection returns the named connection, the default one when name is
// empty.
func (app *App) Connection(name string) (*database.Connection, error) {
	return app.registry.Connection(name)
}

// Table starts a statement on the default connection.
func (app *App) Table(table string) (*database.QueryBuilder, error) {
	return app.registry.Table(table)
}

// Close stops the background work and disconnects every connection.
func (app *App) Close() error {
	app.cancel()
	app.background.Wait()

	return app.registry.Close()
}

func (app *App) goBackground(work func()) {
	app.background.Add(1)
	go func() {
		defer app.background.Done()
		work()
	}()
}

func (app *App) statementEvents(ctx context.Context) (queue.Queue[database.StatementEvent], error) {
	queueDriver, err := app.config.Queue()
	if err != nil {
		return queue.Queue[database.StatementEvent]{}, err
	}

	events, err := queue.NewQueue[database.StatementEvent](ctx, queueDriver, statementQueueName)
	if err != nil {
		return queue.Queue[database.StatementEvent]{}, err
	}

	app.goBackground(func() {
		err := events.Consume(ctx, func(ctx context.Context, event database.StatementEvent) error {
			for _, handler := range app.statementHandlers {
				if err := handler(ctx, event); err != nil {
					app.logger.Error("Statement Event Handler Failed",
						"connection", event.Connection,
						"error", err,
					)
				}
			}

			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error("Statement Event Consumer Stopped", "error", err)
		}
	})

	return events, nil
}

// healthCheck pings every configured connection on a handle of its own, so
// the check never shares state with the registry's connections.
func (app *App) healthCheck(ctx context.Context) error {
	errs := []error{}

	for _, name := range app.registry.Names() {
		if err := ping(ctx, app.config.Connections[name]); err != nil {
			errs = append(errs, fmt.Errorf("connection %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

func ping(ctx context.Context, config database.ConnectionConfig) error {
	driver, err := database.NewDriver(config)
	if err != nil {
		return err
	}

	db, err := driver.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	return db.PingContext(ctx)
}
