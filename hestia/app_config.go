package hestia

import (
	"log/slog"

	"github.com/lunagic/hestia/hestiaservices/database"
	"github.com/lunagic/hestia/hestiaservices/queue"
)

type AppConfigFunc func(app *App) error

func WithLogger(logger *slog.Logger) AppConfigFunc {
	return func(app *App) error {
		app.logger = logger

		return nil
	}
}

// WithConnectionOptions applies configFuncs to every connection the app
// opens, after the ones derived from AppConfig.
func WithConnectionOptions(configFuncs ...database.ConnectionConfigFunc) AppConfigFunc {
	return func(app *App) error {
		app.connectionConfigFuncs = append(app.connectionConfigFuncs, configFuncs...)

		return nil
	}
}

// WithStatementEventHandler publishes every completed statement to the
// configured queue driver and hands it to handler in the background. Handler
// errors are logged.
func WithStatementEventHandler(handler queue.Handler[database.StatementEvent]) AppConfigFunc {
	return func(app *App) error {
		app.statementHandlers = append(app.statementHandlers, handler)

		return nil
	}
}
