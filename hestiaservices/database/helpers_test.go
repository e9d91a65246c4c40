package database_test

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lunagic/hestia/hestiaservices/database"
	"gotest.tools/v3/assert"
)

type dialect struct {
	name      string
	open      string
	close     string
	newDriver func() database.Driver
}

var dialects = []dialect{
	{
		name:  "mysql",
		open:  "`",
		close: "`",
		newDriver: func() database.Driver {
			return database.NewDriverMySQL(database.DriverMySQLConfig{})
		},
	},
	{
		name:  "pgsql",
		open:  `"`,
		close: `"`,
		newDriver: func() database.Driver {
			return database.NewDriverPostgres(database.DriverPostgresConfig{})
		},
	},
	{
		name:  "sqlite",
		open:  `"`,
		close: `"`,
		newDriver: func() database.Driver {
			return database.NewDriverSQLite(":memory:")
		},
	},
	{
		name:  "sqlsrv",
		open:  "[",
		close: "]",
		newDriver: func() database.Driver {
			return database.NewDriverSQLServer(database.DriverSQLServerConfig{})
		},
	},
}

func dialectNamed(t *testing.T, name string) dialect {
	t.Helper()

	for _, d := range dialects {
		if d.name == name {
			return d
		}
	}

	t.Fatalf("unknown dialect %s", name)

	return dialect{}
}

// mockConnection returns a connection whose handle is a sqlmock database that
// matches statements exactly.
func mockConnection(t *testing.T, driver database.Driver, configFuncs ...database.ConnectionConfigFunc) (*database.Connection, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	assert.NilError(t, err)

	configFuncs = append(configFuncs, database.WithOpener(func() (*sql.DB, error) {
		return db, nil
	}))

	connection, err := database.NewConnection("default", driver, configFuncs...)
	assert.NilError(t, err)

	t.Cleanup(func() {
		assert.NilError(t, mock.ExpectationsWereMet())
	})

	return connection, mock
}
