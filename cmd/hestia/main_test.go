package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"gotest.tools/v3/assert"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())

	return output.String(), err
}

func sqliteProject(t *testing.T) string {
	t.Helper()

	directory := t.TempDir()
	databasePath := filepath.Join(directory, "app.sqlite")

	db, err := sql.Open("sqlite3", databasePath)
	assert.NilError(t, err)
	_, err = db.Exec(`CREATE TABLE "users" ("id" INTEGER PRIMARY KEY, "email" TEXT, "active" INTEGER)`)
	assert.NilError(t, err)
	_, err = db.Exec(`INSERT INTO "users" ("email", "active") VALUES ('a@example.com', 1), ('b@example.com', 0), ('c@example.com', 1)`)
	assert.NilError(t, err)
	assert.NilError(t, db.Close())

	configPath := filepath.Join(directory, "hestia.yaml")
	assert.NilError(t, os.WriteFile(configPath, []byte(`
default_connection: main
app_driver_cache: none
connections:
  main:
    driver: sqlite
    database: `+databasePath+`
  offline:
    driver: oracle
`), 0o600))

	return configPath
}

func TestCompileCommand(t *testing.T) {
	t.Parallel()

	{ // Each dialect
		output, err := run(t, "compile", "--dialect", "sqlsrv", "--table", "users", "--where", "active=1", "--order", "id:desc", "--limit", "10", "--offset", "20")
		assert.NilError(t, err)
		assert.Assert(t, strings.HasPrefix(output, "SELECT * FROM [users] WHERE [active] = ? ORDER BY [id] DESC OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY\n"), output)
		assert.Assert(t, strings.Contains(output, "Binding"), output)

		output, err = run(t, "compile", "--dialect", "pgsql", "--table", "users", "--select", "id,email", "--prefix", "app_")
		assert.NilError(t, err)
		assert.Equal(t, output, `SELECT "id", "email" FROM "app_users"`+"\n")
	}

	{ // Bad input
		_, err := run(t, "compile", "--dialect", "oracle", "--table", "users")
		assert.ErrorContains(t, err, "oracle")

		_, err = run(t, "compile", "--table", "users", "--where", "active")
		assert.ErrorContains(t, err, "expected column=value")
	}
}

func TestQueryCommand(t *testing.T) {
	t.Parallel()

	configPath := sqliteProject(t)

	output, err := run(t, "--config", configPath, "query", "--table", "users", "--select", "email", "--where", "active=1", "--order", "email")
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(output, "a@example.com"), output)
	assert.Assert(t, strings.Contains(output, "c@example.com"), output)
	assert.Assert(t, !strings.Contains(output, "b@example.com"), output)
	assert.Assert(t, strings.Contains(strings.ToLower(output), "2 rows"), output)
}

func TestPingCommand(t *testing.T) {
	t.Parallel()

	configPath := sqliteProject(t)

	{ // A single healthy connection
		output, err := run(t, "--config", configPath, "ping", "--connection", "main")
		assert.NilError(t, err)
		assert.Assert(t, strings.Contains(output, "sqlite"), output)
		assert.Assert(t, strings.Contains(output, "ok"), output)
	}

	{ // Every connection
		output, err := run(t, "--config", configPath, "ping")
		assert.ErrorIs(t, err, errPingFailed)
		assert.Assert(t, strings.Contains(output, "offline"), output)
	}
}
