package database_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lunagic/hestia/hestiaservices/database"
	"gotest.tools/v3/assert"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()

	registry := database.NewRegistry("main", map[string]database.ConnectionConfig{
		"main": {
			Driver:   "sqlite",
			Database: filepath.Join(directory, "main.db"),
		},
		"archive": {
			Driver:   "sqlite",
			Database: filepath.Join(directory, "archive.db"),
			Prefix:   "old_",
		},
		"broken": {
			Driver: "oracle",
		},
	})

	{ // Names are sorted
		assert.DeepEqual(t, registry.Names(), []string{"archive", "broken", "main"})
	}

	{ // The empty name is the default connection and connections are reused
		main, err := registry.Connection("")
		assert.NilError(t, err)
		assert.Equal(t, main.Name(), "main")

		again, err := registry.Connection("main")
		assert.NilError(t, err)
		assert.Assert(t, main == again)

		assert.NilError(t, main.Ping(t.Context()))
	}

	{ // Each connection carries its own prefix
		archive, err := registry.Connection("archive")
		assert.NilError(t, err)
		assert.Equal(t, archive.Driver().Name(), "sqlite")

		sql, err := archive.Table("users").ToSQL()
		assert.NilError(t, err)
		assert.Equal(t, sql, `SELECT * FROM "old_users"`)
	}

	{ // Table starts on the default connection
		query, err := registry.Table("users")
		assert.NilError(t, err)

		sql, err := query.ToSQL()
		assert.NilError(t, err)
		assert.Equal(t, sql, `SELECT * FROM "users"`)
	}

	{ // Unknown names and drivers are configuration errors
		_, err := registry.Connection("missing")
		configurationError := database.ErrConfiguration{}
		assert.Assert(t, errors.As(err, &configurationError))
		assert.Equal(t, configurationError.Name, "missing")

		_, err = registry.Connection("broken")
		assert.Assert(t, errors.As(err, &configurationError))
		assert.Equal(t, configurationError.Name, "oracle")
	}

	{ // Purge forgets the connection
		before, err := registry.Connection("main")
		assert.NilError(t, err)

		assert.NilError(t, registry.Purge("main"))

		after, err := registry.Connection("main")
		assert.NilError(t, err)
		assert.Assert(t, before != after)
	}

	{ // Closed registries hand out nothing
		assert.NilError(t, registry.Close())

		_, err := registry.Connection("main")
		assert.ErrorIs(t, err, database.ErrConnectionClosed)
	}
}

func TestRegistryWithoutDefault(t *testing.T) {
	t.Parallel()

	registry := database.NewRegistry("", map[string]database.ConnectionConfig{})

	_, err := registry.Connection("")
	assert.ErrorIs(t, err, database.ErrMissingConnectionName)
}
