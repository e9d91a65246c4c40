package hestia_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lunagic/hestia/hestia"
	"github.com/lunagic/hestia/hestiaservices/vault"
	"github.com/spf13/pflag"
	"gotest.tools/v3/assert"
)

const testAppKey = "0123456789abcdef0123456789abcdef"

func TestNewConfig(t *testing.T) {
	t.Parallel()

	config := hestia.NewConfig()
	assert.Equal(t, config.DefaultConnection, "main")
	assert.Equal(t, config.Connections["main"].Driver, "sqlite")
	assert.Equal(t, config.AppDriverCache, "memory")
	assert.Equal(t, config.MaxReconnectAttempts, 3)
}

func TestLoadConfig(t *testing.T) {
	sealed, err := vault.New([]byte(testAppKey)).Seal("s3cret")
	assert.NilError(t, err)

	path := filepath.Join(t.TempDir(), "hestia.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(`
app_key: `+testAppKey+`
default_connection: primary
health_check_interval: 30s
connections:
  primary:
    driver: pgsql
    host: db.internal
    port: 5433
    database: app
    username: app
    password: `+sealed+`
    options:
      sslmode: require
  legacy:
    driver: mysql
    prefix: wp_
`), 0o600))

	t.Setenv("HESTIA_DEBUG", "true")
	t.Setenv("HESTIA_CONNECTIONS__LEGACY__HOST", "10.0.0.7")

	flags := pflag.NewFlagSet("hestia", pflag.ContinueOnError)
	flags.Int("max-reconnect-attempts", 0, "")
	flags.String("default-connection", "", "")
	assert.NilError(t, flags.Parse([]string{"--max-reconnect-attempts=5"}))

	config, err := hestia.LoadConfig(path, flags)
	assert.NilError(t, err)

	{ // File values
		assert.Equal(t, config.DefaultConnection, "primary")
		assert.Equal(t, config.HealthCheckInterval, 30*time.Second)

		primary := config.Connections["primary"]
		assert.Equal(t, primary.Driver, "pgsql")
		assert.Equal(t, primary.Port, 5433)
		assert.DeepEqual(t, primary.Options, map[string]string{"sslmode": "require"})
	}

	{ // Sealed secrets are revealed
		assert.Equal(t, config.Connections["primary"].Password, "s3cret")
	}

	{ // Environment and changed flags win, unchanged flags do not
		assert.Equal(t, config.Debug, true)
		assert.Equal(t, config.Connections["legacy"].Host, "10.0.0.7")
		assert.Equal(t, config.Connections["legacy"].Prefix, "wp_")
		assert.Equal(t, config.MaxReconnectAttempts, 5)
	}

	{ // Defaults remain underneath
		assert.Equal(t, config.AppDriverQueue, "memory")
		assert.Equal(t, config.RedisPort, 6379)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	{ // Missing file
		_, err := hestia.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
		assert.ErrorContains(t, err, "missing.yaml")
	}

	{ // Secret sealed with another key
		sealed, err := vault.New([]byte(testAppKey)).Seal("s3cret")
		assert.NilError(t, err)

		t.Setenv("HESTIA_APP_KEY", "fedcba9876543210fedcba9876543210")
		t.Setenv("HESTIA_CONNECTIONS__MAIN__PASSWORD", sealed)

		_, err = hestia.LoadConfig("", nil)
		assert.ErrorContains(t, err, "connection main password")
	}
}
