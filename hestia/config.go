package hestia

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/lunagic/hestia/hestiaservices/cache"
	"github.com/lunagic/hestia/hestiaservices/database"
	"github.com/lunagic/hestia/hestiaservices/queue"
	"github.com/lunagic/hestia/hestiaservices/vault"
	"github.com/spf13/pflag"
)

const EnvPrefix = "HESTIA_"

type AppConfig struct {
	// App
	AppKey string `koanf:"app_key"`
	Debug  bool   `koanf:"debug"`
	// App Drivers
	AppDriverCache string `koanf:"app_driver_cache"`
	AppDriverQueue string `koanf:"app_driver_queue"`
	// Database
	DefaultConnection    string                               `koanf:"default_connection"`
	Connections          map[string]database.ConnectionConfig `koanf:"connections"`
	MaxReconnectAttempts int                                  `koanf:"max_reconnect_attempts"`
	HealthCheckInterval  time.Duration                        `koanf:"health_check_interval"`
	// Services
	RabbitMQHost  string `koanf:"rabbitmq_host"`
	RabbitMQPass  string `koanf:"rabbitmq_pass"`
	RabbitMQPort  int    `koanf:"rabbitmq_port"`
	RabbitMQUser  string `koanf:"rabbitmq_user"`
	RabbitMQVHost string `koanf:"rabbitmq_vhost"`
	RedisHost     string `koanf:"redis_host"`
	RedisNumber   int    `koanf:"redis_number"`
	RedisPass     string `koanf:"redis_pass"`
	RedisPort     int    `koanf:"redis_port"`
	RedisUser     string `koanf:"redis_user"`
}

func defaults() map[string]any {
	return map[string]any{
		"app_driver_cache":          "memory",
		"app_driver_queue":          "memory",
		"default_connection":        "main",
		"connections.main.driver":   "sqlite",
		"connections.main.database": "database.sqlite",
		"max_reconnect_attempts":    database.DefaultMaxReconnectAttempts,
		"rabbitmq_host":             "127.0.0.1",
		"rabbitmq_port":             5672,
		"redis_host":                "127.0.0.1",
		"redis_port":                6379,
	}
}

// NewConfig returns the built in defaults: one sqlite connection named main
// and in-memory cache and queue drivers.
func NewConfig() AppConfig {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaults(), "."), nil)

	config, _ := load(k)

	return config
}

// LoadConfig layers the defaults, the YAML file at path (skipped when path is
// empty), HESTIA_ environment variables and the changed flags, later sources
// winning. A double underscore in a variable name nests, so
// HESTIA_CONNECTIONS__MAIN__HOST sets connections.main.host. Values sealed by
// the vault are revealed with the app key.
func LoadConfig(path string, flags *pflag.FlagSet) (AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return AppConfig{}, fmt.Errorf("config file %s: %w", path, err)
		}

		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return AppConfig{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}

			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return AppConfig{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	return load(k)
}

func load(k *koanf.Koanf) (AppConfig, error) {
	config := AppConfig{}
	if err := k.Unmarshal("", &config); err != nil {
		return AppConfig{}, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.reveal(); err != nil {
		return AppConfig{}, err
	}

	return config, nil
}

func (config *AppConfig) reveal() error {
	v := config.Vault()

	secrets := []*string{&config.RedisPass, &config.RabbitMQPass}
	for name, connection := range config.Connections {
		password, err := v.Reveal(connection.Password)
		if err != nil {
			return fmt.Errorf("connection %s password: %w", name, err)
		}

		connection.Password = password
		config.Connections[name] = connection
	}

	for _, secret := range secrets {
		revealed, err := v.Reveal(*secret)
		if err != nil {
			return err
		}

		*secret = revealed
	}

	return nil
}

func (config AppConfig) Vault() vault.Vault {
	return vault.New([]byte(config.AppKey))
}

func (config AppConfig) Cache(ctx context.Context) (cache.Driver, error) {
	switch config.AppDriverCache {
	case "memory":
		return cache.NewDriverMemory(ctx)
	case "redis":
		return cache.NewDriverRedis(ctx, cache.DriverRedisConfig{
			Host:   config.RedisHost,
			Number: config.RedisNumber,
			Pass:   config.RedisPass,
			Port:   config.RedisPort,
			User:   config.RedisUser,
		})
	case "", "none":
		return nil, nil
	}

	return nil, fmt.Errorf("invalid cache driver: %s", config.AppDriverCache)
}

func (config AppConfig) Queue() (queue.Driver, error) {
	switch config.AppDriverQueue {
	case "memory":
		return queue.NewDriverMemory()
	case "rabbitmq":
		return queue.NewDriverRabbitMQ(queue.DriverRabbitMQConfig{
			Host:  config.RabbitMQHost,
			Pass:  config.RabbitMQPass,
			Port:  config.RabbitMQPort,
			User:  config.RabbitMQUser,
			VHost: config.RabbitMQVHost,
		})
	}

	return nil, fmt.Errorf("invalid queue driver: %s", config.AppDriverQueue)
}

var ErrNoConnections = errors.New("no database connections configured")

// Database builds the connection registry described by the configuration.
func (config AppConfig) Database(configFuncs ...database.ConnectionConfigFunc) (*database.Registry, error) {
	if len(config.Connections) == 0 {
		return nil, ErrNoConnections
	}

	if _, found := config.Connections[config.DefaultConnection]; !found {
		return nil, database.ErrConfiguration{
			Name:   config.DefaultConnection,
			Reason: "default connection is not configured",
		}
	}

	configFuncs = append([]database.ConnectionConfigFunc{
		database.WithDebug(config.Debug),
		database.WithMaxReconnectAttempts(config.MaxReconnectAttempts),
	}, configFuncs...)

	return database.NewRegistry(config.DefaultConnection, config.Connections, configFuncs...), nil
}
