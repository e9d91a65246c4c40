package cache

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type DriverRedisConfig struct {
	Host   string
	Number int
	Pass   string
	Port   int
	User   string
}

// NewDriverRedis connects to anything speaking the redis protocol (valkey,
// keydb, dragonfly) and fails when the server does not answer a PING.
func NewDriverRedis(ctx context.Context, config DriverRedisConfig) (Driver, error) {
	if config.Port == 0 {
		config.Port = 6379
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		Username: config.User,
		Password: config.Pass,
		DB:       config.Number,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &driverRedis{client: client}, nil
}

type driverRedis struct {
	client *redis.Client
}

func (driver *driverRedis) Get(ctx context.Context, key string) (string, error) {
	value, err := driver.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}

	return value, err
}

func (driver *driverRedis) Set(ctx context.Context, key string, value string, duration time.Duration) error {
	return driver.client.Set(ctx, key, value, duration).Err()
}

func (driver *driverRedis) Delete(ctx context.Context, key string) error {
	return driver.client.Del(ctx, key).Err()
}
