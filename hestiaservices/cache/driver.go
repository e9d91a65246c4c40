package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get for keys that were never set, were deleted or
// have expired.
var ErrMiss = errors.New("cache miss")

// Driver is a string key value store with per entry expiry.
type Driver interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, duration time.Duration) error
	Delete(ctx context.Context, key string) error
}

var (
	_ Driver = (*driverMemory)(nil)
	_ Driver = (*driverRedis)(nil)
)
