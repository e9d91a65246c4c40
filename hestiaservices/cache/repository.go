package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NewRepository stores JSON encoded values of one type under a key prefix.
func NewRepository[Key comparable, Value any](
	driver Driver,
	prefix string,
) *Repository[Key, Value] {
	return &Repository[Key, Value]{
		driver:  driver,
		prefix:  prefix,
		onError: func(error) {},
	}
}

type Repository[Key comparable, Value any] struct {
	driver  Driver
	prefix  string
	onError func(err error)
}

// OnError receives the cache failures Remember recovers from.
func (r *Repository[Key, Value]) OnError(handler func(err error)) *Repository[Key, Value] {
	r.onError = handler

	return r
}

func (r *Repository[Key, Value]) key(key Key) string {
	return fmt.Sprintf("%s-%v", r.prefix, key)
}

func (r *Repository[Key, Value]) Set(ctx context.Context, key Key, value Value, duration time.Duration) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.driver.Set(ctx, r.key(key), string(jsonBytes), duration)
}

func (r *Repository[Key, Value]) Get(ctx context.Context, key Key) (Value, error) {
	var target Value

	raw, err := r.driver.Get(ctx, r.key(key))
	if err != nil {
		return target, err
	}

	if err := json.Unmarshal([]byte(raw), &target); err != nil {
		return target, fmt.Errorf("decode %s: %w", r.key(key), err)
	}

	return target, nil
}

func (r *Repository[Key, Value]) Delete(ctx context.Context, key Key) error {
	return r.driver.Delete(ctx, r.key(key))
}

// Remember returns the cached value for key, calling compute and storing its
// result on a miss. A broken cache never fails the call: read and write errors
// go to the OnError handler and compute is used directly.
func (r *Repository[Key, Value]) Remember(ctx context.Context, key Key, duration time.Duration, compute func(ctx context.Context) (Value, error)) (Value, error) {
	value, err := r.Get(ctx, key)
	if err == nil {
		return value, nil
	}

	if !errors.Is(err, ErrMiss) {
		r.onError(err)
	}

	value, err = compute(ctx)
	if err != nil {
		return value, err
	}

	if err := r.Set(ctx, key, value, duration); err != nil {
		r.onError(err)
	}

	return value, nil
}
