package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lunagic/hestia/hestiaservices/cache"
	"gotest.tools/v3/assert"
)

type brokenDriver struct{}

var errBroken = errors.New("cache unavailable")

func (brokenDriver) Delete(ctx context.Context, key string) error { return errBroken }
func (brokenDriver) Get(ctx context.Context, key string) (string, error) {
	return "", errBroken
}
func (brokenDriver) Set(ctx context.Context, key string, value string, duration time.Duration) error {
	return errBroken
}

type order struct {
	ID    int
	Items []string
}

func TestRepository(t *testing.T) {
	t.Parallel()

	driver, err := cache.NewDriverMemory(t.Context())
	assert.NilError(t, err)

	repository := cache.NewRepository[int, order](driver, uuid.NewString())

	{ // Missing keys
		_, err := repository.Get(t.Context(), 1)
		assert.ErrorIs(t, err, cache.ErrMiss)
	}

	{ // Values survive the round trip
		assert.NilError(t, repository.Set(t.Context(), 1, order{ID: 1, Items: []string{"a", "b"}}, time.Minute))

		value, err := repository.Get(t.Context(), 1)
		assert.NilError(t, err)
		assert.DeepEqual(t, value, order{ID: 1, Items: []string{"a", "b"}})
	}

	{ // Delete
		assert.NilError(t, repository.Delete(t.Context(), 1))

		_, err := repository.Get(t.Context(), 1)
		assert.ErrorIs(t, err, cache.ErrMiss)
	}

	{ // Remember computes once
		calls := 0
		compute := func(ctx context.Context) (order, error) {
			calls++
			return order{ID: 2}, nil
		}

		for range 3 {
			value, err := repository.Remember(t.Context(), 2, time.Minute, compute)
			assert.NilError(t, err)
			assert.Equal(t, value.ID, 2)
		}
		assert.Equal(t, calls, 1)
	}

	{ // Compute failures are returned and not stored
		expected := errors.New(uuid.NewString())
		_, err := repository.Remember(t.Context(), 3, time.Minute, func(ctx context.Context) (order, error) {
			return order{}, expected
		})
		assert.ErrorIs(t, err, expected)

		_, err = repository.Get(t.Context(), 3)
		assert.ErrorIs(t, err, cache.ErrMiss)
	}
}

func TestRepositoryRememberWithBrokenDriver(t *testing.T) {
	t.Parallel()

	reported := []error{}
	repository := cache.NewRepository[string, int](brokenDriver{}, "broken").OnError(func(err error) {
		reported = append(reported, err)
	})

	value, err := repository.Remember(t.Context(), "answer", time.Minute, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	assert.NilError(t, err)
	assert.Equal(t, value, 42)
	assert.Equal(t, len(reported), 2)
	assert.ErrorIs(t, reported[0], errBroken)
}
