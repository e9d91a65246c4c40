package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/lunagic/hestia/hestiaservices/cache"
	"gotest.tools/v3/assert"
)

func TestDriverMemory(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	driver, err := cache.NewDriverMemory(ctx)
	assert.NilError(t, err)

	testDriver(t, driver)

	{ // Stopping the sweeper leaves stored entries readable
		assert.NilError(t, driver.Set(t.Context(), "session", "abc", time.Hour))
		cancel()

		value, err := driver.Get(t.Context(), "session")
		assert.NilError(t, err)
		assert.Equal(t, value, "abc")
	}

	{ // A non positive duration is already expired
		assert.NilError(t, driver.Set(t.Context(), "stale", "abc", 0))

		_, err := driver.Get(t.Context(), "stale")
		assert.ErrorIs(t, err, cache.ErrMiss)
	}
}
