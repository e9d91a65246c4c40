package cache_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lunagic/hestia/hestiaservices/cache"
	"gotest.tools/v3/assert"
)

// testDriver runs the behaviour every cache driver shares.
func testDriver(t *testing.T, driver cache.Driver) {
	key := uuid.NewString()

	{ // Unknown keys
		_, err := driver.Get(t.Context(), key)
		assert.ErrorIs(t, err, cache.ErrMiss)
	}

	{ // Later writes replace earlier ones
		assert.NilError(t, driver.Set(t.Context(), key, "first", time.Minute))
		assert.NilError(t, driver.Set(t.Context(), key, "second", time.Minute))

		value, err := driver.Get(t.Context(), key)
		assert.NilError(t, err)
		assert.Equal(t, value, "second")
	}

	{ // Keys do not leak into each other
		_, err := driver.Get(t.Context(), key+"-other")
		assert.ErrorIs(t, err, cache.ErrMiss)
	}

	{ // Deleting twice is fine
		assert.NilError(t, driver.Delete(t.Context(), key))
		assert.NilError(t, driver.Delete(t.Context(), key))

		_, err := driver.Get(t.Context(), key)
		assert.ErrorIs(t, err, cache.ErrMiss)
	}

	{ // Entries expire
		expiring := uuid.NewString()
		assert.NilError(t, driver.Set(t.Context(), expiring, "soon gone", time.Second))

		value, err := driver.Get(t.Context(), expiring)
		assert.NilError(t, err)
		assert.Equal(t, value, "soon gone")

		time.Sleep(1500 * time.Millisecond)

		_, err = driver.Get(t.Context(), expiring)
		assert.ErrorIs(t, err, cache.ErrMiss)
	}
}
