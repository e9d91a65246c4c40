package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	Value     string
	ExpiresAt time.Time
}

// NewDriverMemory keeps entries in process. Expired entries are swept once a
// minute until ctx is done.
func NewDriverMemory(ctx context.Context) (Driver, error) {
	driver := &driverMemory{
		mutex: &sync.Mutex{},
		data:  map[string]memoryEntry{},
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				driver.sweep(now)
			}
		}
	}()

	return driver, nil
}

type driverMemory struct {
	mutex *sync.Mutex
	data  map[string]memoryEntry
}

func (driver *driverMemory) Delete(ctx context.Context, key string) error {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	delete(driver.data, key)

	return nil
}

func (driver *driverMemory) Get(ctx context.Context, key string) (string, error) {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	entry, found := driver.data[key]
	if !found || !time.Now().Before(entry.ExpiresAt) {
		return "", ErrMiss
	}

	return entry.Value, nil
}

func (driver *driverMemory) Set(ctx context.Context, key string, value string, duration time.Duration) error {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	driver.data[key] = memoryEntry{
		Value:     value,
		ExpiresAt: time.Now().Add(duration),
	}

	return nil
}

func (driver *driverMemory) sweep(now time.Time) {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()

	for key, entry := range driver.data {
		if now.Before(entry.ExpiresAt) {
			continue
		}

		delete(driver.data, key)
	}
}
