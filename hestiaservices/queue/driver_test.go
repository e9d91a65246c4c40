package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lunagic/hestia/hestiaservices/queue"
	"gotest.tools/v3/assert"
)

type message struct {
	ID   string
	Sent time.Time
}

func testSuite(t *testing.T, driver queue.Driver) {
	messages, err := queue.NewQueue[message](t.Context(), driver, uuid.NewString())
	assert.NilError(t, err)

	published := []string{uuid.NewString(), uuid.NewString()}
	for _, id := range published {
		assert.NilError(t, messages.Publish(t.Context(), message{ID: id, Sent: time.Now().UTC()}))
	}

	{ // Messages arrive in order and a handler error stops the consumer
		done := errors.New(uuid.NewString())
		received := []string{}

		err := messages.Consume(t.Context(), func(ctx context.Context, payload message) error {
			received = append(received, payload.ID)
			if len(received) == len(published) {
				return done
			}

			return nil
		})
		assert.ErrorIs(t, err, done)
		assert.DeepEqual(t, received, published)
	}

	{ // Consumers stop with their context
		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()

		err := messages.Consume(ctx, func(ctx context.Context, payload message) error {
			return nil
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}
