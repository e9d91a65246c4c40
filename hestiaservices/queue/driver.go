package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrQueueNotFound = errors.New("queue does not exist")

// Driver moves opaque payloads between publishers and a consumer. Consume
// blocks until ctx is done or the handler fails.
type Driver interface {
	CreateQueue(ctx context.Context, queueName string) error
	Publish(ctx context.Context, queueName string, payload []byte) error
	Consume(ctx context.Context, queueName string, handler func(ctx context.Context, payload []byte) error) error
}

// NewQueue declares name on the driver and returns a typed view of it.
func NewQueue[T any](ctx context.Context, driver Driver, name string) (Queue[T], error) {
	if err := driver.CreateQueue(ctx, name); err != nil {
		return Queue[T]{}, fmt.Errorf("create queue %s: %w", name, err)
	}

	return Queue[T]{
		driver: driver,
		name:   name,
	}, nil
}

// Queue carries JSON encoded messages of one type.
type Queue[T any] struct {
	driver Driver
	name   string
}

func (q Queue[T]) Name() string {
	return q.name
}

func (q Queue[T]) Publish(ctx context.Context, message T) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return q.driver.Publish(ctx, q.name, payload)
}

func (q Queue[T]) Consume(ctx context.Context, handler Handler[T]) error {
	return q.driver.Consume(ctx, q.name, func(ctx context.Context, payload []byte) error {
		var target T
		if err := json.Unmarshal(payload, &target); err != nil {
			return fmt.Errorf("decode message on %s: %w", q.name, err)
		}

		return handler(ctx, target)
	})
}

type Handler[T any] func(ctx context.Context, payload T) error
