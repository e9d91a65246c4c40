package queue

import (
	"context"
	"net"
	"net/url"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
)

type DriverRabbitMQConfig struct {
	Host  string
	Pass  string
	Port  int
	User  string
	VHost string
}

func (config DriverRabbitMQConfig) url() string {
	if config.Port == 0 {
		config.Port = 5672
	}

	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(config.User, config.Pass),
		Host:   net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
	}

	if config.VHost != "" {
		u.Path = "/" + config.VHost
	}

	return u.String()
}

// NewDriverRabbitMQ publishes through the default exchange with the queue
// name as routing key.
func NewDriverRabbitMQ(config DriverRabbitMQConfig) (Driver, error) {
	connection, err := amqp.Dial(config.url())
	if err != nil {
		return nil, err
	}

	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return nil, err
	}

	return &driverRabbitMQ{
		connection: connection,
		channel:    channel,
	}, nil
}

type driverRabbitMQ struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

func (driver *driverRabbitMQ) CreateQueue(ctx context.Context, queueName string) error {
	_, err := driver.channel.QueueDeclare(
		queueName, // name
		false,     // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)

	return err
}

func (driver *driverRabbitMQ) Publish(ctx context.Context, queueName string, payload []byte) error {
	return driver.channel.PublishWithContext(
		ctx,
		"",        // exchange
		queueName, // routing key
		true,      // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
		},
	)
}

func (driver *driverRabbitMQ) Consume(
	ctx context.Context,
	queueName string,
	handler func(ctx context.Context, payload []byte) error,
) error {
	msgs, err := driver.channel.Consume(
		queueName, // queue
		"",        // consumer
		true,      // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, open := <-msgs:
			if !open {
				return amqp.ErrClosed
			}

			if err := handler(ctx, delivery.Body); err != nil {
				return err
			}
		}
	}
}
