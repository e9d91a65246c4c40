package queue

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"gotest.tools/v3/assert"
)

func TestDriverRabbitMQConfigURL(t *testing.T) {
	t.Parallel()

	{ // Defaults to the standard port and the root vhost
		uri, err := amqp.ParseURI(DriverRabbitMQConfig{Host: "127.0.0.1", User: "guest", Pass: "guest"}.url())
		assert.NilError(t, err)
		assert.Equal(t, uri.Port, 5672)
		assert.Equal(t, uri.Vhost, "/")
	}

	{ // Reserved characters survive in credentials
		uri, err := amqp.ParseURI(DriverRabbitMQConfig{
			Host:  "mq.internal",
			Port:  5673,
			User:  "app",
			Pass:  "s@cret/:?",
			VHost: "tenant",
		}.url())
		assert.NilError(t, err)
		assert.Equal(t, uri.Host, "mq.internal")
		assert.Equal(t, uri.Port, 5673)
		assert.Equal(t, uri.Username, "app")
		assert.Equal(t, uri.Password, "s@cret/:?")
		assert.Equal(t, uri.Vhost, "tenant")
	}
}
