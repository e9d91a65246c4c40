package hestiatools

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/ory/dockertest"
)

type DockerServiceConfig[T any] struct {
	DockerImage    string
	DockerImageTag string
	InternalPort   int
	Environment    map[string]string
	// MaxWait bounds how long Builder is retried, one minute when zero.
	MaxWait time.Duration
	Builder func(host string, port int) (T, error)
}

func (d DockerServiceConfig[T]) Env() []string {
	env := []string{}
	for k, v := range d.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return env
}

// GetDockerService starts a container and returns what Builder makes of it
// once Builder stops failing. The test is skipped in short mode or when no
// Docker daemon is reachable.
func GetDockerService[T any](
	t *testing.T,
	config DockerServiceConfig[T],
) T {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping long-running test in short mode.")
	}

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Could not construct pool: %s", err)
	}

	if err := pool.Client.Ping(); err != nil {
		t.Skipf("Could not connect to Docker: %s", err)
	}

	if config.MaxWait > 0 {
		pool.MaxWait = config.MaxWait
	}

	resource, err := pool.Run(
		config.DockerImage,
		config.DockerImageTag,
		config.Env(),
	)
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	})

	host, portText, err := net.SplitHostPort(resource.GetHostPort(fmt.Sprintf("%d/tcp", config.InternalPort)))
	if err != nil {
		t.Fatalf("Error reading service address: %s", err)
	}

	// A remote daemon publishes ports on its own host
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		if u, err := url.Parse(dockerHost); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}

	port, err := strconv.Atoi(portText)
	if err != nil {
		t.Fatalf("Error reading service port: %s", err)
	}

	var service T

	if err := pool.Retry(func() error {
		var err error

		service, err = config.Builder(host, port)
		if err != nil {
			return err
		}

		return nil
	}); err != nil {
		t.Fatalf("Could not connect to service: %s", err)
	}

	return service
}
