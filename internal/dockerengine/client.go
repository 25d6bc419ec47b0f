// Package dockerengine wraps the Docker Engine API client the supervisor
// uses for container introspection (inspect, health, logs, exec) and shells
// out to the `docker compose` CLI for the project-level lifecycle verbs
// (up/down/start/stop/restart) the external interface spec calls for
// directly. This mirrors the teacher's libs/go/docker package for the parts
// that fit the Docker client's object model, and adds the compose-CLI
// wrapper for the parts that don't (docker-compose has no stable Go client
// library; see DESIGN.md).
package dockerengine

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// Client wraps the Docker Engine API client.
type Client struct {
	cli *client.Client
}

// NewClient creates a Docker client bound to the given Engine API socket,
// defaulting to the standard location. It pings the daemon once so startup
// fails fast if the engine is unreachable.
func NewClient(socketPath string) (*Client, error) {
	if socketPath == "" {
		socketPath = "/var/run/docker.sock"
	}

	cli, err := client.NewClientWithOpts(
		client.WithHost(fmt.Sprintf("unix://%s", socketPath)),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("ping docker daemon: %w", err)
	}

	return &Client{cli: cli}, nil
}

func (c *Client) Close() error { return c.cli.Close() }

// Raw returns the underlying Docker client for operations this package
// doesn't wrap.
func (c *Client) Raw() *client.Client { return c.cli }
