package dockerengine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

const dialTimeout = 5 * time.Second

// ContainerStatus is the subset of container inspect state the supervisor's
// status derivation needs.
type ContainerStatus struct {
	ID         string
	Name       string
	Status     string // "created", "running", "exited", ...
	Running    bool
	ExitCode   int
	Health     string // "", "starting", "healthy", "unhealthy" — "" means no healthcheck configured
	StartedAt  *time.Time
	FinishedAt *time.Time
	Labels     map[string]string
}

// Inspect returns the current status of a container by id or name. Returns
// (nil, nil) if the container does not exist, so callers can distinguish
// "not found" from a real error without parsing the Docker error string.
func (c *Client) Inspect(ctx context.Context, nameOrID string) (*ContainerStatus, error) {
	info, err := c.cli.ContainerInspect(ctx, nameOrID)
	if err != nil {
		if isErrNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("inspect container %s: %w", nameOrID, err)
	}

	status := &ContainerStatus{
		ID:       info.ID,
		Name:     info.Name,
		Status:   info.State.Status,
		Running:  info.State.Running,
		ExitCode: info.State.ExitCode,
		Labels:   info.Config.Labels,
	}
	if info.State.Health != nil {
		status.Health = info.State.Health.Status
	}
	if info.State.StartedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, info.State.StartedAt); err == nil {
			status.StartedAt = &t
		}
	}
	if info.State.FinishedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, info.State.FinishedAt); err == nil {
			status.FinishedAt = &t
		}
	}
	return status, nil
}

// ListByLabel lists all containers (running or not) carrying the given
// label filters, used for orphan recovery at startup.
func (c *Client) ListByLabel(ctx context.Context, labels map[string]string) ([]ContainerStatus, error) {
	args := filters.NewArgs()
	for k, v := range labels {
		args.Add("label", fmt.Sprintf("%s=%s", k, v))
	}

	list, err := c.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]ContainerStatus, 0, len(list))
	for _, item := range list {
		name := ""
		if len(item.Names) > 0 {
			name = item.Names[0]
		}
		out = append(out, ContainerStatus{
			ID:      item.ID,
			Name:    name,
			Status:  item.Status,
			Running: item.State == "running",
			Labels:  item.Labels,
		})
	}
	return out, nil
}

// Logs streams a container's combined stdout/stderr. Used only as a fallback
// path; the primary log source is the game server's own log file on the
// bind-mounted data volume, tailed by internal/logpipeline.
func (c *Client) Logs(ctx context.Context, containerID string, follow bool, tail string) (io.ReadCloser, error) {
	return c.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       tail,
	})
}

func isErrNotFound(err error) bool {
	type notFound interface{ NotFound() bool }
	if nf, ok := err.(notFound); ok {
		return nf.NotFound()
	}
	return false
}
