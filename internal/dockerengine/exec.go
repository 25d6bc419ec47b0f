package dockerengine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
)

// Exec runs a command inside a running container and returns its combined
// output.
func (c *Client) Exec(ctx context.Context, containerID string, cmd []string) (string, error) {
	created, err := c.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("exec create: %w", err)
	}

	resp, err := c.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", fmt.Errorf("exec attach: %w", err)
	}
	defer resp.Close()

	var buf bytes.Buffer
	if _, err := demultiplexCopy(&buf, resp.Reader); err != nil {
		return "", fmt.Errorf("exec read output: %w", err)
	}

	inspect, err := c.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return buf.String(), fmt.Errorf("exec inspect: %w", err)
	}
	if inspect.ExitCode != 0 {
		return buf.String(), fmt.Errorf("command exited with code %d: %s", inspect.ExitCode, buf.String())
	}

	return buf.String(), nil
}
