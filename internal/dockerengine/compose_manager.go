package dockerengine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ComposeManager runs `docker compose` against one project directory. Lives
// alongside the Engine API client because lifecycle verbs (up/down/restart)
// are expressed in terms of the compose project, while introspection
// (inspect/exec/logs) goes through the Engine API directly against the
// single "mc" service's container. No Go library wraps the compose CLI
// itself, so this shells out — see DESIGN.md.
type ComposeManager struct {
	projectPath string
}

func NewComposeManager(projectPath string) *ComposeManager {
	return &ComposeManager{projectPath: projectPath}
}

func (m *ComposeManager) run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"compose", "-f", m.composeFile()}, args...)
	cmd := exec.CommandContext(ctx, "docker", fullArgs...)
	cmd.Dir = m.projectPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("docker %s: %w: %s", strings.Join(fullArgs, " "), err, out)
	}
	return string(out), nil
}

func (m *ComposeManager) composeFile() string {
	for _, name := range []string{"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml"} {
		if _, err := os.Stat(filepath.Join(m.projectPath, name)); err == nil {
			return name
		}
	}
	return "docker-compose.yml"
}

// Up creates and starts the project's containers in detached mode.
func (m *ComposeManager) Up(ctx context.Context) error {
	_, err := m.run(ctx, "up", "-d")
	return err
}

// Down stops and removes the project's containers and networks. Volumes are
// not removed.
func (m *ComposeManager) Down(ctx context.Context) error {
	_, err := m.run(ctx, "down")
	return err
}

// Start starts existing (but not running) containers without recreating them.
func (m *ComposeManager) Start(ctx context.Context) error {
	_, err := m.run(ctx, "start")
	return err
}

// Stop stops the running containers without removing them.
func (m *ComposeManager) Stop(ctx context.Context) error {
	_, err := m.run(ctx, "stop")
	return err
}

// Restart restarts the project's containers.
func (m *ComposeManager) Restart(ctx context.Context) error {
	_, err := m.run(ctx, "restart")
	return err
}

// ContainerID returns the id of the "mc" service's container, or "" if it
// has never been created.
func (m *ComposeManager) ContainerID(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "ps", "--all", "-q", "mc")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
