// Package supervisor discovers compose-project instances from a root
// directory, exposes their hierarchical status, and delegates lifecycle
// operations to the container engine. Grounded on the teacher's
// manmanv2/host/session manager for the create/start/stop control flow and
// on original_source/backend/app/minecraft/instance.py for the status
// derivation rules and compose-file discovery order.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xyqyear/mcadmin/internal/compose"
	"github.com/xyqyear/mcadmin/internal/dockerengine"
	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
	"github.com/xyqyear/mcadmin/internal/mcquery"
	"github.com/xyqyear/mcadmin/internal/rcon"
)

// composeFileCandidates lists the accepted compose filenames in discovery
// precedence order, matching the original instance.get_compose_file_path.
var composeFileCandidates = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// Instance is a managed game server, identified by its project directory
// name. Every field here is either immutable for the instance's lifetime or
// guarded by mu; there is no cached status — status() always re-derives
// from the filesystem and the engine.
type Instance struct {
	id          string
	projectPath string
	dataPath    string

	engine  *dockerengine.Client
	compose *dockerengine.ComposeManager
	sup     *Supervisor // used to check sibling instances' ports on Create

	mu sync.Mutex // serializes create/updateCompose/remove against each other
}

func newInstance(id, projectPath string, engine *dockerengine.Client, sup *Supervisor) *Instance {
	return &Instance{
		id:          id,
		projectPath: projectPath,
		dataPath:    filepath.Join(projectPath, "data"),
		engine:      engine,
		compose:     dockerengine.NewComposeManager(projectPath),
		sup:         sup,
	}
}

func (i *Instance) ID() string { return i.id }

// ProjectPath returns the compose project directory (servers_root/<id>).
func (i *Instance) ProjectPath() string { return i.projectPath }

// DataPath returns the game server's working directory
// (servers_root/<id>/data).
func (i *Instance) DataPath() string { return i.dataPath }

func (i *Instance) containerName() string { return "mc-" + i.id }

// composeFilePath returns the first existing candidate compose file path in
// the project directory, or "" if none exists.
func (i *Instance) composeFilePath() string {
	for _, name := range composeFileCandidates {
		p := filepath.Join(i.projectPath, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// parsedCompose loads and validates the instance's compose file.
func (i *Instance) parsedCompose() (*compose.File, error) {
	path := i.composeFilePath()
	if path == "" {
		return nil, mcerrors.NewNotFound("compose", i.id)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}
	return compose.Parse(data, i.id)
}

// Status derives the instance's hierarchical status from the filesystem and
// the engine, never cached.
func (i *Instance) Status(ctx context.Context) (Status, error) {
	if i.composeFilePath() == "" {
		return StatusRemoved, nil
	}

	status, err := i.engine.Inspect(ctx, i.containerName())
	if err != nil {
		return StatusExists, fmt.Errorf("inspect container: %w", err)
	}
	if status == nil {
		return StatusExists, nil
	}
	if !status.Running {
		return StatusCreated, nil
	}
	switch status.Health {
	case "starting":
		return StatusStarting, nil
	case "healthy", "":
		// No healthcheck configured is treated as healthy once running,
		// per the supervisor's policy for engines that report no health.
		return StatusHealthy, nil
	default:
		return StatusRunning, nil
	}
}

// Create validates composeYAML and materializes the project: writes the
// compose file and creates the data directory with ownership matching the
// servers root. Fails with a ConflictError if a compose file already exists.
func (i *Instance) Create(composeYAML []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.composeFilePath() != "" {
		return mcerrors.NewConflict("instance %q already exists", i.id)
	}

	cf, err := compose.Parse(composeYAML, i.id)
	if err != nil {
		return err
	}
	if i.sup != nil {
		if err := i.sup.checkPortConflict(i.id, cf.GamePort, cf.RconPort); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(i.projectPath, 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	composePath := filepath.Join(i.projectPath, composeFileCandidates[0])
	if err := os.WriteFile(composePath, composeYAML, 0o644); err != nil {
		return fmt.Errorf("write compose file: %w", err)
	}

	if err := os.MkdirAll(i.dataPath, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := matchOwnership(i.dataPath, filepath.Dir(i.projectPath)); err != nil {
		return fmt.Errorf("match data dir ownership: %w", err)
	}

	return nil
}

// UpdateCompose rewrites the compose file. Only allowed when status <= EXISTS
// — callers that need to update a live instance must down(), update, up()
// themselves (composed by a higher-level rebuild operation).
func (i *Instance) UpdateCompose(ctx context.Context, composeYAML []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	status, err := i.Status(ctx)
	if err != nil {
		return err
	}
	if status > StatusExists {
		return mcerrors.NewConflict("cannot update compose while status is %s", status)
	}

	cf, err := compose.Parse(composeYAML, i.id)
	if err != nil {
		return err
	}
	if i.sup != nil {
		if err := i.sup.checkPortConflict(i.id, cf.GamePort, cf.RconPort); err != nil {
			return err
		}
	}

	composePath := i.composeFilePath()
	if composePath == "" {
		composePath = filepath.Join(i.projectPath, composeFileCandidates[0])
	}
	return os.WriteFile(composePath, composeYAML, 0o644)
}

// Remove deletes the project directory. Forbidden once the container has
// been created (status >= CREATED).
func (i *Instance) Remove(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	status, err := i.Status(ctx)
	if err != nil {
		return err
	}
	if status >= StatusCreated {
		return mcerrors.NewConflict("cannot remove instance %q while status is %s", i.id, status)
	}

	return os.RemoveAll(i.projectPath)
}

// IsRunning reports whether the instance's status is RUNNING or higher,
// i.e. whether the server process is up regardless of health-check state.
func (i *Instance) IsRunning(ctx context.Context) (bool, error) {
	status, err := i.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.AtLeast(StatusRunning), nil
}

func (i *Instance) Up(ctx context.Context) error      { return i.compose.Up(ctx) }
func (i *Instance) Down(ctx context.Context) error    { return i.compose.Down(ctx) }
func (i *Instance) Start(ctx context.Context) error   { return i.compose.Start(ctx) }
func (i *Instance) Stop(ctx context.Context) error    { return i.compose.Stop(ctx) }
func (i *Instance) Restart(ctx context.Context) error { return i.compose.Restart(ctx) }

// SendRCONCommand requires the instance to be HEALTHY, then issues cmd over
// RCON and returns the ANSI-stripped response.
func (i *Instance) SendRCONCommand(ctx context.Context, cmd string) (string, error) {
	status, err := i.Status(ctx)
	if err != nil {
		return "", err
	}
	if status != StatusHealthy {
		return "", mcerrors.NewConflict("instance %q is not healthy (status=%s)", i.id, status)
	}

	cf, err := i.parsedCompose()
	if err != nil {
		return "", err
	}
	_, password, err := i.rconCredentials()
	if err != nil {
		return "", err
	}

	return rcon.Send("127.0.0.1", cf.RconPort, password, cmd)
}

// GamePort returns the instance's declared game port, read from its compose
// file. Used by the DNS/router reconciler to compute target state; it does
// not require the instance to be running.
func (i *Instance) GamePort() (int, error) {
	cf, err := i.parsedCompose()
	if err != nil {
		return 0, err
	}
	return cf.GamePort, nil
}

func (i *Instance) rconCredentials() (properties, string, error) {
	props, err := readProperties(filepath.Join(i.dataPath, "server.properties"))
	if err != nil {
		return nil, "", fmt.Errorf("read server.properties: %w", err)
	}
	return props, props["rcon.password"], nil
}

// ListPlayers prefers UDP Query when enabled, falling back to RCON's "list"
// command on any failure.
func (i *Instance) ListPlayers(ctx context.Context) ([]string, error) {
	props, err := readProperties(filepath.Join(i.dataPath, "server.properties"))
	if err == nil {
		if queryPort, ok := props.queryEnabled(); ok {
			names, err := mcquery.ListPlayers("127.0.0.1", queryPort, 2*time.Second)
			if err == nil {
				return names, nil
			}
		}
	}

	resp, err := i.SendRCONCommand(ctx, "list")
	if err != nil {
		return nil, err
	}
	return rcon.ParsePlayerList(resp)
}

// matchOwnership copies the uid/gid of reference onto target. Stubbed as a
// no-op placeholder for non-Unix builds; the real chown happens via
// os.Chown on platforms that support it (see ownership_unix.go and
// ownership_windows.go).
func matchOwnership(target, reference string) error {
	return chownLike(target, reference)
}
