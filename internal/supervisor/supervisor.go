package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xyqyear/mcadmin/internal/dockerengine"
	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
)

// Supervisor discovers instances from a root directory of compose projects.
// It holds no per-instance state of its own — every Instance re-derives its
// status on demand — so List/Get are cheap and always current.
type Supervisor struct {
	serversRoot string
	engine      *dockerengine.Client
}

func New(serversRoot string, engine *dockerengine.Client) *Supervisor {
	return &Supervisor{serversRoot: serversRoot, engine: engine}
}

// List returns every instance id (project directory name) under the
// servers root, sorted.
func (s *Supervisor) List() ([]string, error) {
	entries, err := os.ReadDir(s.serversRoot)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Get returns the Instance for id. The project directory need not exist yet
// — the returned Instance's Status() will report REMOVED — except that Get
// itself still validates id doesn't escape the servers root.
func (s *Supervisor) Get(id string) (*Instance, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, mcerrors.NewValidation("id", "must be a bare directory name")
	}
	projectPath := filepath.Join(s.serversRoot, id)
	return newInstance(id, projectPath, s.engine, s), nil
}

// checkPortConflict scans every other instance's compose file for a declared
// game or RCON port matching gamePort/rconPort, per
// original_source/backend/app/servers/port_utils.py's check_port_conflicts:
// any EXISTS+ instance (one with a compose file, regardless of running
// state) claims its declared ports. excludeID is skipped so rebuild/update
// flows can re-check an instance against its own prior ports.
func (s *Supervisor) checkPortConflict(excludeID string, gamePort, rconPort int) error {
	ids, err := s.List()
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}

	for _, id := range ids {
		if id == excludeID {
			continue
		}
		inst, err := s.Get(id)
		if err != nil {
			continue
		}
		cf, err := inst.parsedCompose()
		if err != nil {
			// No compose file, or an unparsable one: not a live claim on
			// these ports, matching the original's "skip on failure".
			continue
		}
		if cf.GamePort == gamePort || cf.GamePort == rconPort {
			return mcerrors.NewConflict("game port %d is already used by server %q", cf.GamePort, id)
		}
		if cf.RconPort == gamePort || cf.RconPort == rconPort {
			return mcerrors.NewConflict("rcon port %d is already used by server %q", cf.RconPort, id)
		}
	}
	return nil
}
