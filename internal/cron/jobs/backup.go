package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/xyqyear/mcadmin/internal/cron"
	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
	"github.com/xyqyear/mcadmin/internal/snapshot"
)

// Instance is the subset of supervisor.Instance the backup/restart jobs
// need. Kept as an interface (rather than importing supervisor directly)
// per the players package's InstanceLister precedent, so the jobs package
// has no dependency on supervisor's concrete type and tests can fake it.
type Instance interface {
	ProjectPath() string
	DataPath() string
	IsRunning(ctx context.Context) (bool, error)
	Restart(ctx context.Context) error
}

// InstanceResolver maps a filesystem instance id to its Instance handle.
type InstanceResolver interface {
	Get(id string) (Instance, error)
}

// BackupParams is the JSON-schema-validated params struct for the "backup"
// identifier, per spec.md §4.4.5.
type BackupParams struct {
	ServerID       string   `json:"serverId,omitempty"`
	Path           string   `json:"path,omitempty"`
	EnableForget   bool     `json:"enableForget"`
	KeepLast       int      `json:"keepLast,omitempty"`
	KeepHourly     int      `json:"keepHourly,omitempty"`
	KeepDaily      int      `json:"keepDaily,omitempty"`
	KeepWeekly     int      `json:"keepWeekly,omitempty"`
	KeepMonthly    int      `json:"keepMonthly,omitempty"`
	KeepYearly     int      `json:"keepYearly,omitempty"`
	KeepTag        []string `json:"keepTag,omitempty"`
	KeepWithin     string   `json:"keepWithin,omitempty"`
	Prune          bool     `json:"prune,omitempty"`
	UptimeKumaURL  string   `json:"uptimeKumaUrl,omitempty"`
}

// Validate enforces spec.md §4.4.5's two invariants: path requires serverId,
// and enableForget requires at least one non-empty retention field.
func (p BackupParams) Validate() error {
	if p.Path != "" && p.ServerID == "" {
		return mcerrors.NewValidation("path", "requires serverId")
	}
	if p.EnableForget && !p.hasRetentionPolicy() {
		return mcerrors.NewValidation("enableForget", "requires at least one retention field")
	}
	return nil
}

func (p BackupParams) hasRetentionPolicy() bool {
	return p.KeepLast > 0 || p.KeepHourly > 0 || p.KeepDaily > 0 || p.KeepWeekly > 0 ||
		p.KeepMonthly > 0 || p.KeepYearly > 0 || len(p.KeepTag) > 0 || p.KeepWithin != ""
}

func decodeBackupParams(raw json.RawMessage) (any, error) {
	var p BackupParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// resolvePath implements the Open Question #3 resolution recorded in
// DESIGN.md: with a path, resolve it under the instance's data
// directory; without one, back up the instance's project root; with
// neither a serverId nor a path, back up the whole servers root (a
// fleet-wide snapshot).
func resolvePath(resolver InstanceResolver, serversRoot string, p BackupParams) (string, error) {
	if p.ServerID == "" {
		if serversRoot == "" {
			return "", mcerrors.NewValidation("serverId", "required when no fleet-wide servers root is configured")
		}
		return serversRoot, nil
	}

	inst, err := resolver.Get(p.ServerID)
	if err != nil {
		return "", err
	}
	if p.Path != "" {
		return filepath.Join(inst.DataPath(), p.Path), nil
	}
	return inst.ProjectPath(), nil
}

// NewBackupRegistration builds the "backup" cron.Registration. resolver and
// serversRoot are bound once at startup; snapshots are taken with mgr.
func NewBackupRegistration(logger *slog.Logger, mgr *snapshot.Manager, resolver InstanceResolver, serversRoot string) cron.Registration {
	return cron.Registration{
		Identifier:  IdentifierBackup,
		Description: "snapshot a server (or the whole fleet) via restic, with optional retention pruning",
		Decode:      decodeBackupParams,
		Fn: func(execCtx *cron.ExecutionContext) error {
			var p BackupParams
			if err := json.Unmarshal(execCtx.Params, &p); err != nil {
				return err
			}

			ctx := context.Background()
			path, err := resolvePath(resolver, serversRoot, p)
			if err != nil {
				pingKuma(ctx, p.UptimeKumaURL, false, err.Error(), 0)
				return err
			}

			execCtx.Log(fmt.Sprintf("backing up %s", path))
			start := time.Now()
			result, err := mgr.Backup(ctx, path, nil)
			elapsedMs := time.Since(start).Milliseconds()

			if err != nil {
				execCtx.Log(fmt.Sprintf("backup failed: %v", err))
				pingKuma(ctx, p.UptimeKumaURL, false, err.Error(), elapsedMs)
				return err
			}
			execCtx.Log(fmt.Sprintf("snapshot %s created (%d new, %d changed)", result.SnapshotID, result.FilesNew, result.FilesChanged))

			if p.EnableForget {
				forgetResult, ferr := mgr.Forget(ctx, snapshot.ForgetOptions{
					KeepLast:    p.KeepLast,
					KeepHourly:  p.KeepHourly,
					KeepDaily:   p.KeepDaily,
					KeepWeekly:  p.KeepWeekly,
					KeepMonthly: p.KeepMonthly,
					KeepYearly:  p.KeepYearly,
					KeepTag:     p.KeepTag,
					KeepWithin:  p.KeepWithin,
					Prune:       p.Prune,
				})
				if ferr != nil {
					// Forget failures never fail the backup job itself.
					execCtx.Log(fmt.Sprintf("forget failed (backup still succeeded): %v", ferr))
					logger.Error("backup job: forget failed", "server_id", p.ServerID, "error", ferr)
				} else {
					execCtx.Log(fmt.Sprintf("forget removed %d snapshot(s)", len(forgetResult.Removed)))
				}
			}

			pingKuma(ctx, p.UptimeKumaURL, true, "OK", elapsedMs)
			return nil
		},
	}
}

// pingKuma hits an Uptime Kuma push-monitor URL, if configured. This is a
// best-effort, background notification per spec.md §7's "external
// dependency ... swallow+log for best-effort background handlers" policy:
// its failure never affects the backup job's own status.
func pingKuma(ctx context.Context, baseURL string, up bool, msg string, pingMs int64) {
	if baseURL == "" {
		return
	}
	status := "down"
	if up {
		status = "up"
	}
	url := fmt.Sprintf("%s?status=%s&msg=%s&ping=%d", baseURL, status, msg, pingMs)

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err == nil {
		resp.Body.Close()
	}
}
