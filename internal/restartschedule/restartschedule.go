// Package restartschedule implements the create/update/get/delete operations
// over a per-server auto-scheduled restart_server cron job, grounded on
// original_source/backend/app/routers/servers/restart_schedule.py and
// .../cron/restart_scheduler.py. The conflict-free time slot math itself
// lives in internal/cron/restartslot; this package is the thin service layer
// that looks up existing backup job minutes, picks a free slot, and drives
// the cron.Manager.
package restartschedule

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xyqyear/mcadmin/internal/cron"
	"github.com/xyqyear/mcadmin/internal/cron/jobs"
	"github.com/xyqyear/mcadmin/internal/cron/restartslot"
	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
)

// Scheduler wraps a cron.Manager with the server-restart-schedule naming and
// conflict-avoidance convention: one job per server named "restart-<id>".
type Scheduler struct {
	manager *cron.Manager
}

func New(manager *cron.Manager) *Scheduler {
	return &Scheduler{manager: manager}
}

func scheduleName(serverID string) string { return "restart-" + serverID }

// CreateOrUpdate creates the server's restart schedule if none exists, or
// updates and resumes it if one does. customCron, if non-empty, is used
// verbatim instead of the auto-picked slot.
func (s *Scheduler) CreateOrUpdate(ctx context.Context, serverID, customCron string) (cron.Job, error) {
	name := scheduleName(serverID)

	cronExpr := customCron
	if cronExpr == "" {
		expr, err := s.autoCronExpr(ctx)
		if err != nil {
			return cron.Job{}, err
		}
		cronExpr = expr
	}

	params, err := json.Marshal(jobs.RestartParams{ServerID: serverID})
	if err != nil {
		return cron.Job{}, err
	}

	existing, err := s.findByName(ctx, name, nil)
	if err != nil {
		return cron.Job{}, err
	}

	if existing != nil {
		updated, err := s.manager.Update(ctx, existing.CronjobID, jobs.IdentifierRestartServer, params, cronExpr, nil)
		if err != nil {
			return cron.Job{}, err
		}
		if updated.Status != cron.JobActive {
			if err := s.manager.Resume(ctx, existing.CronjobID); err != nil {
				return cron.Job{}, err
			}
			updated.Status = cron.JobActive
		}
		return updated, nil
	}

	return s.manager.Create(ctx, jobs.IdentifierRestartServer, params, cronExpr, "", name, nil)
}

// Get returns the server's restart schedule, or (Job{}, false, nil) if none
// has been created.
func (s *Scheduler) Get(ctx context.Context, serverID string) (cron.Job, bool, error) {
	job, err := s.findExisting(ctx, scheduleName(serverID))
	if err != nil {
		return cron.Job{}, false, err
	}
	if job == nil {
		return cron.Job{}, false, nil
	}
	return *job, true, nil
}

// Delete cancels the server's restart schedule.
func (s *Scheduler) Delete(ctx context.Context, serverID string) error {
	job, err := s.findExisting(ctx, scheduleName(serverID))
	if err != nil {
		return err
	}
	if job == nil {
		return mcerrors.NewNotFound("restart schedule", serverID)
	}
	return s.manager.Cancel(ctx, job.CronjobID)
}

func (s *Scheduler) Pause(ctx context.Context, serverID string) error {
	job, err := s.findExisting(ctx, scheduleName(serverID))
	if err != nil {
		return err
	}
	if job == nil {
		return mcerrors.NewNotFound("restart schedule", serverID)
	}
	return s.manager.Pause(ctx, job.CronjobID)
}

func (s *Scheduler) Resume(ctx context.Context, serverID string) error {
	job, err := s.findExisting(ctx, scheduleName(serverID))
	if err != nil {
		return err
	}
	if job == nil {
		return mcerrors.NewNotFound("restart schedule", serverID)
	}
	return s.manager.Resume(ctx, job.CronjobID)
}

// findExisting looks up a server's restart schedule among live (ACTIVE or
// PAUSED) jobs. A CANCELLED job is treated as deleted from this package's
// point of view even though its row survives for execution-history
// purposes (per cron.Manager.Cancel's soft-delete semantics).
func (s *Scheduler) findExisting(ctx context.Context, name string) (*cron.Job, error) {
	return s.findByName(ctx, name, []cron.JobStatus{cron.JobActive, cron.JobPaused})
}

// findByName looks up a schedule by its exact name, optionally restricted
// to statuses. A nil/empty statuses list matches any status, which lets
// CreateOrUpdate revive a previously-cancelled job under the same name
// instead of accumulating a fresh cronjob_id on every delete/recreate.
func (s *Scheduler) findByName(ctx context.Context, name string, statuses []cron.JobStatus) (*cron.Job, error) {
	all, err := s.manager.GetAll(ctx, cron.Filter{Identifier: jobs.IdentifierRestartServer, NameContains: name, Statuses: statuses})
	if err != nil {
		return nil, err
	}
	for _, job := range all {
		if job.Name == name {
			return &job, nil
		}
	}
	return nil, nil
}

// autoCronExpr picks a 5-minute slot at 06:00 or later that doesn't collide
// with any configured backup job's minute, per restart_scheduler.py's
// default start-of-day search window.
func (s *Scheduler) autoCronExpr(ctx context.Context) (string, error) {
	backupJobs, err := s.manager.GetAll(ctx, cron.Filter{Identifier: jobs.IdentifierBackup})
	if err != nil {
		return "", fmt.Errorf("list backup jobs: %w", err)
	}
	exprs := make([]string, len(backupJobs))
	for i, job := range backupJobs {
		exprs[i] = job.Cron
	}
	backupMinutes, err := restartslot.MinutesUsedByJobs(exprs)
	if err != nil {
		return "", err
	}
	return restartslot.GenerateRestartCron(6, 0, backupMinutes, "*", "*", "*"), nil
}
