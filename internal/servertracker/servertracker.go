// Package servertracker mirrors the Instance Supervisor's filesystem-derived
// instance set into the Server record's ACTIVE/REMOVED tombstone lifecycle
// described in spec.md §3's "Ownership" paragraph. Nothing else in this
// system performs that transition: the filesystem is the source of truth
// for which instances exist, but player history needs a stable db row to
// reference even after an instance's directory is deleted. Grounded on
// original_source/backend/app/server_tracker/tracker.py, adapted to a
// ticker-driven goroutine per the teacher's timer-based reconciliation loops
// (internal/players.HeartbeatManager).
package servertracker

import (
	"context"
	"log/slog"
	"time"
)

// InstanceLister is the subset of the Instance Supervisor this tracker
// needs: just the live instance id set.
type InstanceLister interface {
	List() ([]string, error)
}

// Store is the persistence surface for the Server record.
type Store interface {
	// EnsureActive upserts an ACTIVE row for serverID, reactivating a
	// REMOVED tombstone with the same serverID if one exists, per spec.md
	// §3's "at most one ACTIVE row per serverId" invariant.
	EnsureActive(ctx context.Context, serverID string) error

	// ActiveServerIDs lists every serverId with an ACTIVE row.
	ActiveServerIDs(ctx context.Context) ([]string, error)

	// MarkRemoved transitions serverID's ACTIVE row to REMOVED. A no-op if
	// the row is already REMOVED or does not exist.
	MarkRemoved(ctx context.Context, serverID string) error
}

// Tracker runs the periodic reconciliation pass.
type Tracker struct {
	logger   *slog.Logger
	lister   InstanceLister
	store    Store
	interval time.Duration
}

func New(logger *slog.Logger, lister InstanceLister, store Store, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Tracker{logger: logger, lister: lister, store: store, interval: interval}
}

// Run blocks, reconciling on every tick until ctx is canceled. Call once
// from a dedicated goroutine; also call Reconcile once synchronously at
// startup so the first HTTP request sees an accurate Server table.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Reconcile(ctx); err != nil {
				t.logger.Error("server tracker reconcile failed", "error", err)
			}
		}
	}
}

// Reconcile performs one pass: every live filesystem instance gets (or
// keeps) an ACTIVE row; every ACTIVE row with no corresponding filesystem
// instance is tombstoned.
func (t *Tracker) Reconcile(ctx context.Context) error {
	live, err := t.lister.List()
	if err != nil {
		return err
	}
	liveSet := make(map[string]struct{}, len(live))
	for _, id := range live {
		liveSet[id] = struct{}{}
		if err := t.store.EnsureActive(ctx, id); err != nil {
			t.logger.Error("server tracker: ensure active failed", "server_id", id, "error", err)
		}
	}

	active, err := t.store.ActiveServerIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range active {
		if _, ok := liveSet[id]; ok {
			continue
		}
		if err := t.store.MarkRemoved(ctx, id); err != nil {
			t.logger.Error("server tracker: mark removed failed", "server_id", id, "error", err)
			continue
		}
		t.logger.Info("server tombstoned", "server_id", id)
	}
	return nil
}
