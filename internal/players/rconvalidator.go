package players

import (
	"context"
	"log/slog"
	"time"

	"github.com/xyqyear/mcadmin/internal/events"
)

// InstanceLister is the subset of supervisor.Supervisor the reconciler needs:
// listing a healthy instance's actually-connected players. Kept as an
// interface to avoid a dependency cycle on the supervisor package and to let
// tests substitute a fake.
type InstanceLister interface {
	// ListPlayers returns the players RCON/Query reports as connected to
	// serverID, or an error if the instance isn't reachable (e.g. not
	// HEALTHY).
	ListPlayers(ctx context.Context, serverID string) ([]string, error)
}

// RCONValidator periodically diffs the database's notion of "who is online"
// against what each healthy instance's RCON/Query interface actually reports,
// correcting drift caused by dropped log lines or a crash recovery that ran
// before the instance came back up. Grounded on rcon_validator.py's
// validate-all/validate-one split: servers are checked one after another,
// and a failure on one server never aborts the round.
type RCONValidator struct {
	logger     *slog.Logger
	store      Store
	instances  InstanceLister
	dispatcher *events.Dispatcher
	interval   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRCONValidator(logger *slog.Logger, store Store, instances InstanceLister, dispatcher *events.Dispatcher, interval time.Duration) *RCONValidator {
	return &RCONValidator{
		logger:     logger,
		store:      store,
		instances:  instances,
		dispatcher: dispatcher,
		interval:   interval,
	}
}

func (v *RCONValidator) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.done = make(chan struct{})
	go v.loop(loopCtx)
}

func (v *RCONValidator) Stop() {
	if v.cancel == nil {
		return
	}
	v.cancel()
	<-v.done
}

func (v *RCONValidator) loop(ctx context.Context) {
	defer close(v.done)
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.validateAll(ctx)
		}
	}
}

// validateAll snapshots the active server set once, then validates each
// server independently so that one server's RCON failure doesn't starve the
// others of validation.
func (v *RCONValidator) validateAll(ctx context.Context) {
	activeServers, err := v.store.ActiveServers(ctx)
	if err != nil {
		v.logger.Error("list active servers for rcon validation failed", "error", err)
		return
	}

	for serverID, serverDbID := range activeServers {
		v.validateServer(ctx, serverID, serverDbID)
	}
}

func (v *RCONValidator) validateServer(ctx context.Context, serverID string, serverDbID int64) {
	online, err := v.instances.ListPlayers(ctx, serverID)
	if err != nil {
		// Not HEALTHY, or RCON/Query unreachable: nothing to reconcile this
		// round, try again next interval.
		v.logger.Debug("skip rcon validation, instance unreachable", "server_id", serverID, "error", err)
		return
	}

	dbOnline, err := v.store.OnlinePlayerNamesOnServer(ctx, serverDbID)
	if err != nil {
		v.logger.Error("get db online players failed", "server_id", serverID, "error", err)
		return
	}

	actualSet := toSet(online)
	dbSet := toSet(dbOnline)
	now := time.Now().UTC()

	for name := range dbSet {
		if _, stillOnline := actualSet[name]; !stillOnline {
			v.logger.Info("rcon validation: closing falsely-online session", "server_id", serverID, "player", name)
			v.dispatcher.DispatchPlayerLeft(events.PlayerLeft{
				ServerID:   serverID,
				PlayerName: name,
				Timestamp:  now,
			})
		}
	}

	for name := range actualSet {
		if _, markedOnline := dbSet[name]; !markedOnline {
			v.logger.Info("rcon validation: opening falsely-offline session", "server_id", serverID, "player", name)
			v.dispatcher.DispatchPlayerJoined(events.PlayerJoined{
				ServerID:   serverID,
				PlayerName: name,
				Timestamp:  now,
			})
		}
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
