package players

import (
	"context"
	"log/slog"
	"time"

	"github.com/xyqyear/mcadmin/internal/events"
)

// HeartbeatManager writes a liveness timestamp on an interval and, on
// startup, checks whether the previous run's heartbeat is older than the
// crash threshold. If it is, every player still marked online is forced
// offline via a synthetic PlayerLeft so session duration accounting closes
// out, and a SystemCrashDetected event is dispatched to trigger RCON
// reconciliation. Grounded on heartbeat.py's check-then-recover-then-loop
// structure.
type HeartbeatManager struct {
	logger     *slog.Logger
	store      Store
	dispatcher *events.Dispatcher
	interval   time.Duration
	threshold  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewHeartbeatManager(logger *slog.Logger, store Store, dispatcher *events.Dispatcher, interval, crashThreshold time.Duration) *HeartbeatManager {
	return &HeartbeatManager{
		logger:     logger,
		store:      store,
		dispatcher: dispatcher,
		interval:   interval,
		threshold:  crashThreshold,
	}
}

// Start runs crash recovery once, then begins the periodic heartbeat loop in
// a background goroutine.
func (m *HeartbeatManager) Start(ctx context.Context) {
	m.logger.Info("starting heartbeat manager")
	m.checkCrash(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx)
}

func (m *HeartbeatManager) Stop() {
	if m.cancel == nil {
		return
	}
	m.logger.Info("stopping heartbeat manager")
	m.cancel()
	<-m.done
}

func (m *HeartbeatManager) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.updateHeartbeat(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *HeartbeatManager) updateHeartbeat(ctx context.Context) {
	if err := m.store.UpsertHeartbeat(ctx, time.Now().UTC()); err != nil {
		m.logger.Error("update heartbeat failed", "error", err)
	}
}

func (m *HeartbeatManager) checkCrash(ctx context.Context) {
	last, found, err := m.store.GetHeartbeat(ctx)
	if err != nil {
		m.logger.Error("get heartbeat failed", "error", err)
		return
	}
	if !found {
		m.logger.Info("no previous heartbeat found, first startup")
		return
	}

	since := time.Since(last)
	if since < m.threshold {
		m.logger.Info("normal restart detected", "since_last_heartbeat", since)
		return
	}

	m.logger.Warn("system crash detected", "since_last_heartbeat", since)
	m.recoverFromCrash(ctx, last, since)
}

func (m *HeartbeatManager) recoverFromCrash(ctx context.Context, crashTimestamp time.Time, timeSinceCrash time.Duration) {
	playersByServer, err := m.store.OnlinePlayersGroupedByServer(ctx)
	if err != nil {
		m.logger.Error("get online players for crash recovery failed", "error", err)
		return
	}

	total := 0
	for serverID, names := range playersByServer {
		m.logger.Info("dispatching crash-recovery player left", "server_id", serverID, "count", len(names))
		for _, name := range names {
			m.dispatcher.DispatchPlayerLeft(events.PlayerLeft{
				ServerID:   serverID,
				PlayerName: name,
				Reason:     "System crash",
				Timestamp:  crashTimestamp,
			})
			total++
		}
	}
	m.logger.Info("crash recovery completed", "players_closed", total)

	m.dispatcher.DispatchSystemCrashDetected(events.SystemCrashDetected{
		CrashTimestamp: crashTimestamp,
		TimeSinceCrash: timeSinceCrash,
	})
}
