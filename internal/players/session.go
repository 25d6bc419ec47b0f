package players

import (
	"context"
	"log/slog"

	"github.com/xyqyear/mcadmin/internal/events"
)

// SessionTracker opens and closes PlayerSession rows per spec §4.3.2. It
// resolves players by name rather than by the identity tracker's db id,
// since a join/leave pair can arrive before identity resolution completes.
type SessionTracker struct {
	logger *slog.Logger
	store  Store
}

func NewSessionTracker(logger *slog.Logger, store Store, dispatcher *events.Dispatcher) *SessionTracker {
	t := &SessionTracker{logger: logger, store: store}
	dispatcher.OnPlayerJoined(t.handleJoined)
	dispatcher.OnPlayerLeft(t.handleLeft)
	dispatcher.OnServerStopping(t.handleServerStopping)
	return t
}

func (t *SessionTracker) handleJoined(e events.PlayerJoined) {
	ctx := context.Background()

	player, err := resolveOrCreatePlayer(ctx, t.store, e.PlayerName)
	if err != nil {
		t.logger.Error("resolve player for join failed", "player", e.PlayerName, "error", err)
		return
	}
	serverDbID, err := t.store.ResolveServerDbID(ctx, e.ServerID)
	if err != nil {
		t.logger.Error("resolve server for join failed", "server_id", e.ServerID, "error", err)
		return
	}

	// The store allows one open session per player and server: a join while
	// one is still open (e.g. a reconnect the leave line never fired for)
	// fails here, the error is logged, and the earlier session stays open.
	if err := t.store.OpenSession(ctx, player.DbID, serverDbID, e.Timestamp); err != nil {
		t.logger.Error("open session failed", "player", e.PlayerName, "server_id", e.ServerID, "error", err)
	}
}

func (t *SessionTracker) handleLeft(e events.PlayerLeft) {
	ctx := context.Background()

	player, found, err := t.store.FindPlayerByName(ctx, e.PlayerName)
	if err != nil {
		t.logger.Error("resolve player for leave failed", "player", e.PlayerName, "error", err)
		return
	}
	if !found {
		t.logger.Warn("leave event for unknown player", "player", e.PlayerName)
		return
	}
	serverDbID, err := t.store.ResolveServerDbID(ctx, e.ServerID)
	if err != nil {
		t.logger.Error("resolve server for leave failed", "server_id", e.ServerID, "error", err)
		return
	}

	closed, err := t.store.CloseMostRecentOpenSession(ctx, player.DbID, serverDbID, e.Timestamp)
	if err != nil {
		t.logger.Error("close session failed", "player", e.PlayerName, "server_id", e.ServerID, "error", err)
		return
	}
	if !closed {
		t.logger.Debug("leave event with no open session", "player", e.PlayerName, "server_id", e.ServerID)
	}
}

// handleServerStopping closes every open session on the server at once,
// since individual leave lines are not guaranteed during a shutdown.
func (t *SessionTracker) handleServerStopping(e events.ServerStopping) {
	ctx := context.Background()

	serverDbID, err := t.store.ResolveServerDbID(ctx, e.ServerID)
	if err != nil {
		t.logger.Error("resolve server for shutdown failed", "server_id", e.ServerID, "error", err)
		return
	}
	if err := t.store.CloseAllOpenSessionsOnServer(ctx, serverDbID, e.Timestamp); err != nil {
		t.logger.Error("close all sessions on shutdown failed", "server_id", e.ServerID, "error", err)
	}
}
