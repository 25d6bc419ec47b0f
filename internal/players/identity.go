package players

import (
	"context"
	"log/slog"

	"github.com/xyqyear/mcadmin/internal/events"
)

// IdentityTracker resolves a player name to a stable db id, per spec §4.3.1.
// UUID discovery is authoritative; a join seen before the UUID line (or on a
// server with no UUID log line at all) falls back to name-only resolution,
// consulting the configured profile service and tolerating its failure.
type IdentityTracker struct {
	logger  *slog.Logger
	store   Store
	profile *ProfileClient
	dispatcher interface {
		DispatchPlayerSkinUpdateRequested(events.PlayerSkinUpdateRequested)
	}
}

func NewIdentityTracker(logger *slog.Logger, store Store, profile *ProfileClient, dispatcher *events.Dispatcher) *IdentityTracker {
	t := &IdentityTracker{logger: logger, store: store, profile: profile, dispatcher: dispatcher}
	dispatcher.OnPlayerUUIDDiscovered(t.handleUUIDDiscovered)
	dispatcher.OnPlayerJoined(t.handleJoined)
	return t
}

func (t *IdentityTracker) handleUUIDDiscovered(e events.PlayerUUIDDiscovered) {
	ctx := context.Background()
	if _, err := t.store.UpsertPlayerByUUID(ctx, e.UUID, e.PlayerName); err != nil {
		t.logger.Error("upsert player by uuid failed", "player", e.PlayerName, "error", err)
	}
}

// handleJoined resolves the joining player's db id, falling back to the
// profile service when no local record exists yet, and requests a skin
// refresh once resolved.
func (t *IdentityTracker) handleJoined(e events.PlayerJoined) {
	ctx := context.Background()

	existing, found, err := t.store.FindPlayerByName(ctx, e.PlayerName)
	if err != nil {
		t.logger.Error("find player by name failed", "player", e.PlayerName, "error", err)
		return
	}
	if found {
		t.requestSkinUpdate(ctx, existing.DbID, existing.UUID, existing.CurrentName)
		return
	}

	uuid, ok, err := t.profile.ResolveUUID(ctx, e.PlayerName)
	if err != nil {
		// Transport, non-200/404 status or decode failure against the
		// profile service: log and drop.
		// The identity will be filled in properly once a UUID log line (or a
		// later successful lookup) arrives.
		t.logger.Warn("profile lookup failed, deferring identity resolution", "player", e.PlayerName, "error", err)
		return
	}
	if !ok {
		t.logger.Warn("profile lookup found no such player", "player", e.PlayerName)
		return
	}

	dbID, err := t.store.UpsertPlayerByUUID(ctx, uuid, e.PlayerName)
	if err != nil {
		t.logger.Error("upsert player by uuid failed", "player", e.PlayerName, "error", err)
		return
	}
	t.requestSkinUpdate(ctx, dbID, uuid, e.PlayerName)
}

func (t *IdentityTracker) requestSkinUpdate(_ context.Context, dbID int64, uuid, name string) {
	t.dispatcher.DispatchPlayerSkinUpdateRequested(events.PlayerSkinUpdateRequested{
		PlayerDbID: dbID,
		UUID:       uuid,
		PlayerName: name,
	})
}
