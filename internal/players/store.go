// Package players implements the six player-tracking collaborators from
// spec.md §4.3: identity, session, chat/achievement, skin updater, heartbeat
// crash recovery, and the RCON reconciler. Each is a pure event handler
// wired onto the shared dispatcher — none calls another directly, per the
// "strictly event-driven" design note.
package players

import (
	"context"
	"time"
)

// Player is a persisted player identity.
type Player struct {
	DbID        int64
	UUID        string
	CurrentName string
}

// Session is a persisted PlayerSession row.
type Session struct {
	SessionID       int64
	PlayerDbID      int64
	ServerDbID      int64
	JoinedAt        time.Time
	LeftAt          *time.Time
	DurationSeconds *int64
}

// Store is the persistence surface the tracker collaborators depend on.
// internal/db/postgres implements this against the PlayerSession et al.
// tables; tests use an in-memory fake.
type Store interface {
	// UpsertPlayerByUUID creates or updates (uuid, currentName); returns the
	// player's db id.
	UpsertPlayerByUUID(ctx context.Context, uuid, currentName string) (int64, error)

	// FindPlayerByName returns the most recently seen player row with this
	// current name, or (Player{}, false, nil) if none exists.
	FindPlayerByName(ctx context.Context, name string) (Player, bool, error)

	// ResolveServerDbID maps a filesystem instance id to its ACTIVE server
	// row id.
	ResolveServerDbID(ctx context.Context, serverID string) (int64, error)

	// OpenSession creates a new open PlayerSession.
	OpenSession(ctx context.Context, playerDbID, serverDbID int64, joinedAt time.Time) error

	// CloseMostRecentOpenSession closes the most recent open session for
	// (playerDbID, serverDbID). Returns false if none was open.
	CloseMostRecentOpenSession(ctx context.Context, playerDbID, serverDbID int64, leftAt time.Time) (bool, error)

	// CloseAllOpenSessionsOnServer closes every open session on serverDbID.
	CloseAllOpenSessionsOnServer(ctx context.Context, serverDbID int64, leftAt time.Time) error

	// InsertChatMessage records a chat line.
	InsertChatMessage(ctx context.Context, playerDbID, serverDbID int64, message string, sentAt time.Time) error

	// InsertAchievement records an achievement, ignoring a duplicate
	// (playerDbID, serverDbID, name) tuple.
	InsertAchievement(ctx context.Context, playerDbID, serverDbID int64, name string, earnedAt time.Time) error

	// OnlinePlayersGroupedByServer returns server_id -> [player names] for
	// every open session, server ids expressed as filesystem instance ids.
	OnlinePlayersGroupedByServer(ctx context.Context) (map[string][]string, error)

	// OnlinePlayerNamesOnServer returns the names with an open session on
	// serverDbID, for the RCON reconciler's diff.
	OnlinePlayerNamesOnServer(ctx context.Context, serverDbID int64) ([]string, error)

	// ActiveServers returns instance id -> server db id for every ACTIVE
	// server row.
	ActiveServers(ctx context.Context) (map[string]int64, error)

	// SetSkin stores the skin/avatar PNGs and last-update timestamp.
	SetSkin(ctx context.Context, playerDbID int64, skinPNG, avatarPNG []byte, updatedAt time.Time) error

	// GetHeartbeat returns the single heartbeat row's timestamp, or
	// (zero, false, nil) if it has never been set.
	GetHeartbeat(ctx context.Context) (time.Time, bool, error)

	// UpsertHeartbeat sets the single heartbeat row's timestamp.
	UpsertHeartbeat(ctx context.Context, ts time.Time) error
}

// resolveOrCreatePlayer finds a player by current name, creating a
// placeholder record with no known UUID if none exists yet. Session and chat
// events can arrive before the identity tracker has resolved a UUID, and
// dropping them would lose data the identity tracker can reconcile later.
func resolveOrCreatePlayer(ctx context.Context, store Store, name string) (Player, error) {
	player, found, err := store.FindPlayerByName(ctx, name)
	if err != nil {
		return Player{}, err
	}
	if found {
		return player, nil
	}
	dbID, err := store.UpsertPlayerByUUID(ctx, "", name)
	if err != nil {
		return Player{}, err
	}
	return Player{DbID: dbID, CurrentName: name}, nil
}
