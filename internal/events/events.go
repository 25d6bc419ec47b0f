// Package events defines the typed event structs that flow across mcadmin's
// subsystems and the in-process Dispatcher that fans them out. This
// generalizes the original system's dynamically-typed event dispatch into
// one registration/dispatch method pair per event variant, so nothing in
// this package relies on interface{} or reflection for routing — only
// SchemaVersion hashing (dynamicconfig) uses reflection, deliberately kept
// out of the hot path.
package events

import "time"

// PlayerUUIDDiscovered fires when a log line reveals a player's UUID.
type PlayerUUIDDiscovered struct {
	ServerID   string
	PlayerName string
	UUID       string // 32 hex chars, dashless
	Timestamp  time.Time
}

// PlayerJoined fires on join, whether from a real log line or synthesized by
// the RCON reconciler.
type PlayerJoined struct {
	ServerID   string
	PlayerName string
	Timestamp  time.Time
}

// PlayerLeft fires on disconnect, whether from a real log line, a synthetic
// crash-recovery close, or an RCON reconciler correction.
type PlayerLeft struct {
	ServerID   string
	PlayerName string
	Reason     string
	Timestamp  time.Time
}

// PlayerChatMessage fires on a chat line.
type PlayerChatMessage struct {
	ServerID   string
	PlayerName string
	Message    string
	Timestamp  time.Time
}

// PlayerAchievement fires when a player earns an advancement.
type PlayerAchievement struct {
	ServerID        string
	PlayerName      string
	AchievementName string
	Timestamp       time.Time
}

// PlayerSkinUpdateRequested fires after a join, asking the skin updater to
// refresh stored skin/avatar PNGs for this player.
type PlayerSkinUpdateRequested struct {
	PlayerDbID int64
	UUID       string
	PlayerName string
}

// ServerStopping fires when the log contains the shutdown banner.
type ServerStopping struct {
	ServerID  string
	Timestamp time.Time
}

// SystemCrashDetected fires once at startup when the previous run's
// heartbeat is older than the crash threshold.
type SystemCrashDetected struct {
	CrashTimestamp   time.Time
	TimeSinceCrash   time.Duration
}
