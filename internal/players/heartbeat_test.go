package players

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xyqyear/mcadmin/internal/events"
)

func TestHeartbeatCheckCrashDispatchesPlayerLeftForEachOnlinePlayer(t *testing.T) {
	store := newFakeStore()
	store.heartbeat = time.Now().Add(-time.Hour)
	store.heartbeatKnown = true

	serverDbID, _ := store.ResolveServerDbID(context.Background(), "survival")
	aliceID, _ := store.UpsertPlayerByUUID(context.Background(), "", "Alice")
	_ = store.OpenSession(context.Background(), aliceID, serverDbID, time.Now())

	var leftEvents []events.PlayerLeft
	var crashEvents []events.SystemCrashDetected
	dispatcher := events.NewDispatcher(slog.Default())
	dispatcher.OnPlayerLeft(func(e events.PlayerLeft) { leftEvents = append(leftEvents, e) })
	dispatcher.OnSystemCrashDetected(func(e events.SystemCrashDetected) { crashEvents = append(crashEvents, e) })

	// Simulate an online player by wiring OnlinePlayersGroupedByServer directly.
	store.onlineOverride = map[string][]string{"survival": {"Alice"}}

	mgr := NewHeartbeatManager(slog.Default(), store, dispatcher, time.Minute, 5*time.Minute)
	mgr.checkCrash(context.Background())

	assert.Len(t, leftEvents, 1)
	assert.Equal(t, "Alice", leftEvents[0].PlayerName)
	assert.Equal(t, "System crash", leftEvents[0].Reason)
	assert.Len(t, crashEvents, 1)
}

func TestHeartbeatCheckCrashSkipsNormalRestart(t *testing.T) {
	store := newFakeStore()
	store.heartbeat = time.Now().Add(-time.Second)
	store.heartbeatKnown = true

	var crashEvents []events.SystemCrashDetected
	dispatcher := events.NewDispatcher(slog.Default())
	dispatcher.OnSystemCrashDetected(func(e events.SystemCrashDetected) { crashEvents = append(crashEvents, e) })

	mgr := NewHeartbeatManager(slog.Default(), store, dispatcher, time.Minute, 5*time.Minute)
	mgr.checkCrash(context.Background())

	assert.Empty(t, crashEvents)
}

func TestHeartbeatCheckCrashSkipsFirstStartup(t *testing.T) {
	store := newFakeStore()

	var crashEvents []events.SystemCrashDetected
	dispatcher := events.NewDispatcher(slog.Default())
	dispatcher.OnSystemCrashDetected(func(e events.SystemCrashDetected) { crashEvents = append(crashEvents, e) })

	mgr := NewHeartbeatManager(slog.Default(), store, dispatcher, time.Minute, 5*time.Minute)
	mgr.checkCrash(context.Background())

	assert.Empty(t, crashEvents)
}
