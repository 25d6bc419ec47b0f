package players

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xyqyear/mcadmin/internal/events"
)

type fakeLister struct {
	players map[string][]string
	err     map[string]error
}

func (f *fakeLister) ListPlayers(_ context.Context, serverID string) ([]string, error) {
	if err, ok := f.err[serverID]; ok {
		return nil, err
	}
	return f.players[serverID], nil
}

func TestValidateServerClosesFalselyOnlineSession(t *testing.T) {
	store := newFakeStore()
	serverDbID, err := store.ResolveServerDbID(context.Background(), "survival")
	require.NoError(t, err)
	aliceID, err := store.UpsertPlayerByUUID(context.Background(), "", "Alice")
	require.NoError(t, err)
	require.NoError(t, store.OpenSession(context.Background(), aliceID, serverDbID, time.Now()))
	store.onlineOverride = nil

	lister := &fakeLister{players: map[string][]string{"survival": {}}}

	var left []events.PlayerLeft
	dispatcher := events.NewDispatcher(slog.Default())
	dispatcher.OnPlayerLeft(func(e events.PlayerLeft) { left = append(left, e) })

	v := NewRCONValidator(slog.Default(), &onlineNameStore{store}, lister, dispatcher, time.Minute)
	v.validateServer(context.Background(), "survival", serverDbID)

	require.Len(t, left, 1)
	assert.Equal(t, "Alice", left[0].PlayerName)
}

func TestValidateServerOpensFalselyOfflineSession(t *testing.T) {
	store := newFakeStore()
	serverDbID, err := store.ResolveServerDbID(context.Background(), "survival")
	require.NoError(t, err)

	lister := &fakeLister{players: map[string][]string{"survival": {"Bob"}}}

	var joined []events.PlayerJoined
	dispatcher := events.NewDispatcher(slog.Default())
	dispatcher.OnPlayerJoined(func(e events.PlayerJoined) { joined = append(joined, e) })

	v := NewRCONValidator(slog.Default(), &onlineNameStore{store}, lister, dispatcher, time.Minute)
	v.validateServer(context.Background(), "survival", serverDbID)

	require.Len(t, joined, 1)
	assert.Equal(t, "Bob", joined[0].PlayerName)
}

func TestValidateServerSkipsUnreachableInstance(t *testing.T) {
	store := newFakeStore()
	serverDbID, _ := store.ResolveServerDbID(context.Background(), "survival")

	lister := &fakeLister{err: map[string]error{"survival": assertUnreachable{}}}

	var joined []events.PlayerJoined
	dispatcher := events.NewDispatcher(slog.Default())
	dispatcher.OnPlayerJoined(func(e events.PlayerJoined) { joined = append(joined, e) })

	v := NewRCONValidator(slog.Default(), &onlineNameStore{store}, lister, dispatcher, time.Minute)
	v.validateServer(context.Background(), "survival", serverDbID)

	assert.Empty(t, joined)
}

type assertUnreachable struct{}

func (assertUnreachable) Error() string { return "instance unreachable" }

// onlineNameStore adapts fakeStore's open-session map into
// OnlinePlayerNamesOnServer, since fakeStore's zero-value implementation
// returns nil.
type onlineNameStore struct {
	*fakeStore
}

func (s *onlineNameStore) OnlinePlayerNamesOnServer(_ context.Context, serverDbID int64) ([]string, error) {
	var names []string
	for key := range s.openSessions {
		if key[1] != serverDbID {
			continue
		}
		for name, p := range s.players {
			if p.DbID == key[0] {
				names = append(names, name)
			}
		}
	}
	return names, nil
}
