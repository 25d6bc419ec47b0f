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

type fakeStore struct {
	players        map[string]Player // keyed by current name
	nextPlayerID   int64
	servers        map[string]int64
	openSessions   map[[2]int64]bool // (playerDbID, serverDbID) -> open
	chatMessages   int
	achievements   map[[3]string]bool
	heartbeat      time.Time
	heartbeatKnown bool
	onlineOverride map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		players:      make(map[string]Player),
		servers:      make(map[string]int64),
		openSessions: make(map[[2]int64]bool),
		achievements: make(map[[3]string]bool),
	}
}

func (s *fakeStore) UpsertPlayerByUUID(_ context.Context, uuid, currentName string) (int64, error) {
	if p, ok := s.players[currentName]; ok {
		p.UUID = uuid
		s.players[currentName] = p
		return p.DbID, nil
	}
	s.nextPlayerID++
	s.players[currentName] = Player{DbID: s.nextPlayerID, UUID: uuid, CurrentName: currentName}
	return s.nextPlayerID, nil
}

func (s *fakeStore) FindPlayerByName(_ context.Context, name string) (Player, bool, error) {
	p, ok := s.players[name]
	return p, ok, nil
}

func (s *fakeStore) ResolveServerDbID(_ context.Context, serverID string) (int64, error) {
	if id, ok := s.servers[serverID]; ok {
		return id, nil
	}
	id := int64(len(s.servers) + 1)
	s.servers[serverID] = id
	return id, nil
}

func (s *fakeStore) OpenSession(_ context.Context, playerDbID, serverDbID int64, _ time.Time) error {
	s.openSessions[[2]int64{playerDbID, serverDbID}] = true
	return nil
}

func (s *fakeStore) CloseMostRecentOpenSession(_ context.Context, playerDbID, serverDbID int64, _ time.Time) (bool, error) {
	key := [2]int64{playerDbID, serverDbID}
	if !s.openSessions[key] {
		return false, nil
	}
	delete(s.openSessions, key)
	return true, nil
}

func (s *fakeStore) CloseAllOpenSessionsOnServer(_ context.Context, serverDbID int64, _ time.Time) error {
	for k := range s.openSessions {
		if k[1] == serverDbID {
			delete(s.openSessions, k)
		}
	}
	return nil
}

func (s *fakeStore) InsertChatMessage(_ context.Context, _, _ int64, _ string, _ time.Time) error {
	s.chatMessages++
	return nil
}

func (s *fakeStore) InsertAchievement(_ context.Context, playerDbID, serverDbID int64, name string, _ time.Time) error {
	s.achievements[[3]string{itoa(playerDbID), itoa(serverDbID), name}] = true
	return nil
}

func (s *fakeStore) OnlinePlayersGroupedByServer(_ context.Context) (map[string][]string, error) {
	return s.onlineOverride, nil
}

func (s *fakeStore) OnlinePlayerNamesOnServer(_ context.Context, _ int64) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) ActiveServers(_ context.Context) (map[string]int64, error) {
	return s.servers, nil
}

func (s *fakeStore) SetSkin(_ context.Context, _ int64, _, _ []byte, _ time.Time) error {
	return nil
}

func (s *fakeStore) GetHeartbeat(_ context.Context) (time.Time, bool, error) {
	return s.heartbeat, s.heartbeatKnown, nil
}

func (s *fakeStore) UpsertHeartbeat(_ context.Context, ts time.Time) error {
	s.heartbeat = ts
	s.heartbeatKnown = true
	return nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestSessionTrackerOpensAndClosesSessions(t *testing.T) {
	store := newFakeStore()
	dispatcher := events.NewDispatcher(slog.Default())
	NewSessionTracker(slog.Default(), store, dispatcher)

	now := time.Now()
	dispatcher.DispatchPlayerJoined(events.PlayerJoined{ServerID: "survival", PlayerName: "Alice", Timestamp: now})

	player, found, err := store.FindPlayerByName(context.Background(), "Alice")
	require.NoError(t, err)
	require.True(t, found)

	serverDbID, err := store.ResolveServerDbID(context.Background(), "survival")
	require.NoError(t, err)
	assert.True(t, store.openSessions[[2]int64{player.DbID, serverDbID}])

	dispatcher.DispatchPlayerLeft(events.PlayerLeft{ServerID: "survival", PlayerName: "Alice", Timestamp: now.Add(time.Minute)})
	assert.False(t, store.openSessions[[2]int64{player.DbID, serverDbID}])
}

func TestSessionTrackerServerStoppingClosesAllSessions(t *testing.T) {
	store := newFakeStore()
	dispatcher := events.NewDispatcher(slog.Default())
	NewSessionTracker(slog.Default(), store, dispatcher)

	now := time.Now()
	dispatcher.DispatchPlayerJoined(events.PlayerJoined{ServerID: "survival", PlayerName: "Alice", Timestamp: now})
	dispatcher.DispatchPlayerJoined(events.PlayerJoined{ServerID: "survival", PlayerName: "Bob", Timestamp: now})

	dispatcher.DispatchServerStopping(events.ServerStopping{ServerID: "survival", Timestamp: now.Add(time.Minute)})

	assert.Empty(t, store.openSessions)
}

func TestChatTrackerRecordsMessageForUnknownPlayer(t *testing.T) {
	store := newFakeStore()
	dispatcher := events.NewDispatcher(slog.Default())
	NewChatTracker(slog.Default(), store, dispatcher)

	dispatcher.DispatchPlayerChatMessage(events.PlayerChatMessage{
		ServerID: "survival", PlayerName: "Alice", Message: "hello", Timestamp: time.Now(),
	})

	assert.Equal(t, 1, store.chatMessages)
	_, found, err := store.FindPlayerByName(context.Background(), "Alice")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestChatTrackerRecordsAchievement(t *testing.T) {
	store := newFakeStore()
	dispatcher := events.NewDispatcher(slog.Default())
	NewChatTracker(slog.Default(), store, dispatcher)

	dispatcher.DispatchPlayerAchievement(events.PlayerAchievement{
		ServerID: "survival", PlayerName: "Alice", AchievementName: "Stone Age", Timestamp: time.Now(),
	})

	assert.Len(t, store.achievements, 1)
}

func TestIdentityTrackerUpsertsOnUUIDDiscovered(t *testing.T) {
	store := newFakeStore()
	dispatcher := events.NewDispatcher(slog.Default())
	NewIdentityTracker(slog.Default(), store, NewProfileClient(), dispatcher)

	dispatcher.DispatchPlayerUUIDDiscovered(events.PlayerUUIDDiscovered{
		ServerID: "survival", PlayerName: "Alice", UUID: "11111111222233334444555555555555", Timestamp: time.Now(),
	})

	player, found, err := store.FindPlayerByName(context.Background(), "Alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "11111111222233334444555555555555", player.UUID)
}
