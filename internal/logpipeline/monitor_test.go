package logpipeline

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xyqyear/mcadmin/internal/events"
)

type recordingDispatcher struct {
	joined []events.PlayerJoined
	left   []events.PlayerLeft
}

func (r *recordingDispatcher) DispatchPlayerUUIDDiscovered(events.PlayerUUIDDiscovered) {}
func (r *recordingDispatcher) DispatchPlayerJoined(e events.PlayerJoined)               { r.joined = append(r.joined, e) }
func (r *recordingDispatcher) DispatchPlayerLeft(e events.PlayerLeft)                   { r.left = append(r.left, e) }
func (r *recordingDispatcher) DispatchPlayerChatMessage(events.PlayerChatMessage)       {}
func (r *recordingDispatcher) DispatchPlayerAchievement(events.PlayerAchievement)       {}
func (r *recordingDispatcher) DispatchServerStopping(events.ServerStopping)             {}

func newTestMonitor(t *testing.T) (*Monitor, *recordingDispatcher) {
	t.Helper()
	parser := newTestParser(t)
	rec := &recordingDispatcher{}
	m := NewMonitor(slog.Default(), rec, func() *Parser { return parser })
	return m, rec
}

func TestProcessChangesDiscardsPartialTrailingLine(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "latest.log")
	require.NoError(t, os.WriteFile(logPath, []byte("[INFO] Alice lost connection: Disconnected\nincomplete line without newline"), 0o644))

	m, rec := newTestMonitor(t)
	offset := m.processChanges("survival", logPath, 0)

	require.Len(t, rec.left, 1)
	assert.Equal(t, "Alice", rec.left[0].PlayerName)

	// offset should stop right after the complete line, not consume the
	// trailing partial line.
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	completeLen := int64(len("[INFO] Alice lost connection: Disconnected\n"))
	assert.Equal(t, completeLen, offset)
	assert.Less(t, offset, int64(len(data)))
}

func TestProcessChangesDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "latest.log")
	require.NoError(t, os.WriteFile(logPath, []byte("[INFO] Alice lost connection: Disconnected\n[INFO] Bob lost connection: Disconnected\n"), 0o644))

	m, _ := newTestMonitor(t)
	offset := m.processChanges("survival", logPath, 1000) // offset far beyond the (truncated) file

	assert.Greater(t, offset, int64(0))
	assert.LessOrEqual(t, offset, int64(len("[INFO] Alice lost connection: Disconnected\n[INFO] Bob lost connection: Disconnected\n")))
}
