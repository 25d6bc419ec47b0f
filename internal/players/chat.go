package players

import (
	"context"
	"log/slog"

	"github.com/xyqyear/mcadmin/internal/events"
)

// ChatTracker records chat lines and achievements, per spec §4.3.3. Like the
// session tracker it resolves by name, creating a placeholder player record
// on first sight rather than dropping the event.
type ChatTracker struct {
	logger *slog.Logger
	store  Store
}

func NewChatTracker(logger *slog.Logger, store Store, dispatcher *events.Dispatcher) *ChatTracker {
	t := &ChatTracker{logger: logger, store: store}
	dispatcher.OnPlayerChatMessage(t.handleChat)
	dispatcher.OnPlayerAchievement(t.handleAchievement)
	return t
}

func (t *ChatTracker) handleChat(e events.PlayerChatMessage) {
	ctx := context.Background()

	player, err := resolveOrCreatePlayer(ctx, t.store, e.PlayerName)
	if err != nil {
		t.logger.Error("resolve player for chat failed", "player", e.PlayerName, "error", err)
		return
	}
	serverDbID, err := t.store.ResolveServerDbID(ctx, e.ServerID)
	if err != nil {
		t.logger.Error("resolve server for chat failed", "server_id", e.ServerID, "error", err)
		return
	}
	if err := t.store.InsertChatMessage(ctx, player.DbID, serverDbID, e.Message, e.Timestamp); err != nil {
		t.logger.Error("insert chat message failed", "player", e.PlayerName, "error", err)
	}
}

func (t *ChatTracker) handleAchievement(e events.PlayerAchievement) {
	ctx := context.Background()

	player, err := resolveOrCreatePlayer(ctx, t.store, e.PlayerName)
	if err != nil {
		t.logger.Error("resolve player for achievement failed", "player", e.PlayerName, "error", err)
		return
	}
	serverDbID, err := t.store.ResolveServerDbID(ctx, e.ServerID)
	if err != nil {
		t.logger.Error("resolve server for achievement failed", "server_id", e.ServerID, "error", err)
		return
	}
	if err := t.store.InsertAchievement(ctx, player.DbID, serverDbID, e.AchievementName, e.Timestamp); err != nil {
		t.logger.Error("insert achievement failed", "player", e.PlayerName, "achievement", e.AchievementName, "error", err)
	}
}
