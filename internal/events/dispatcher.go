package events

import (
	"log/slog"
	"sync"
)

// Dispatcher is the in-process event bus. There is exactly one instance,
// constructed in main and wired into every component that emits or consumes
// events — no package-level global, per the forbid-singletons design note.
type Dispatcher struct {
	logger *slog.Logger

	mu sync.RWMutex

	uuidDiscovered     []func(PlayerUUIDDiscovered)
	playerJoined       []func(PlayerJoined)
	playerLeft         []func(PlayerLeft)
	chatMessage        []func(PlayerChatMessage)
	achievement        []func(PlayerAchievement)
	skinUpdateRequested []func(PlayerSkinUpdateRequested)
	serverStopping     []func(ServerStopping)
	systemCrash        []func(SystemCrashDetected)
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) OnPlayerUUIDDiscovered(h func(PlayerUUIDDiscovered)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uuidDiscovered = append(d.uuidDiscovered, h)
}

func (d *Dispatcher) OnPlayerJoined(h func(PlayerJoined)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playerJoined = append(d.playerJoined, h)
}

func (d *Dispatcher) OnPlayerLeft(h func(PlayerLeft)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playerLeft = append(d.playerLeft, h)
}

func (d *Dispatcher) OnPlayerChatMessage(h func(PlayerChatMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chatMessage = append(d.chatMessage, h)
}

func (d *Dispatcher) OnPlayerAchievement(h func(PlayerAchievement)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.achievement = append(d.achievement, h)
}

func (d *Dispatcher) OnPlayerSkinUpdateRequested(h func(PlayerSkinUpdateRequested)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.skinUpdateRequested = append(d.skinUpdateRequested, h)
}

func (d *Dispatcher) OnServerStopping(h func(ServerStopping)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.serverStopping = append(d.serverStopping, h)
}

func (d *Dispatcher) OnSystemCrashDetected(h func(SystemCrashDetected)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.systemCrash = append(d.systemCrash, h)
}

// DispatchPlayerUUIDDiscovered runs all registered handlers concurrently and
// waits for them, per the "same line, serialized dispatch" ordering rule —
// the caller (the log monitor) awaits this call before parsing the next line.
func (d *Dispatcher) DispatchPlayerUUIDDiscovered(e PlayerUUIDDiscovered) {
	d.mu.RLock()
	handlers := d.uuidDiscovered
	d.mu.RUnlock()
	runAll(d.logger, "player_uuid_discovered", len(handlers), func(i int) { handlers[i](e) })
}

func (d *Dispatcher) DispatchPlayerJoined(e PlayerJoined) {
	d.mu.RLock()
	handlers := d.playerJoined
	d.mu.RUnlock()
	runAll(d.logger, "player_joined", len(handlers), func(i int) { handlers[i](e) })
}

func (d *Dispatcher) DispatchPlayerLeft(e PlayerLeft) {
	d.mu.RLock()
	handlers := d.playerLeft
	d.mu.RUnlock()
	runAll(d.logger, "player_left", len(handlers), func(i int) { handlers[i](e) })
}

func (d *Dispatcher) DispatchPlayerChatMessage(e PlayerChatMessage) {
	d.mu.RLock()
	handlers := d.chatMessage
	d.mu.RUnlock()
	runAll(d.logger, "player_chat_message", len(handlers), func(i int) { handlers[i](e) })
}

func (d *Dispatcher) DispatchPlayerAchievement(e PlayerAchievement) {
	d.mu.RLock()
	handlers := d.achievement
	d.mu.RUnlock()
	runAll(d.logger, "player_achievement", len(handlers), func(i int) { handlers[i](e) })
}

func (d *Dispatcher) DispatchPlayerSkinUpdateRequested(e PlayerSkinUpdateRequested) {
	d.mu.RLock()
	handlers := d.skinUpdateRequested
	d.mu.RUnlock()
	runAll(d.logger, "player_skin_update_requested", len(handlers), func(i int) { handlers[i](e) })
}

func (d *Dispatcher) DispatchServerStopping(e ServerStopping) {
	d.mu.RLock()
	handlers := d.serverStopping
	d.mu.RUnlock()
	runAll(d.logger, "server_stopping", len(handlers), func(i int) { handlers[i](e) })
}

func (d *Dispatcher) DispatchSystemCrashDetected(e SystemCrashDetected) {
	d.mu.RLock()
	handlers := d.systemCrash
	d.mu.RUnlock()
	runAll(d.logger, "system_crash_detected", len(handlers), func(i int) { handlers[i](e) })
}

// runAll launches each handler in its own goroutine, recovers individual
// panics so one bad handler cannot take down the dispatch, and waits for all
// of them before returning.
func runAll(logger *slog.Logger, eventName string, n int, call func(i int)) {
	if n == 0 {
		if logger != nil {
			logger.Debug("no handlers registered", "event", eventName)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil && logger != nil {
					logger.Error("event handler panicked", "event", eventName, "recover", r)
				}
			}()
			call(i)
		}(i)
	}
	wg.Wait()
}
