package logpipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xyqyear/mcadmin/internal/events"
)

// Dispatcher is the subset of *events.Dispatcher the monitor needs, kept as
// an interface so tests can substitute a recorder.
type Dispatcher interface {
	DispatchPlayerUUIDDiscovered(events.PlayerUUIDDiscovered)
	DispatchPlayerJoined(events.PlayerJoined)
	DispatchPlayerLeft(events.PlayerLeft)
	DispatchPlayerChatMessage(events.PlayerChatMessage)
	DispatchPlayerAchievement(events.PlayerAchievement)
	DispatchServerStopping(events.ServerStopping)
}

// Monitor owns one watcher goroutine per tracked instance and the byte
// offset into that instance's log file. Offsets are never shared outside
// the owning goroutine, per the design note "one goroutine per instance
// owning its offset."
type Monitor struct {
	logger     *slog.Logger
	dispatcher Dispatcher
	parser     func() *Parser // returns the current hot-reloaded parser

	mu     sync.Mutex
	cancel map[string]context.CancelFunc
}

func NewMonitor(logger *slog.Logger, dispatcher Dispatcher, parser func() *Parser) *Monitor {
	return &Monitor{
		logger:     logger,
		dispatcher: dispatcher,
		parser:     parser,
		cancel:     make(map[string]context.CancelFunc),
	}
}

// Watch starts tailing serverID's log file at logPath. A no-op if already
// watching that server.
func (m *Monitor) Watch(ctx context.Context, serverID, logPath string) {
	m.mu.Lock()
	if _, exists := m.cancel[serverID]; exists {
		m.mu.Unlock()
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	m.cancel[serverID] = cancel
	m.mu.Unlock()

	go m.watchLoop(watchCtx, serverID, logPath)
}

// StopWatching cancels serverID's watcher goroutine, if any.
func (m *Monitor) StopWatching(serverID string) {
	m.mu.Lock()
	cancel, exists := m.cancel[serverID]
	if exists {
		delete(m.cancel, serverID)
	}
	m.mu.Unlock()
	if exists {
		cancel()
	}
}

func (m *Monitor) watchLoop(ctx context.Context, serverID, logPath string) {
	offset := m.initialOffset(logPath)

	if err := m.waitForFile(ctx, logPath); err != nil {
		return // context cancelled
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Error("create fsnotify watcher failed", "server_id", serverID, "error", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(logPath)
	if err := watcher.Add(dir); err != nil {
		m.logger.Error("watch log dir failed", "server_id", serverID, "dir", dir, "error", err)
		return
	}

	offset = m.processChanges(serverID, logPath, offset)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(logPath) {
				continue
			}
			switch {
			case ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0:
				m.logger.Debug("log file removed, waiting for recreation", "server_id", serverID)
				if err := m.waitForFile(ctx, logPath); err != nil {
					return
				}
				offset = 0
			case ev.Op&fsnotify.Create != 0:
				offset = 0
			}
			offset = m.processChanges(serverID, logPath, offset)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("fsnotify error", "server_id", serverID, "error", err)
		}
	}
}

// initialOffset sets the offset to the file's current size if it exists
// (so startup doesn't replay history), or 0 if it doesn't exist yet.
func (m *Monitor) initialOffset(logPath string) int64 {
	info, err := os.Stat(logPath)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (m *Monitor) waitForFile(ctx context.Context, logPath string) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(logPath); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processChanges reads new content from offset to EOF, detecting truncation
// (current size < offset) and discarding any trailing partial line by
// advancing the offset only to the last complete newline. Returns the
// updated offset.
func (m *Monitor) processChanges(serverID, logPath string, offset int64) int64 {
	info, err := os.Stat(logPath)
	if err != nil {
		return offset
	}

	if info.Size() < offset {
		m.logger.Info("log truncated, reading from beginning", "server_id", serverID)
		offset = 0
	}
	if info.Size() <= offset {
		return offset
	}

	f, err := os.Open(logPath)
	if err != nil {
		m.logger.Error("open log file failed", "server_id", serverID, "error", err)
		return offset
	}
	defer f.Close()

	if _, err := f.Seek(offset, 0); err != nil {
		m.logger.Error("seek log file failed", "server_id", serverID, "error", err)
		return offset
	}

	buf := make([]byte, info.Size()-offset)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return offset
	}
	buf = buf[:n]

	lastNewline := bytes.LastIndexByte(buf, '\n')
	if lastNewline < 0 {
		// No complete line yet; don't advance the offset.
		return offset
	}

	complete := buf[:lastNewline+1]
	newOffset := offset + int64(len(complete))

	parser := m.parser()
	now := time.Now().UTC()
	for _, line := range bytes.Split(complete, []byte{'\n'}) {
		text := string(bytes.TrimSpace(line))
		if text == "" {
			continue
		}
		m.dispatchLine(serverID, text, parser, now)
	}

	return newOffset
}

func (m *Monitor) dispatchLine(serverID, line string, parser *Parser, now time.Time) {
	ev := parser.ParseLine(serverID, line, now)
	switch e := ev.(type) {
	case events.PlayerUUIDDiscovered:
		m.dispatcher.DispatchPlayerUUIDDiscovered(e)
	case events.PlayerJoined:
		m.dispatcher.DispatchPlayerJoined(e)
	case events.PlayerLeft:
		m.dispatcher.DispatchPlayerLeft(e)
	case events.PlayerChatMessage:
		m.dispatcher.DispatchPlayerChatMessage(e)
	case events.PlayerAchievement:
		m.dispatcher.DispatchPlayerAchievement(e)
	case events.ServerStopping:
		m.dispatcher.DispatchServerStopping(e)
	case nil:
		// no match
	}
}
