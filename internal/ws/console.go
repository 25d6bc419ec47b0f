// Package ws bridges a browser WebSocket connection to one instance's live
// console: server output streams to the client, and client input is
// executed via RCON rather than attached to the container's stdin (the
// container runs `java -jar server.jar`, which does not expose an
// interactive console over docker attach once rcon-cli is the supported
// command path). Grounded on original_source/backend/app/websocket/
// console.py and wired with gorilla/websocket, the pack's canonical
// ecosystem choice for Go WebSocket servers.
package ws

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gorilla/websocket"

	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
)

// Instance is the subset of supervisor.Instance the console bridge needs.
type Instance interface {
	DataPath() string
	SendRCONCommand(ctx context.Context, cmd string) (string, error)
}

// InstanceResolver maps a filesystem instance id to its Instance handle.
type InstanceResolver interface {
	Get(id string) (Instance, error)
}

// Bridge serves the read (tail) and write (RCON command) sides of one
// console WebSocket connection.
type Bridge struct {
	logger   *slog.Logger
	resolver InstanceResolver
}

func NewBridge(logger *slog.Logger, resolver InstanceResolver) *Bridge {
	return &Bridge{logger: logger, resolver: resolver}
}

// Serve drives conn for the named instance until the client disconnects or
// ctx is canceled. It starts a tail goroutine for the read side and loops
// reading client messages for the write (RCON) side on the calling
// goroutine, matching gorilla/websocket's single-reader-single-writer rule
// (only the write side here issues conn.WriteMessage from two goroutines,
// guarded by writeMu).
func (b *Bridge) Serve(ctx context.Context, conn *websocket.Conn, serverID string) error {
	inst, err := b.resolver.Get(serverID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeMu := newWriteMutex()
	go b.tailLoop(ctx, conn, writeMu, inst)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return err
		}

		cmd := string(bytes.TrimSpace(message))
		if cmd == "" {
			continue
		}
		resp, err := inst.SendRCONCommand(ctx, cmd)
		if err != nil {
			if mcerrors.IsConflict(err) {
				writeMu.writeText(conn, "server is not healthy")
				continue
			}
			b.logger.Warn("console rcon command failed", "server_id", serverID, "error", err)
			writeMu.writeText(conn, "error: "+err.Error())
			continue
		}
		writeMu.writeText(conn, resp)
	}
}

// tailLoop streams new bytes appended to the instance's live log, polling
// at a fixed interval. This is intentionally simpler than
// internal/logpipeline.Monitor's fsnotify-driven tail: the console bridge
// has no event-parsing obligations and only needs to push raw text to one
// client, so a poll loop avoids a second watcher per open console.
func (b *Bridge) tailLoop(ctx context.Context, conn *websocket.Conn, writeMu *writeMutex, inst Instance) {
	path := inst.DataPath() + "/logs/latest.log"
	var offset int64

	if fi, err := os.Stat(path); err == nil {
		offset = fi.Size()
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			newOffset, chunk, err := readFrom(path, offset)
			if err != nil {
				continue
			}
			if newOffset < offset {
				offset = 0
				continue
			}
			offset = newOffset
			if len(chunk) > 0 {
				writeMu.writeText(conn, string(chunk))
			}
		}
	}
}

func readFrom(path string, offset int64) (int64, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return offset, nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return offset, nil, err
	}
	if fi.Size() < offset {
		return 0, nil, nil
	}
	if fi.Size() == offset {
		return offset, nil, nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, nil, err
	}
	buf := make([]byte, fi.Size()-offset)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return offset, nil, err
	}
	return offset + int64(n), buf[:n], nil
}

// writeMutex serializes conn.WriteMessage calls across the tail and
// command-response paths, since gorilla/websocket forbids concurrent
// writers on one connection.
type writeMutex struct {
	ch chan struct{}
}

func newWriteMutex() *writeMutex {
	return &writeMutex{ch: make(chan struct{}, 1)}
}

func (w *writeMutex) writeText(conn *websocket.Conn, s string) {
	w.ch <- struct{}{}
	defer func() { <-w.ch }()
	_ = conn.WriteMessage(websocket.TextMessage, []byte(s))
}
