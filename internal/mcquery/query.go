// Package mcquery implements enough of Minecraft's UDP Query protocol
// (handshake + full stat) to list online players without RCON. Used as the
// preferred source when a server has enable-query=true, falling back
// to RCON on any failure per the supervisor's listPlayers policy.
package mcquery

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

const (
	magicHi byte = 0xFE
	magicLo byte = 0xFD

	typeHandshake byte = 0x09
	typeStat      byte = 0x00
)

// ListPlayers performs a handshake followed by a full-stat request and
// returns the online player names.
func ListPlayers(host string, port int, timeout time.Duration) ([]string, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.DialTimeout("udp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	sessionID := int32(1)

	token, err := handshake(conn, sessionID)
	if err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}

	return fullStat(conn, sessionID, token)
}

func handshake(conn net.Conn, sessionID int32) (int32, error) {
	req := []byte{magicHi, magicLo, typeHandshake}
	req = appendInt32(req, sessionID)
	if _, err := conn.Write(req); err != nil {
		return 0, err
	}

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		return 0, err
	}
	if n < 6 || buf[0] != typeHandshake {
		return 0, fmt.Errorf("malformed handshake response")
	}

	// Payload is a NUL-terminated ASCII string of the challenge token.
	tokenStr := buf[5:n]
	if idx := bytes.IndexByte(tokenStr, 0); idx >= 0 {
		tokenStr = tokenStr[:idx]
	}

	var token int64
	for _, c := range tokenStr {
		if c < '0' || c > '9' {
			if len(tokenStr) == 0 {
				break
			}
			return 0, fmt.Errorf("non-numeric challenge token")
		}
		token = token*10 + int64(c-'0')
	}
	return int32(token), nil
}

func fullStat(conn net.Conn, sessionID, token int32) ([]string, error) {
	req := []byte{magicHi, magicLo, typeStat}
	req = appendInt32(req, sessionID)
	req = appendInt32(req, token)
	req = append(req, 0, 0, 0, 0) // 4 padding bytes request full stat, not basic stat

	if _, err := conn.Write(req); err != nil {
		return nil, err
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	if n < 5 || buf[0] != typeStat {
		return nil, fmt.Errorf("malformed stat response")
	}

	return parsePlayerList(buf[5:n]), nil
}

// parsePlayerList extracts the player-name list from a full-stat payload.
// The payload is: NUL-terminated KV section, then two padding bytes, then
// "player_\x00\x00" section header, then NUL-terminated names terminated by
// a final empty string.
func parsePlayerList(payload []byte) []string {
	marker := []byte("player_\x00\x00")
	idx := bytes.Index(payload, marker)
	if idx < 0 {
		return nil
	}
	rest := payload[idx+len(marker):]

	var names []string
	for _, part := range bytes.Split(rest, []byte{0}) {
		if len(part) == 0 {
			continue
		}
		names = append(names, string(part))
	}
	return names
}

func appendInt32(b []byte, v int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return append(b, buf...)
}
