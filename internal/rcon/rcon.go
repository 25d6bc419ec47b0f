// Package rcon sends commands to a running instance's RCON port and strips
// the ANSI escape sequences vanilla/Spigot servers often include in command
// output. Uses github.com/gorcon/rcon, the RCON client in the example pack's
// dependency ecosystem (mannomannX-PayPerPlayHosting), speaking the protocol
// directly against the published RCON port rather than shelling into the
// container to invoke rcon-cli — the same wire protocol, without requiring
// the helper binary to exist inside every image.
package rcon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	gorcon "github.com/gorcon/rcon"
)

// ansiEscapePattern matches the same escape sequences the original system's
// ANSI_ESCAPE_PATTERN strips from RCON responses.
var ansiEscapePattern = regexp.MustCompile("\x1b(?:[@-Z\\\\-_]|\\[[0-?]*[ -/]*[@-~])")

// Send opens a short-lived connection, authenticates, issues cmd, and
// returns the response with ANSI escapes stripped.
func Send(host string, port int, password string, cmd string) (string, error) {
	conn, err := gorcon.Dial(fmt.Sprintf("%s:%d", host, port), password)
	if err != nil {
		return "", fmt.Errorf("rcon dial: %w", err)
	}
	defer conn.Close()

	resp, err := conn.Execute(cmd)
	if err != nil {
		return "", fmt.Errorf("rcon execute %q: %w", cmd, err)
	}

	return StripANSI(resp), nil
}

// StripANSI removes terminal escape sequences from s.
func StripANSI(s string) string {
	return ansiEscapePattern.ReplaceAllString(s, "")
}

// listPattern matches the canonical vanilla response to "list":
// "There are 2 of a max of 20 players online: Alice, Bob"
var listPattern = regexp.MustCompile(`(?i)there are (\d+) of a max(?: of)? (\d+) players online:?\s*(.*)`)

// ParsePlayerList parses the response to the "list" command into player
// names. Returns an empty slice (not an error) when zero players are online.
func ParsePlayerList(response string) ([]string, error) {
	m := listPattern.FindStringSubmatch(strings.TrimSpace(response))
	if m == nil {
		return nil, fmt.Errorf("unrecognized list response: %q", response)
	}

	count, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("parse online count: %w", err)
	}
	if count == 0 {
		return []string{}, nil
	}

	names := strings.Split(m[3], ",")
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}
