// Package logpipeline tails each instance's live log file, splits complete
// lines at the offset boundary, and parses them into typed events via a
// hot-reloadable regex bank. Grounded on
// original_source/backend/app/log_monitor/monitor.py for the watch loop and
// on the regex table in spec.md §4.2.2 for match/event mapping.
package logpipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/xyqyear/mcadmin/internal/dynamicconfig"
	"github.com/xyqyear/mcadmin/internal/events"
)

// Parser evaluates a line against the configured regex bank in a fixed
// order: UUID, then Join, Leave, Chat, Achievement, ServerStopping. The
// first match wins; a line matching nothing produces no event.
type Parser struct {
	uuidPattern        *regexp.Regexp
	joinPattern        *regexp.Regexp
	leavePattern       *regexp.Regexp
	chatPattern        *regexp.Regexp
	achievementPattern *regexp.Regexp
	stopPattern        *regexp.Regexp
}

// NewParser compiles the regex bank from cfg. Returns an error if any
// pattern fails to compile, so a bad hot-reloaded config is rejected before
// it's installed rather than silently disabling matching.
func NewParser(cfg dynamicconfig.LogParserConfig) (*Parser, error) {
	compile := func(pattern string) (*regexp.Regexp, error) {
		return regexp.Compile(pattern)
	}

	uuidRe, err := compile(cfg.PlayerUUIDPattern)
	if err != nil {
		return nil, err
	}
	joinRe, err := compile(cfg.PlayerJoinedPattern)
	if err != nil {
		return nil, err
	}
	leaveRe, err := compile(cfg.PlayerLeftPattern)
	if err != nil {
		return nil, err
	}
	chatRe, err := compile(cfg.ChatMessagePattern)
	if err != nil {
		return nil, err
	}
	achRe, err := compile(cfg.AchievementPattern)
	if err != nil {
		return nil, err
	}
	stopRe, err := compile(cfg.ServerStoppingPattern)
	if err != nil {
		return nil, err
	}

	return &Parser{
		uuidPattern:        uuidRe,
		joinPattern:        joinRe,
		leavePattern:       leaveRe,
		chatPattern:        chatRe,
		achievementPattern: achRe,
		stopPattern:        stopRe,
	}, nil
}

// ParseLine matches line against the regex bank and returns the single typed
// event it maps to, or nil if nothing matches.
func (p *Parser) ParseLine(serverID, line string, now time.Time) any {
	if m := p.uuidPattern.FindStringSubmatch(line); m != nil {
		return events.PlayerUUIDDiscovered{
			ServerID:   serverID,
			PlayerName: m[1],
			UUID:       strings.ReplaceAll(m[2], "-", ""),
			Timestamp:  now,
		}
	}
	if m := p.joinPattern.FindStringSubmatch(line); m != nil {
		return events.PlayerJoined{ServerID: serverID, PlayerName: m[1], Timestamp: now}
	}
	if m := p.leavePattern.FindStringSubmatch(line); m != nil {
		reason := ""
		if len(m) > 2 {
			reason = m[2]
		}
		return events.PlayerLeft{ServerID: serverID, PlayerName: m[1], Reason: reason, Timestamp: now}
	}
	if m := p.chatPattern.FindStringSubmatch(line); m != nil {
		message := strings.TrimPrefix(m[2], "[Not Secure] ")
		return events.PlayerChatMessage{ServerID: serverID, PlayerName: m[1], Message: message, Timestamp: now}
	}
	if m := p.achievementPattern.FindStringSubmatch(line); m != nil {
		return events.PlayerAchievement{ServerID: serverID, PlayerName: m[1], AchievementName: m[2], Timestamp: now}
	}
	if p.stopPattern.MatchString(line) {
		return events.ServerStopping{ServerID: serverID, Timestamp: now}
	}
	return nil
}
