package players

import (
	"context"
	"time"
)

// GlobalPlayerStats summarizes player activity across the whole fleet.
// Grounded on statistics_query.py's get_global_player_stats.
type GlobalPlayerStats struct {
	TotalPlayers              int64
	OnlinePlayers             int64
	ActivePlayersToday        int64
	ActivePlayersWeek         int64
	NewPlayersToday           int64
	NewPlayersWeek            int64
	TotalPlaytimeHours        float64
	AveragePlaytimePerPlayer  float64
}

// ActivityDataPoint is one bucket of a playtime/activity trend series.
type ActivityDataPoint struct {
	Timestamp            time.Time
	ActivePlayers        int
	NewPlayers           int
	TotalPlaytimeSeconds int64
}

// TopPlayer is a ranking row by cumulative playtime on a server.
type TopPlayer struct {
	PlayerDbID      int64
	PlayerName      string
	HasAvatar       bool
	PlaytimeSeconds int64
}

// ServerPlayerStats summarizes player activity on a single server.
type ServerPlayerStats struct {
	ServerID                  string
	TotalUniquePlayers        int64
	ActivePlayersWeek         int64
	AverageConcurrentPlayers  float64
	PeakConcurrentPlayers     int
	PeakTime                  *time.Time
	TopPlayersByPlaytime      []TopPlayer
}

// Period selects the historical window for an activity trend query.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Interval selects the bucket granularity for an activity trend query.
type Interval string

const (
	IntervalHour Interval = "hour"
	IntervalDay  Interval = "day"
	IntervalWeek Interval = "week"
)

// StatsQuerier serves the read-only aggregate views consumed by the
// dashboard API. It is a separate interface from Store because these
// queries are pure reads with no bearing on event handling, and a
// read-replica-backed implementation could satisfy only this interface.
type StatsQuerier interface {
	GlobalStats(ctx context.Context, now time.Time) (GlobalPlayerStats, error)
	ActivityTrend(ctx context.Context, now time.Time, period Period, interval Interval) ([]ActivityDataPoint, error)
	ServerStats(ctx context.Context, serverID string, now time.Time) (ServerPlayerStats, bool, error)
}

// periodWindow resolves a Period/Interval pair to a lookback duration and
// bucket width, mirroring get_activity_trend's period/interval table.
func periodWindow(period Period, interval Interval) (lookback time.Duration, bucket time.Duration) {
	switch period {
	case PeriodMonth:
		lookback = 30 * 24 * time.Hour
		if interval == IntervalDay {
			bucket = 24 * time.Hour
		} else {
			bucket = 7 * 24 * time.Hour
		}
	case PeriodYear:
		lookback = 365 * 24 * time.Hour
		bucket = 7 * 24 * time.Hour
	default: // week
		lookback = 7 * 24 * time.Hour
		if interval == IntervalDay {
			bucket = 24 * time.Hour
		} else {
			bucket = time.Hour
		}
	}
	return lookback, bucket
}
