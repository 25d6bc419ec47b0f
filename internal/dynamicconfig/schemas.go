package dynamicconfig

// LogParserConfig holds the regex bank used by the Event Pipeline to turn raw
// log lines into typed events. Defaults match vanilla server log output and
// are compiled in so the system works before any row exists for this module.
type LogParserConfig struct {
	PlayerJoinedPattern     string `json:"player_joined_pattern"`
	PlayerLeftPattern       string `json:"player_left_pattern"`
	PlayerUUIDPattern       string `json:"player_uuid_pattern"`
	ChatMessagePattern      string `json:"chat_message_pattern"`
	AchievementPattern      string `json:"achievement_pattern"`
	ServerStoppingPattern   string `json:"server_stopping_pattern"`
}

func DefaultLogParserConfig() LogParserConfig {
	return LogParserConfig{
		PlayerJoinedPattern:   `(\w+)\[/([\d.]+):\d+\] logged in with entity id`,
		PlayerLeftPattern:     `^[^<]* ([^\s<]+) lost connection: ([^<]*)$`,
		PlayerUUIDPattern:     `UUID of player (\w+) is ([0-9a-fA-F-]{36})`,
		ChatMessagePattern:    `<(\w+)> (.+)`,
		AchievementPattern:    `(\w+) has made the advancement \[(.+)\]`,
		ServerStoppingPattern: `Stopping server`,
	}
}

// DNSConfig mirrors the original dns.manager config shape: provider
// selection, credentials, and mc-router wiring. Re-initializing the
// provider client is gated on a hash of the provider, credentials, region,
// domain and router base URL (see clientHash in internal/dns/reconciler.go).
type DNSConfig struct {
	Enabled         bool            `json:"enabled"`
	Provider        string          `json:"provider"` // "dnspod" | "huawei"
	SecretID        string          `json:"secret_id"`
	SecretKey       string          `json:"secret_key"`
	Region          string          `json:"region"`
	Domain          string          `json:"domain"`
	ManagedSubDomain string         `json:"managed_sub_domain"`
	TTL             int             `json:"ttl"`
	MCRouterBaseURL string          `json:"mc_router_base_url"`
	Addresses       []AddressConfig `json:"addresses"`
}

// AddressConfig is one entry of DNSConfig.Addresses, per spec.md §4.5.1: a
// named address with either a manual record value or a natmap-monitored
// source queried at reconcile time via an internal port.
type AddressConfig struct {
	Name        string `json:"name"` // "*" for the bare managed sub-domain
	RecordType  string `json:"record_type"` // "A" | "AAAA" | "CNAME"
	Value       string `json:"value,omitempty"`
	Port        int    `json:"port"`
	NatmapPort  int    `json:"natmap_port,omitempty"` // if set, Value is queried live from this local port
}

func DefaultDNSConfig() DNSConfig {
	return DNSConfig{
		ManagedSubDomain: "mc",
		TTL:              600,
	}
}

// PlayersConfig groups the heartbeat and RCON-reconciliation intervals.
type PlayersConfig struct {
	HeartbeatIntervalSeconds   int `json:"heartbeat_interval_seconds"`
	CrashThresholdMinutes      int `json:"crash_threshold_minutes"`
	RCONValidationIntervalSec  int `json:"rcon_validation_interval_seconds"`
}

func DefaultPlayersConfig() PlayersConfig {
	return PlayersConfig{
		HeartbeatIntervalSeconds:  30,
		CrashThresholdMinutes:     5,
		RCONValidationIntervalSec: 60,
	}
}

// CronBackupConfig holds the built-in backup job's default schedule and
// retention policy.
type CronBackupConfig struct {
	Schedule        string `json:"schedule"`
	KeepDaily       int    `json:"keep_daily"`
	KeepWeekly      int    `json:"keep_weekly"`
	KeepMonthly     int    `json:"keep_monthly"`
}

// CronRestartConfig holds the restart slot finder's configured fallback
// start time, expressed as an hour and a minute of the day.
type CronRestartConfig struct {
	StartHour   int `json:"start_hour"`
	StartMinute int `json:"start_minute"`
}

func DefaultCronRestartConfig() CronRestartConfig {
	return CronRestartConfig{StartHour: 6, StartMinute: 0}
}
