// Package jobs implements the two built-in cron job identifiers from
// spec.md §4.4.5-§4.4.6: "backup" (snapshot + optional retention) and
// "restart_server" (a clean compose restart). Each exposes a typed params
// struct and a cron.Registration so cmd/mcadmin can call Register once at
// startup, per the Design Notes' explicit-registration-over-decorator rule.
package jobs

// Identifier constants are the registry keys cron rows reference; they are
// compile-time constants, never derived at runtime.
const (
	IdentifierBackup        = "backup"
	IdentifierRestartServer = "restart_server"
)
