package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xyqyear/mcadmin/internal/cron"
)

// RestartParams is the params struct for the "restart_server" identifier.
type RestartParams struct {
	ServerID string `json:"serverId"`
}

func decodeRestartParams(raw json.RawMessage) (any, error) {
	var p RestartParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.ServerID == "" {
		return nil, fmt.Errorf("serverId is required")
	}
	return p, nil
}

// NewRestartRegistration builds the "restart_server" cron.Registration: skip
// (log only, do not fail) when the instance isn't running, per
// original_source/backend/app/cron/jobs/restart.py and spec.md §4.4.6.
func NewRestartRegistration(logger *slog.Logger, resolver InstanceResolver) cron.Registration {
	return cron.Registration{
		Identifier:  IdentifierRestartServer,
		Description: "restart a running instance via its container engine",
		Decode:      decodeRestartParams,
		Fn: func(execCtx *cron.ExecutionContext) error {
			var p RestartParams
			if err := json.Unmarshal(execCtx.Params, &p); err != nil {
				return err
			}

			ctx := context.Background()
			inst, err := resolver.Get(p.ServerID)
			if err != nil {
				return err
			}

			running, err := inst.IsRunning(ctx)
			if err != nil {
				return err
			}
			if !running {
				execCtx.Log(fmt.Sprintf("instance %q is not running, skipping restart", p.ServerID))
				logger.Info("restart job skipped: instance not running", "server_id", p.ServerID)
				return nil
			}

			execCtx.Log(fmt.Sprintf("restarting instance %q", p.ServerID))
			if err := inst.Restart(ctx); err != nil {
				return err
			}
			execCtx.Log("restart complete")
			return nil
		},
	}
}
