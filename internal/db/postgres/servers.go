package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mcerrors "github.com/xyqyear/mcadmin/internal/errors"
	"github.com/xyqyear/mcadmin/internal/servertracker"
)

// ServerRepo backs both servertracker.Store and the Server lookups
// players.Store needs, since both concerns share the one servers table.
type ServerRepo struct {
	pool *pgxpool.Pool
}

var _ servertracker.Store = (*ServerRepo)(nil)

// EnsureActive upserts an ACTIVE row for serverID. A prior REMOVED row with
// the same server_id is reactivated in place, per spec.md §3's "at most one
// ACTIVE row per serverId" invariant: server_id is unique across all rows
// (one row per filesystem instance id), so the upsert matches on server_id
// regardless of status and flips it back to ACTIVE.
func (r *ServerRepo) EnsureActive(ctx context.Context, serverID string) error {
	const query = `
		INSERT INTO servers (server_id, status)
		VALUES ($1, 'ACTIVE')
		ON CONFLICT (server_id) DO UPDATE SET status = 'ACTIVE'
	`
	_, err := r.pool.Exec(ctx, query, serverID)
	return err
}

func (r *ServerRepo) ActiveServerIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT server_id FROM servers WHERE status = 'ACTIVE'`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ServerRepo) MarkRemoved(ctx context.Context, serverID string) error {
	const query = `UPDATE servers SET status = 'REMOVED' WHERE server_id = $1 AND status = 'ACTIVE'`
	_, err := r.pool.Exec(ctx, query, serverID)
	return err
}

// resolveServerDbID maps a filesystem instance id to its ACTIVE row's db id.
// Shared helper used by PlayerRepo, which only ever needs to reference the
// currently-active row for a given instance.
func resolveServerDbID(ctx context.Context, pool *pgxpool.Pool, serverID string) (int64, error) {
	const query = `SELECT id FROM servers WHERE server_id = $1 AND status = 'ACTIVE'`
	var dbID int64
	err := pool.QueryRow(ctx, query, serverID).Scan(&dbID)
	if err == pgx.ErrNoRows {
		return 0, mcerrors.NewNotFound("server", serverID)
	}
	return dbID, err
}
