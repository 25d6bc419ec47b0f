package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xyqyear/mcadmin/internal/players"
	"github.com/xyqyear/mcadmin/internal/skinstore"
)

// PlayerRepo implements players.Store against the Player, PlayerSession,
// PlayerChatMessage, PlayerAchievement, and SystemHeartbeat tables, and the
// shared servers table for the id-resolution methods.
type PlayerRepo struct {
	pool  *pgxpool.Pool
	skins *skinstore.Store // nil until wired by main.go; SetSkin errors if unset
}

var _ players.Store = (*PlayerRepo)(nil)

// WithSkinStore wires the S3-backed skin blob store in, since it is
// constructed independently of the pgxpool in main.go.
func (r *PlayerRepo) WithSkinStore(s *skinstore.Store) *PlayerRepo {
	r.skins = s
	return r
}

func (r *PlayerRepo) UpsertPlayerByUUID(ctx context.Context, uuid, currentName string) (int64, error) {
	const query = `
		INSERT INTO players (uuid, current_name)
		VALUES (NULLIF($1, ''), $2)
		ON CONFLICT (uuid) DO UPDATE SET current_name = EXCLUDED.current_name
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, uuid, currentName).Scan(&id)
	return id, err
}

func (r *PlayerRepo) FindPlayerByName(ctx context.Context, name string) (players.Player, bool, error) {
	const query = `
		SELECT id, uuid, current_name FROM players
		WHERE current_name = $1
		ORDER BY id DESC
		LIMIT 1
	`
	var p players.Player
	var uuid *string
	err := r.pool.QueryRow(ctx, query, name).Scan(&p.DbID, &uuid, &p.CurrentName)
	if err == pgx.ErrNoRows {
		return players.Player{}, false, nil
	}
	if err != nil {
		return players.Player{}, false, err
	}
	if uuid != nil {
		p.UUID = *uuid
	}
	return p, true, nil
}

func (r *PlayerRepo) ResolveServerDbID(ctx context.Context, serverID string) (int64, error) {
	return resolveServerDbID(ctx, r.pool, serverID)
}

func (r *PlayerRepo) OpenSession(ctx context.Context, playerDbID, serverDbID int64, joinedAt time.Time) error {
	const query = `
		INSERT INTO player_sessions (player_id, server_id, joined_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.pool.Exec(ctx, query, playerDbID, serverDbID, joinedAt)
	return err
}

// CloseMostRecentOpenSession matches the teacher's "pick the most recent
// candidate row, update by primary key" idiom; the partial unique index on
// open sessions leaves at most one candidate row.
func (r *PlayerRepo) CloseMostRecentOpenSession(ctx context.Context, playerDbID, serverDbID int64, leftAt time.Time) (bool, error) {
	const query = `
		UPDATE player_sessions
		SET left_at = $3, duration_seconds = TRUNC(EXTRACT(EPOCH FROM ($3 - joined_at)))::bigint
		WHERE session_id = (
			SELECT session_id FROM player_sessions
			WHERE player_id = $1 AND server_id = $2 AND left_at IS NULL
			ORDER BY joined_at DESC
			LIMIT 1
		)
		RETURNING session_id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, playerDbID, serverDbID, leftAt).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *PlayerRepo) CloseAllOpenSessionsOnServer(ctx context.Context, serverDbID int64, leftAt time.Time) error {
	const query = `
		UPDATE player_sessions
		SET left_at = $2, duration_seconds = TRUNC(EXTRACT(EPOCH FROM ($2 - joined_at)))::bigint
		WHERE server_id = $1 AND left_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, serverDbID, leftAt)
	return err
}

func (r *PlayerRepo) InsertChatMessage(ctx context.Context, playerDbID, serverDbID int64, message string, sentAt time.Time) error {
	const query = `
		INSERT INTO player_chat_messages (player_id, server_id, message, sent_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, playerDbID, serverDbID, message, sentAt)
	return err
}

func (r *PlayerRepo) InsertAchievement(ctx context.Context, playerDbID, serverDbID int64, name string, earnedAt time.Time) error {
	const query = `
		INSERT INTO player_achievements (player_id, server_id, name, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, server_id, name) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, playerDbID, serverDbID, name, earnedAt)
	return err
}

func (r *PlayerRepo) OnlinePlayersGroupedByServer(ctx context.Context) (map[string][]string, error) {
	const query = `
		SELECT s.server_id, p.current_name
		FROM player_sessions ps
		JOIN players p ON p.id = ps.player_id
		JOIN servers s ON s.id = ps.server_id
		WHERE ps.left_at IS NULL
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var serverID, name string
		if err := rows.Scan(&serverID, &name); err != nil {
			return nil, err
		}
		out[serverID] = append(out[serverID], name)
	}
	return out, rows.Err()
}

func (r *PlayerRepo) OnlinePlayerNamesOnServer(ctx context.Context, serverDbID int64) ([]string, error) {
	const query = `
		SELECT p.current_name
		FROM player_sessions ps
		JOIN players p ON p.id = ps.player_id
		WHERE ps.server_id = $1 AND ps.left_at IS NULL
	`
	rows, err := r.pool.Query(ctx, query, serverDbID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *PlayerRepo) ActiveServers(ctx context.Context) (map[string]int64, error) {
	const query = `SELECT server_id, id FROM servers WHERE status = 'ACTIVE'`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var serverID string
		var dbID int64
		if err := rows.Scan(&serverID, &dbID); err != nil {
			return nil, err
		}
		out[serverID] = dbID
	}
	return out, rows.Err()
}

// SetSkin uploads both PNGs to object storage and persists only the
// returned keys plus the update timestamp, per SPEC_FULL.md's skin storage
// supplement: blob bytes never live in a Postgres column.
func (r *PlayerRepo) SetSkin(ctx context.Context, playerDbID int64, skinPNG, avatarPNG []byte, updatedAt time.Time) error {
	if r.skins == nil {
		return fmt.Errorf("postgres: skin store not configured")
	}
	skinKey, avatarKey, err := r.skins.Put(ctx, playerDbID, skinPNG, avatarPNG)
	if err != nil {
		return err
	}
	const query = `
		UPDATE players
		SET skin_key = $2, avatar_key = $3, skin_updated_at = $4
		WHERE id = $1
	`
	_, err = r.pool.Exec(ctx, query, playerDbID, skinKey, avatarKey, updatedAt)
	return err
}

func (r *PlayerRepo) GetHeartbeat(ctx context.Context) (time.Time, bool, error) {
	const query = `SELECT last_beat FROM system_heartbeat WHERE id = 1`
	var ts time.Time
	err := r.pool.QueryRow(ctx, query).Scan(&ts)
	if err == pgx.ErrNoRows {
		return time.Time{}, false, nil
	}
	return ts, err == nil, err
}

func (r *PlayerRepo) UpsertHeartbeat(ctx context.Context, ts time.Time) error {
	const query = `
		INSERT INTO system_heartbeat (id, last_beat) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_beat = EXCLUDED.last_beat
	`
	_, err := r.pool.Exec(ctx, query, ts)
	return err
}
