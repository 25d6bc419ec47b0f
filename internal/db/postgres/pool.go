// Package postgres implements every Store interface the core subsystems
// depend on (players.Store, cron.Store, servertracker.Store) against a
// single Postgres schema, using pgxpool exactly as the teacher's
// manmanv2/api/repository/postgres package does: one pgxpool.Pool shared
// across small repository structs, each issuing hand-written SQL (no ORM,
// matching the teacher's style throughout that package).
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB bundles the shared pool and every repository this module needs. Callers
// use the Players, Cron, Servers, and DynamicConfig fields
// directly, matching the teacher's NewRepository aggregate-struct pattern.
type DB struct {
	Pool *pgxpool.Pool

	Players       *PlayerRepo
	Cron          *CronRepo
	Servers       *ServerRepo
	DynamicConfig *DynamicConfigRepo
}

// Connect opens a pgxpool against connString and verifies connectivity.
func Connect(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &DB{
		Pool:          pool,
		Players:       &PlayerRepo{pool: pool},
		Cron:          &CronRepo{pool: pool},
		Servers:       &ServerRepo{pool: pool},
		DynamicConfig: &DynamicConfigRepo{pool: pool},
	}, nil
}

func (db *DB) Close() { db.Pool.Close() }
