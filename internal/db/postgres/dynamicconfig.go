package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DynamicConfigRepo persists the DynamicConfig rows dynamicconfig.Store
// values are loaded from and saved to at startup and on every Set call.
type DynamicConfigRepo struct {
	pool *pgxpool.Pool
}

// PersistFunc adapts Save to the func type dynamicconfig.NewStore expects.
func (r *DynamicConfigRepo) PersistFunc(ctx context.Context) func(module string, schemaVersion uint64, raw json.RawMessage) error {
	return func(module string, schemaVersion uint64, raw json.RawMessage) error {
		return r.Save(ctx, module, schemaVersion, raw)
	}
}

func (r *DynamicConfigRepo) Save(ctx context.Context, module string, schemaVersion uint64, raw json.RawMessage) error {
	const query = `
		INSERT INTO dynamic_configs (module, schema_version, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (module) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			value = EXCLUDED.value,
			updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query, module, schemaVersion, raw)
	return err
}

// Load returns the stored schema version and raw JSON for module, or
// (0, nil, false, nil) if no row exists yet.
func (r *DynamicConfigRepo) Load(ctx context.Context, module string) (uint64, json.RawMessage, bool, error) {
	const query = `SELECT schema_version, value FROM dynamic_configs WHERE module = $1`
	var version uint64
	var raw []byte
	err := r.pool.QueryRow(ctx, query, module).Scan(&version, &raw)
	if err == pgx.ErrNoRows {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return version, json.RawMessage(raw), true, nil
}
