package database

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ips_event_records (
		event_id     TEXT NOT NULL,
		time_window  TEXT NOT NULL,
		actor_id     TEXT NOT NULL,
		asset        TEXT NOT NULL,
		occurred_at  BIGINT NOT NULL,
		outcome      TEXT NOT NULL,
		ips          DOUBLE PRECISION NOT NULL,
		verdict      TEXT NOT NULL,
		factors      JSONB NOT NULL,
		snapshot     JSONB NOT NULL,
		reality      JSONB,
		meta         JSONB,
		window_closed BOOLEAN NOT NULL DEFAULT FALSE,
		window_end   BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_ips_event_records_event_window ON ips_event_records (event_id, time_window)`,
	`CREATE INDEX IF NOT EXISTS idx_ips_event_records_actor_time ON ips_event_records (actor_id, occurred_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ips_event_records_asset_time ON ips_event_records (asset, occurred_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ips_event_records_open_windows ON ips_event_records (window_closed, window_end)`,
}

// EnsureSchema creates the records table and its indexes if missing.
func EnsureSchema(ctx context.Context, pool DatabasePool) error {
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
