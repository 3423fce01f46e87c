package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
	id UUID PRIMARY KEY,
	account_id TEXT NOT NULL,
	tier TEXT NOT NULL,
	source_url TEXT NOT NULL,
	prompt TEXT NOT NULL,
	duration_seconds INT NOT NULL,
	priority INT NOT NULL,
	status TEXT NOT NULL,
	frame_count INT NOT NULL DEFAULT 0,
	asset_url TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	retry_count INT NOT NULL DEFAULT 0,
	callback_url TEXT NOT NULL DEFAULT '',
	webhook_sent BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_dispatch ON jobs (priority DESC, created_at ASC) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_account ON jobs (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS quota_records (
	account_id TEXT PRIMARY KEY,
	tier TEXT NOT NULL,
	consumed INT NOT NULL DEFAULT 0,
	period_start TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	tier TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS usage_events (
	id UUID PRIMARY KEY,
	account_id TEXT NOT NULL,
	job_id UUID,
	event_type TEXT NOT NULL,
	frames_rendered INT NOT NULL DEFAULT 0,
	cost_units INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

// Migrate applies the schema idempotently. Both binaries call it at startup
// so a fresh database needs no out-of-band provisioning.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
