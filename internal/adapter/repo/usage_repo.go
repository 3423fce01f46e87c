package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"dreamreel/internal/domain"
)

// UsageRepositoryPG implements domain.UsageRepository using PostgreSQL.
type UsageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUsageRepository constructs a new usage repository instance.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepositoryPG {
	return &UsageRepositoryPG{pool: pool}
}

func (r *UsageRepositoryPG) Insert(ctx context.Context, ev domain.UsageEvent) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO usage_events (id, account_id, job_id, event_type, frames_rendered, cost_units, created_at)
VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7);
`, ev.ID, ev.AccountID, ev.JobID, ev.EventType, ev.FramesRendered, ev.CostUnits, ev.CreatedAt)
	return err
}

var _ domain.UsageRepository = (*UsageRepositoryPG)(nil)
