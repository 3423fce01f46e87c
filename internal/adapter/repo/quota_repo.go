package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dreamreel/internal/domain"
)

// QuotaRepositoryPG implements domain.QuotaRepository using PostgreSQL.
// Reserve locks the account's row so rollover, limit check, and consumption
// happen as one read-modify-write; two concurrent admissions for the same
// account serialize on the lock instead of both passing the check.
type QuotaRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository constructs a new quota repository instance.
func NewQuotaRepository(pool *pgxpool.Pool) *QuotaRepositoryPG {
	return &QuotaRepositoryPG{pool: pool}
}

func (r *QuotaRepositoryPG) Reserve(ctx context.Context, accountID string, tier domain.Tier, limit int, now time.Time) (domain.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	_, err = tx.Exec(ctx, `
INSERT INTO quota_records (account_id, tier, consumed, period_start, updated_at)
VALUES ($1, $2, 0, $3, $3)
ON CONFLICT (account_id) DO NOTHING;
`, accountID, tier, now)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("ensure quota record: %w", err)
	}

	var rec domain.QuotaRecord
	err = tx.QueryRow(ctx, `
SELECT account_id, tier, consumed, period_start
FROM quota_records
WHERE account_id = $1
FOR UPDATE;
`, accountID).Scan(&rec.AccountID, &rec.Tier, &rec.Consumed, &rec.PeriodStart)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("lock quota record: %w", err)
	}

	if !rec.SamePeriod(now) {
		rec.Consumed = 0
		rec.PeriodStart = now
	}

	res := domain.Reservation{Consumed: rec.Consumed, PeriodStart: rec.PeriodStart}
	if limit > 0 && rec.Consumed < limit {
		res.Allowed = true
		res.Consumed = rec.Consumed + 1
	}

	_, err = tx.Exec(ctx, `
UPDATE quota_records
SET tier = $2, consumed = $3, period_start = $4, updated_at = $5
WHERE account_id = $1;
`, accountID, tier, res.Consumed, res.PeriodStart, now)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("update quota record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Reservation{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

var _ domain.QuotaRepository = (*QuotaRepositoryPG)(nil)
