package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dreamreel/internal/domain"
)

const jobColumns = `id, account_id, tier, source_url, prompt, duration_seconds, priority, status,
frame_count, asset_url, error_message, retry_count, callback_url, webhook_sent,
created_at, updated_at, started_at, completed_at`

// JobRepositoryPG implements domain.JobRepository using PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository constructs a new job repository instance.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO jobs (id, account_id, tier, source_url, prompt, duration_seconds, priority, status, callback_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10);
`, job.ID, job.AccountID, job.Tier, job.SourceURL, job.Prompt, job.DurationSeconds, job.Priority, job.Status, job.CallbackURL, job.CreatedAt)
	return err
}

func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, jobID)
	return scanJob(row)
}

func (r *JobRepositoryPG) GetForAccount(ctx context.Context, jobID, accountID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND account_id = $2;`, jobID, accountID)
	return scanJob(row)
}

func (r *JobRepositoryPG) ListByAccount(ctx context.Context, accountID string, status domain.JobStatus, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE account_id = $1`
	args := []any{accountID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d;`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimNext selects and transitions the next pending job in a single
// statement so two near-simultaneous dispatch triggers cannot both claim it.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
WITH next_job AS (
	SELECT id
	FROM jobs
	WHERE status = 'pending'
	ORDER BY priority DESC, created_at ASC
	FOR UPDATE SKIP LOCKED
	LIMIT 1
),
claimed AS (
	UPDATE jobs
	SET status = 'processing', started_at = NOW(), updated_at = NOW()
	WHERE id IN (SELECT id FROM next_job)
	RETURNING `+jobColumns+`
)
SELECT `+jobColumns+` FROM claimed;
`)
	return scanJob(row)
}

func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, frames int) error {
	_, err := r.pool.Exec(ctx, `
UPDATE jobs SET frame_count = $2, updated_at = NOW() WHERE id = $1;
`, jobID, frames)
	return err
}

func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, jobID, assetURL string, frames int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE jobs
SET status = 'completed', asset_url = $2, frame_count = $3, error_message = '',
    completed_at = COALESCE(completed_at, NOW()), updated_at = NOW()
WHERE id = $1 AND status = 'processing';
`, jobID, assetURL, frames)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID, errMsg string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE jobs
SET status = 'failed', error_message = $2, retry_count = retry_count + 1,
    completed_at = COALESCE(completed_at, NOW()), updated_at = NOW()
WHERE id = $1 AND status = 'processing'
RETURNING `+jobColumns+`;
`, jobID, errMsg)
	return scanJob(row)
}

func (r *JobRepositoryPG) Requeue(ctx context.Context, jobID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE jobs
SET status = 'pending', error_message = '', updated_at = NOW()
WHERE id = $1 AND status = 'failed' AND retry_count < $2;
`, jobID, domain.MaxRetries)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

func (r *JobRepositoryPG) MarkWebhookSent(ctx context.Context, jobID string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE jobs SET webhook_sent = TRUE, updated_at = NOW() WHERE id = $1 AND webhook_sent = FALSE;
`, jobID)
	return err
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	err := row.Scan(
		&job.ID, &job.AccountID, &job.Tier, &job.SourceURL, &job.Prompt,
		&job.DurationSeconds, &job.Priority, &job.Status,
		&job.FrameCount, &job.AssetURL, &job.ErrorMessage, &job.RetryCount,
		&job.CallbackURL, &job.WebhookSent,
		&job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
