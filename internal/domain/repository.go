package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job entities. It is the single point
// of truth for job mutation; implementations must make ClaimNext and the
// failure bookkeeping atomic so concurrent dispatch triggers cannot both pick
// the same pending job.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// GetForAccount returns the job only when it belongs to the account.
	GetForAccount(ctx context.Context, jobID, accountID string) (*Job, error)
	// ListByAccount returns the account's jobs ordered by creation
	// descending, optionally filtered by status ("" means all).
	ListByAccount(ctx context.Context, accountID string, status JobStatus, limit int) ([]Job, error)
	// ClaimNext atomically selects the highest-priority, oldest pending job
	// and transitions it to processing, stamping StartedAt. It returns
	// ErrNotFound when no pending job exists.
	ClaimNext(ctx context.Context) (*Job, error)
	// UpdateProgress records the number of frames produced so far.
	UpdateProgress(ctx context.Context, jobID string, frames int) error
	// MarkCompleted transitions a processing job to completed with its result.
	MarkCompleted(ctx context.Context, jobID, assetURL string, frames int) error
	// MarkFailed transitions a processing job to failed, records the error,
	// increments the retry counter, and stamps CompletedAt if unset. The
	// updated job is returned so callers can decide on re-admission.
	MarkFailed(ctx context.Context, jobID, errMsg string) (*Job, error)
	// Requeue moves a failed job back to pending for a fresh dispatch cycle,
	// clearing the prior error. Jobs whose retry budget is exhausted are
	// refused with ErrInvalidInput.
	Requeue(ctx context.Context, jobID string) error
	// MarkWebhookSent flags the callback as delivered.
	MarkWebhookSent(ctx context.Context, jobID string) error
}

// QuotaRepository persists per-account monthly quota records. Reserve is the
// single atomic read-modify-write combining lazy period rollover, the limit
// check, and consumption of one unit when allowed. A missing record is
// created with zero consumption before evaluation.
type QuotaRepository interface {
	Reserve(ctx context.Context, accountID string, tier Tier, limit int, now time.Time) (Reservation, error)
}

// AccountDirectory resolves the authoritative account record (including its
// real tier) for an account id. It is backed by the external identity/billing
// store and is the read-heavy surface the concurrency guard wraps.
type AccountDirectory interface {
	GetAccount(ctx context.Context, accountID string) (*Account, error)
}

// UsageEvent is one best-effort cost/usage bookkeeping row.
type UsageEvent struct {
	ID             string
	AccountID      string
	JobID          string
	EventType      string
	FramesRendered int
	CostUnits      int
	CreatedAt      time.Time
}

// UsageRepository records usage events. Failures never affect job outcomes.
type UsageRepository interface {
	Insert(ctx context.Context, ev UsageEvent) error
}
