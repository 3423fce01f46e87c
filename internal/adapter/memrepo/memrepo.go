// Package memrepo provides in-memory implementations of the domain
// repositories. They back the package tests and keep the same atomicity
// contracts as the PostgreSQL adapters: claim and reserve hold a mutex for
// the whole read-modify-write.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"dreamreel/internal/domain"
)

// JobRepo is a mutex-guarded in-memory domain.JobRepository.
type JobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*domain.Job)}
}

func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	r.jobs[cp.ID] = &cp
	return nil
}

func (r *JobRepo) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *JobRepo) GetForAccount(ctx context.Context, jobID, accountID string) (*domain.Job, error) {
	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.AccountID != accountID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (r *JobRepo) ListByAccount(ctx context.Context, accountID string, status domain.JobStatus, limit int) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var jobs []domain.Job
	for _, job := range r.jobs {
		if job.AccountID != accountID {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *JobRepo) ClaimNext(ctx context.Context) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var next *domain.Job
	for _, job := range r.jobs {
		if job.Status != domain.JobStatusPending {
			continue
		}
		if next == nil ||
			job.Priority > next.Priority ||
			(job.Priority == next.Priority && job.CreatedAt.Before(next.CreatedAt)) {
			next = job
		}
	}
	if next == nil {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	next.Status = domain.JobStatusProcessing
	next.StartedAt = &now
	next.UpdatedAt = now
	cp := *next
	return &cp, nil
}

func (r *JobRepo) UpdateProgress(ctx context.Context, jobID string, frames int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.FrameCount = frames
	job.UpdatedAt = time.Now()
	return nil
}

func (r *JobRepo) MarkCompleted(ctx context.Context, jobID, assetURL string, frames int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return domain.ErrNotFound
	}
	now := time.Now()
	job.Status = domain.JobStatusCompleted
	job.AssetURL = assetURL
	job.FrameCount = frames
	job.ErrorMessage = ""
	if job.CompletedAt == nil {
		job.CompletedAt = &now
	}
	job.UpdatedAt = now
	return nil
}

func (r *JobRepo) MarkFailed(ctx context.Context, jobID, errMsg string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status != domain.JobStatusProcessing {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = errMsg
	job.RetryCount++
	if job.CompletedAt == nil {
		job.CompletedAt = &now
	}
	job.UpdatedAt = now
	cp := *job
	return &cp, nil
}

func (r *JobRepo) Requeue(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != domain.JobStatusFailed || job.RetryCount >= domain.MaxRetries {
		return domain.ErrInvalidInput
	}
	job.Status = domain.JobStatusPending
	job.ErrorMessage = ""
	job.UpdatedAt = time.Now()
	return nil
}

func (r *JobRepo) MarkWebhookSent(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.WebhookSent = true
	job.UpdatedAt = time.Now()
	return nil
}

var _ domain.JobRepository = (*JobRepo)(nil)

// QuotaRepo is a mutex-guarded in-memory domain.QuotaRepository.
type QuotaRepo struct {
	mu      sync.Mutex
	records map[string]*domain.QuotaRecord
}

func NewQuotaRepo() *QuotaRepo {
	return &QuotaRepo{records: make(map[string]*domain.QuotaRecord)}
}

func (r *QuotaRepo) Reserve(ctx context.Context, accountID string, tier domain.Tier, limit int, now time.Time) (domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[accountID]
	if !ok {
		rec = &domain.QuotaRecord{AccountID: accountID, Tier: tier, PeriodStart: now}
		r.records[accountID] = rec
	}
	if !rec.SamePeriod(now) {
		rec.Consumed = 0
		rec.PeriodStart = now
	}
	rec.Tier = tier
	rec.UpdatedAt = now

	res := domain.Reservation{Consumed: rec.Consumed, PeriodStart: rec.PeriodStart}
	if limit > 0 && rec.Consumed < limit {
		rec.Consumed++
		res.Allowed = true
		res.Consumed = rec.Consumed
	}
	return res, nil
}

var _ domain.QuotaRepository = (*QuotaRepo)(nil)

// Directory is a static in-memory domain.AccountDirectory.
type Directory struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

func NewDirectory(accounts ...domain.Account) *Directory {
	d := &Directory{accounts: make(map[string]domain.Account)}
	for _, acc := range accounts {
		d.accounts[acc.ID] = acc
	}
	return d
}

func (d *Directory) Put(acc domain.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[acc.ID] = acc
}

func (d *Directory) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.accounts[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := acc
	return &cp, nil
}

var _ domain.AccountDirectory = (*Directory)(nil)

// UsageRepo collects usage events in memory.
type UsageRepo struct {
	mu     sync.Mutex
	events []domain.UsageEvent
}

func NewUsageRepo() *UsageRepo {
	return &UsageRepo{}
}

func (r *UsageRepo) Insert(ctx context.Context, ev domain.UsageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a snapshot of recorded events.
func (r *UsageRepo) Events() []domain.UsageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UsageEvent, len(r.events))
	copy(out, r.events)
	return out
}

var _ domain.UsageRepository = (*UsageRepo)(nil)
