package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// MaxRetries bounds the failed -> pending retry edge of the job state machine.
const MaxRetries = 3

// Job encapsulates one reel-generation request and its full lifecycle.
//
// The state machine only moves forward (pending -> processing ->
// completed|failed) except for the failed -> pending retry edge, which is
// permitted while RetryCount < MaxRetries. All mutation goes through the
// JobRepository so concurrent admission and processing cannot lose updates.
type Job struct {
	ID              string
	AccountID       string
	Tier            Tier
	SourceURL       string
	Prompt          string
	DurationSeconds int
	Priority        int
	Status          JobStatus
	FrameCount      int
	AssetURL        string
	ErrorMessage    string
	RetryCount      int
	CallbackURL     string
	WebhookSent     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Terminal reports whether the job is in a terminal state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Retryable reports whether a failed job may re-enter the pending queue.
func (j *Job) Retryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < MaxRetries
}

// ValidStatus reports whether s names a known lifecycle state.
func ValidStatus(s JobStatus) bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}
