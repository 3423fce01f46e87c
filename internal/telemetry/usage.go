package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dreamreel/internal/domain"
	"dreamreel/internal/infra"
)

// Render cost model: every attempted frame bills one unit of work plus a
// fixed per-job base charge.
const (
	CostPerFrame = 5
	CostBase     = 10
)

// UsageRecorder writes per-job cost/usage events. Recording is best-effort:
// failures are logged and swallowed, and the write runs detached from the
// job's context so it can never block or fail the pipeline.
type UsageRecorder struct {
	repo    domain.UsageRepository
	logger  infra.Logger
	timeout time.Duration
}

// NewUsageRecorder constructs a recorder. A nil repo disables recording.
func NewUsageRecorder(repo domain.UsageRepository, logger infra.Logger) *UsageRecorder {
	return &UsageRecorder{repo: repo, logger: logger, timeout: 5 * time.Second}
}

// RecordRender accounts for one render attempt.
func (u *UsageRecorder) RecordRender(job *domain.Job, framesRendered, framesAttempted int) {
	cost := framesRendered*CostPerFrame + CostBase
	CostUnits.Add(float64(cost))
	FramesRendered.Add(float64(framesRendered))
	FramesDegraded.Add(float64(framesAttempted - framesRendered))

	if u == nil || u.repo == nil {
		return
	}
	ev := domain.UsageEvent{
		ID:             uuid.New().String(),
		AccountID:      job.AccountID,
		JobID:          job.ID,
		EventType:      "reel_render",
		FramesRendered: framesRendered,
		CostUnits:      cost,
		CreatedAt:      time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
		defer cancel()
		if err := u.repo.Insert(ctx, ev); err != nil {
			u.logger.Warn().Err(err).Str("job_id", job.ID).Msg("usage: record render failed")
		}
	}()
}
