// Package scheduler drives the single-consumer job loop: claim the highest
// priority pending job, render it, and settle the outcome with bounded retry
// and a single degraded fallback attempt.
package scheduler

import (
	"context"
	"errors"
	"time"

	"dreamreel/internal/domain"
	"dreamreel/internal/infra"
	"dreamreel/internal/render"
	"dreamreel/internal/telemetry"
)

// Renderer is the slice of the render pipeline the dispatcher needs.
type Renderer interface {
	Render(ctx context.Context, job *domain.Job, cfg render.Config) (*render.Result, error)
}

// Notifier delivers the terminal outcome of a job to its callback, if any.
// Implementations must be safe to call with jobs that carry no callback URL.
type Notifier interface {
	NotifyTerminal(ctx context.Context, job *domain.Job)
}

// Outcome summarizes one dispatch cycle for logging and tests.
type Outcome struct {
	JobID    string
	Status   domain.JobStatus
	Degraded bool
	Requeued bool
}

type Dispatcher struct {
	jobs     domain.JobRepository
	pipeline Renderer
	notifier Notifier
	logger   infra.Logger
}

func NewDispatcher(jobs domain.JobRepository, pipeline Renderer, notifier Notifier, logger infra.Logger) *Dispatcher {
	return &Dispatcher{
		jobs:     jobs,
		pipeline: pipeline,
		notifier: notifier,
		logger:   logger,
	}
}

// DispatchNext claims and fully processes at most one job. It returns
// (nil, nil) when no pending work exists. Claiming is atomic at the store
// layer, so concurrent callers never process the same job twice.
func (d *Dispatcher) DispatchNext(ctx context.Context) (*Outcome, error) {
	job, err := d.jobs.ClaimNext(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	d.logger.Info().
		Str("job_id", job.ID).
		Str("account_id", job.AccountID).
		Int("priority", job.Priority).
		Int("retry_count", job.RetryCount).
		Msg("dispatcher: job claimed")

	res, degraded, renderErr := d.runWithFallback(ctx, job)
	if renderErr != nil {
		return d.settleFailure(ctx, job, renderErr)
	}

	if err := d.jobs.MarkCompleted(ctx, job.ID, res.AssetURL, res.FrameCount); err != nil {
		d.logger.Error().Err(err).Str("job_id", job.ID).Msg("dispatcher: completion write failed")
		return d.settleFailure(ctx, job, err)
	}
	telemetry.JobsCompleted.Inc()

	completed, err := d.jobs.GetByID(ctx, job.ID)
	if err != nil {
		completed = job
		completed.Status = domain.JobStatusCompleted
		completed.AssetURL = res.AssetURL
		completed.FrameCount = res.FrameCount
	}
	d.notify(ctx, completed)

	d.logger.Info().
		Str("job_id", job.ID).
		Int("frames", res.FrameCount).
		Int("rendered", res.RenderedFrames).
		Bool("degraded", degraded).
		Msg("dispatcher: job completed")

	return &Outcome{JobID: job.ID, Status: domain.JobStatusCompleted, Degraded: degraded}, nil
}

// runWithFallback tries the normal configuration, then one degraded attempt.
// The fallback runs in-process before any job-level retry is considered.
func (d *Dispatcher) runWithFallback(ctx context.Context, job *domain.Job) (*render.Result, bool, error) {
	res, err := d.pipeline.Render(ctx, job, render.Normal)
	if err == nil {
		return res, false, nil
	}

	d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("dispatcher: render failed, attempting degraded fallback")

	res, fallbackErr := d.pipeline.Render(ctx, job, render.Degraded)
	if fallbackErr != nil {
		d.logger.Error().Err(fallbackErr).Str("job_id", job.ID).Msg("dispatcher: degraded fallback failed")
		return nil, true, err
	}
	return res, true, nil
}

// settleFailure records the failure, requeues when the retry budget allows,
// and notifies the callback only when the job is terminally failed.
func (d *Dispatcher) settleFailure(ctx context.Context, job *domain.Job, cause error) (*Outcome, error) {
	failed, err := d.jobs.MarkFailed(ctx, job.ID, cause.Error())
	if err != nil {
		return nil, err
	}
	telemetry.JobsFailed.Inc()

	if failed.Retryable() {
		if err := d.jobs.Requeue(ctx, job.ID); err != nil {
			d.logger.Error().Err(err).Str("job_id", job.ID).Msg("dispatcher: requeue failed")
			d.notify(ctx, failed)
			return &Outcome{JobID: job.ID, Status: domain.JobStatusFailed}, nil
		}
		telemetry.JobsRetried.Inc()
		d.logger.Info().
			Str("job_id", job.ID).
			Int("retry_count", failed.RetryCount).
			Msg("dispatcher: job requeued")
		return &Outcome{JobID: job.ID, Status: domain.JobStatusPending, Requeued: true}, nil
	}

	d.logger.Error().
		Err(cause).
		Str("job_id", job.ID).
		Int("retry_count", failed.RetryCount).
		Msg("dispatcher: job failed terminally")
	d.notify(ctx, failed)
	return &Outcome{JobID: job.ID, Status: domain.JobStatusFailed}, nil
}

func (d *Dispatcher) notify(ctx context.Context, job *domain.Job) {
	if d.notifier == nil {
		return
	}
	d.notifier.NotifyTerminal(ctx, job)
}

// Run polls for work until ctx is cancelled. An idle cycle sleeps pollEvery;
// a productive cycle immediately checks for more work.
func (d *Dispatcher) Run(ctx context.Context, pollEvery time.Duration) {
	d.logger.Info().Dur("poll_every", pollEvery).Msg("dispatcher: started")
	for {
		outcome, err := d.DispatchNext(ctx)
		if err != nil {
			d.logger.Error().Err(err).Msg("dispatcher: cycle failed")
		}
		if outcome != nil && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("dispatcher: stopped")
			return
		case <-time.After(pollEvery):
		}
	}
}
