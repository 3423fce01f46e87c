// Package notify delivers terminal job outcomes to caller-supplied webhooks.
// Delivery is fire-once: a failed POST is logged and dropped, never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"dreamreel/internal/domain"
	"dreamreel/internal/infra"
	"dreamreel/internal/telemetry"
)

type payload struct {
	JobID        string  `json:"jobId"`
	AccountID    string  `json:"accountId"`
	Status       string  `json:"status"`
	AssetURL     string  `json:"assetUrl,omitempty"`
	FrameCount   int     `json:"frameCount"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	CompletedAt  *string `json:"completedAt,omitempty"`
}

type Webhook struct {
	jobs   domain.JobRepository
	client *http.Client
	logger infra.Logger
}

// NewWebhook builds a notifier. client may be nil; a short default timeout is
// applied so a slow callback endpoint cannot stall the dispatch loop.
func NewWebhook(jobs domain.JobRepository, client *http.Client, logger infra.Logger) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{jobs: jobs, client: client, logger: logger}
}

// NotifyTerminal posts the job outcome to its callback URL. Jobs without a
// callback, or already notified, are skipped. The sent flag is persisted only
// after a 2xx response, so a crash between POST and persist can at worst
// duplicate a delivery, never lose one.
func (w *Webhook) NotifyTerminal(ctx context.Context, job *domain.Job) {
	if job.CallbackURL == "" || job.WebhookSent {
		return
	}

	body, err := json.Marshal(buildPayload(job))
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("webhook: payload encoding failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.CallbackURL, bytes.NewReader(body))
	if err != nil {
		w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("webhook: bad callback url")
		telemetry.WebhookFailures.Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "dreamreel-webhook/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("webhook: delivery failed")
		telemetry.WebhookFailures.Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.logger.Warn().
			Int("status", resp.StatusCode).
			Str("job_id", job.ID).
			Msg("webhook: endpoint rejected delivery")
		telemetry.WebhookFailures.Inc()
		return
	}

	if err := w.jobs.MarkWebhookSent(ctx, job.ID); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("webhook: sent flag write failed")
		return
	}
	w.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("webhook: delivered")
}

func buildPayload(job *domain.Job) payload {
	p := payload{
		JobID:        job.ID,
		AccountID:    job.AccountID,
		Status:       string(job.Status),
		AssetURL:     job.AssetURL,
		FrameCount:   job.FrameCount,
		ErrorMessage: job.ErrorMessage,
	}
	if job.CompletedAt != nil {
		ts := job.CompletedAt.UTC().Format(time.RFC3339)
		p.CompletedAt = &ts
	}
	return p
}
