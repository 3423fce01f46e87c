// Package admission validates reel requests and enqueues accepted jobs.
// Checks run cheapest-first so structural problems never consume quota.
package admission

import (
	"context"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"dreamreel/internal/domain"
	"dreamreel/internal/infra"
	"dreamreel/internal/quota"
	"dreamreel/internal/telemetry"
)

const (
	maxPromptRunes     = 5000
	maxDurationSeconds = 120
)

// Request is the inbound reel submission.
type Request struct {
	SourceRef                string `json:"sourceRef"`
	Prompt                   string `json:"prompt"`
	AccountID                string `json:"accountId"`
	Tier                     string `json:"tier"`
	RequestedDurationSeconds int    `json:"requestedDurationSeconds,omitempty"`
	CallbackURL              string `json:"callbackUrl,omitempty"`
	UseQueue                 *bool  `json:"useQueue,omitempty"`
}

// Rejection explains a refused request. Quota is populated only for
// quota_exhausted so the caller can surface limits and the reset date.
type Rejection struct {
	Code    string
	Message string
	Quota   *quota.Decision
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("admission rejected (%s): %s", r.Code, r.Message)
}

func reject(code, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}

// Controller performs admission and persists accepted jobs as pending work.
type Controller struct {
	jobs      domain.JobRepository
	ledger    *quota.Ledger
	directory domain.AccountDirectory
	logger    infra.Logger
	now       func() time.Time
}

func NewController(jobs domain.JobRepository, ledger *quota.Ledger, directory domain.AccountDirectory, logger infra.Logger) *Controller {
	return &Controller{
		jobs:      jobs,
		ledger:    ledger,
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// Admit validates a request on behalf of the authenticated caller and, when
// every gate passes, creates and persists a pending job. The quota reservation
// is the last gate, so a rejected request never burns allowance.
func (c *Controller) Admit(ctx context.Context, callerID string, req Request) (*domain.Job, *Rejection, error) {
	if rej := validateStructural(req); rej != nil {
		telemetry.JobsRejected.WithLabelValues(rej.Code).Inc()
		return nil, rej, nil
	}

	if callerID != req.AccountID {
		telemetry.JobsRejected.WithLabelValues("identity_mismatch").Inc()
		return nil, reject("identity_mismatch", "authenticated account does not match the request accountId"), nil
	}

	account, err := c.directory.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("admission: look up account %s: %w", req.AccountID, err)
	}

	tier := domain.Tier(req.Tier)
	if account.Tier != tier {
		telemetry.JobsRejected.WithLabelValues("tier_mismatch").Inc()
		return nil, reject("tier_mismatch", "declared tier does not match the account's stored tier"), nil
	}

	policy := domain.PolicyFor(tier)
	if tier != domain.TierPremium && tier != domain.TierVIP {
		telemetry.JobsRejected.WithLabelValues("tier_not_allowed").Inc()
		return nil, reject("tier_not_allowed",
			fmt.Sprintf("reel generation requires the %s tier or above", domain.MinimumReelTier)), nil
	}

	if req.RequestedDurationSeconds > policy.MaxDuration {
		telemetry.JobsRejected.WithLabelValues("invalid_duration").Inc()
		return nil, reject("invalid_duration",
			fmt.Sprintf("requested duration exceeds the %s tier maximum of %d seconds", tier, policy.MaxDuration)), nil
	}

	decision, err := c.ledger.CheckAndReserve(ctx, req.AccountID, tier)
	if err != nil {
		return nil, nil, fmt.Errorf("admission: reserve quota for %s: %w", req.AccountID, err)
	}
	if !decision.Allowed {
		telemetry.JobsRejected.WithLabelValues("quota_exhausted").Inc()
		rej := reject("quota_exhausted", "monthly reel allowance exhausted")
		rej.Quota = &decision
		return nil, rej, nil
	}

	duration := req.RequestedDurationSeconds
	if duration == 0 {
		duration = policy.DefaultDuration
	}

	now := c.now().UTC()
	job := &domain.Job{
		ID:              uuid.NewString(),
		AccountID:       req.AccountID,
		Tier:            tier,
		SourceURL:       req.SourceRef,
		Prompt:          req.Prompt,
		DurationSeconds: duration,
		Priority:        policy.Priority,
		Status:          domain.JobStatusPending,
		CallbackURL:     req.CallbackURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("admission: persist job: %w", err)
	}

	telemetry.JobsAdmitted.Inc()
	c.logger.Info().
		Str("job_id", job.ID).
		Str("account_id", job.AccountID).
		Str("tier", string(tier)).
		Int("priority", job.Priority).
		Int("duration_s", duration).
		Int("quota_remaining", decision.Remaining).
		Msg("admission: job accepted")
	return job, nil, nil
}

// validateStructural applies the gates that need no stored state.
func validateStructural(req Request) *Rejection {
	if !validHTTPURL(req.SourceRef) {
		return reject("invalid_source", "sourceRef must be a valid http or https URL")
	}

	runes := utf8.RuneCountInString(req.Prompt)
	if runes == 0 {
		return reject("invalid_prompt", "prompt must not be empty")
	}
	if runes > maxPromptRunes {
		return reject("invalid_prompt", fmt.Sprintf("prompt exceeds %d characters", maxPromptRunes))
	}

	if req.RequestedDurationSeconds < 0 || req.RequestedDurationSeconds > maxDurationSeconds {
		return reject("invalid_duration",
			fmt.Sprintf("requestedDurationSeconds must be between 1 and %d", maxDurationSeconds))
	}

	if !domain.ValidTier(domain.Tier(req.Tier)) {
		return reject("invalid_tier", "tier must be one of free, basic, premium, vip")
	}

	if req.CallbackURL != "" && !validHTTPURL(req.CallbackURL) {
		return reject("invalid_callback", "callbackUrl must be a valid http or https URL")
	}
	return nil
}

func validHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
