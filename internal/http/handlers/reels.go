package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"dreamreel/internal/admission"
	"dreamreel/internal/domain"
)

const defaultListLimit = 50

type jobResponse struct {
	JobID           string  `json:"job_id"`
	Status          string  `json:"status"`
	Tier            string  `json:"tier"`
	Prompt          string  `json:"prompt,omitempty"`
	DurationSeconds int     `json:"duration_seconds"`
	FrameCount      int     `json:"frame_count"`
	AssetURL        string  `json:"asset_url,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	RetryCount      int     `json:"retry_count"`
	CreatedAt       string  `json:"created_at"`
	CompletedAt     *string `json:"completed_at,omitempty"`
}

func toJobResponse(job *domain.Job) jobResponse {
	resp := jobResponse{
		JobID:           job.ID,
		Status:          string(job.Status),
		Tier:            string(job.Tier),
		Prompt:          job.Prompt,
		DurationSeconds: job.DurationSeconds,
		FrameCount:      job.FrameCount,
		AssetURL:        job.AssetURL,
		ErrorMessage:    job.ErrorMessage,
		RetryCount:      job.RetryCount,
		CreatedAt:       job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		ts := job.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &ts
	}
	return resp
}

// ReelsCreate accepts a reel request, runs admission, and enqueues the job.
// Accepted requests return 202 with the job id; the reel itself is produced
// asynchronously by the worker.
func (a *App) ReelsCreate(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}

	var req admission.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	job, rej, err := a.Admission.Admit(r.Context(), accountID, req)
	if err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("reels: admission failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to process request")
		return
	}
	if rej != nil {
		a.rejection(w, rej)
		return
	}

	a.json(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// rejection maps an admission outcome onto an HTTP status. Quota refusals
// include the limit and the reset date so callers can back off sensibly.
func (a *App) rejection(w http.ResponseWriter, rej *admission.Rejection) {
	switch rej.Code {
	case "identity_mismatch", "tier_mismatch", "tier_not_allowed":
		a.error(w, http.StatusForbidden, rej.Code, rej.Message)
	case "quota_exhausted":
		body := map[string]any{
			"error":   rej.Code,
			"message": rej.Message,
		}
		if rej.Quota != nil {
			body["limit"] = rej.Quota.Limit
			body["remaining"] = rej.Quota.Remaining
			body["resetDate"] = rej.Quota.ResetAt.UTC().Format(time.RFC3339)
		}
		a.json(w, http.StatusTooManyRequests, body)
	default:
		a.error(w, http.StatusBadRequest, rej.Code, rej.Message)
	}
}

// ReelStatus returns one job, scoped to the authenticated account.
func (a *App) ReelStatus(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	job, err := a.Jobs.GetForAccount(r.Context(), jobID, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("reels: status lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

// ReelsList returns the account's jobs, optionally filtered by status.
func (a *App) ReelsList(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}

	var status domain.JobStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status = domain.JobStatus(s)
		if !domain.ValidStatus(status) {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown status filter")
			return
		}
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	jobs, err := a.Jobs.ListByAccount(r.Context(), accountID, status, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("reels: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, toJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
