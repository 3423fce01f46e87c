package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"dreamreel/internal/adapter/memrepo"
	"dreamreel/internal/admission"
	"dreamreel/internal/domain"
	"dreamreel/internal/infra"
	"dreamreel/internal/middleware"
	"dreamreel/internal/quota"
)

func newTestApp(accounts ...domain.Account) (*App, *memrepo.JobRepo) {
	jobs := memrepo.NewJobRepo()
	ledger := quota.NewLedger(memrepo.NewQuotaRepo(), nil)
	directory := memrepo.NewDirectory(accounts...)
	logger := infra.NewLogger("test")
	adm := admission.NewController(jobs, ledger, directory, logger)
	return NewApp(jobs, adm, logger), jobs
}

func authedRequest(method, target string, body []byte, accountID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithAccountID(req.Context(), accountID))
}

func createBody(t *testing.T, req admission.Request) []byte {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return body
}

func validCreateRequest() admission.Request {
	return admission.Request{
		SourceRef: "https://images.local/seed.jpg",
		Prompt:    "floating lanterns over a midnight sea",
		AccountID: "acct-1",
		Tier:      "premium",
	}
}

func TestReelsCreateAccepted(t *testing.T) {
	app, jobs := newTestApp(domain.Account{ID: "acct-1", Tier: domain.TierPremium})

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/v1/reels", createBody(t, validCreateRequest()), "acct-1")
	app.ReelsCreate(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if resp["status"] != "pending" || resp["job_id"] == "" {
		t.Fatalf("response = %v", resp)
	}

	if _, err := jobs.GetByID(context.Background(), resp["job_id"]); err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
}

func TestReelsCreateUnauthenticated(t *testing.T) {
	app, _ := newTestApp()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reels", bytes.NewReader(createBody(t, validCreateRequest())))
	app.ReelsCreate(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReelsCreateRejectionStatusCodes(t *testing.T) {
	app, _ := newTestApp(
		domain.Account{ID: "acct-1", Tier: domain.TierPremium},
		domain.Account{ID: "acct-basic", Tier: domain.TierBasic},
	)

	cases := []struct {
		name     string
		caller   string
		mutate   func(*admission.Request)
		wantCode int
		wantErr  string
	}{
		{
			"empty prompt", "acct-1",
			func(r *admission.Request) { r.Prompt = "" },
			http.StatusBadRequest, "invalid_prompt",
		},
		{
			"identity mismatch", "intruder",
			func(r *admission.Request) {},
			http.StatusForbidden, "identity_mismatch",
		},
		{
			"tier below gate", "acct-basic",
			func(r *admission.Request) { r.AccountID = "acct-basic"; r.Tier = "basic" },
			http.StatusForbidden, "tier_not_allowed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validCreateRequest()
			tc.mutate(&body)
			rr := httptest.NewRecorder()
			app.ReelsCreate(rr, authedRequest(http.MethodPost, "/v1/reels", createBody(t, body), tc.caller))

			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tc.wantCode, rr.Body.String())
			}
			var resp map[string]any
			_ = json.Unmarshal(rr.Body.Bytes(), &resp)
			if resp["error"] != tc.wantErr {
				t.Fatalf("error = %v, want %s", resp["error"], tc.wantErr)
			}
		})
	}
}

func TestReelsCreateQuotaExhaustedResponse(t *testing.T) {
	app, _ := newTestApp(domain.Account{ID: "acct-1", Tier: domain.TierPremium})
	allowance := domain.PolicyFor(domain.TierPremium).MonthlyAllowance

	for i := 0; i < allowance; i++ {
		rr := httptest.NewRecorder()
		app.ReelsCreate(rr, authedRequest(http.MethodPost, "/v1/reels", createBody(t, validCreateRequest()), "acct-1"))
		if rr.Code != http.StatusAccepted {
			t.Fatalf("admission %d: status = %d", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	app.ReelsCreate(rr, authedRequest(http.MethodPost, "/v1/reels", createBody(t, validCreateRequest()), "acct-1"))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if resp["error"] != "quota_exhausted" {
		t.Fatalf("error = %v", resp["error"])
	}
	if resp["limit"] != float64(allowance) || resp["remaining"] != float64(0) {
		t.Fatalf("quota fields = %v", resp)
	}
	if _, err := time.Parse(time.RFC3339, resp["resetDate"].(string)); err != nil {
		t.Fatalf("resetDate = %v: %v", resp["resetDate"], err)
	}
}

func TestReelStatusScopedToAccount(t *testing.T) {
	app, jobs := newTestApp(domain.Account{ID: "acct-1", Tier: domain.TierPremium})

	done := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	job := &domain.Job{
		ID:          "job-1",
		AccountID:   "acct-1",
		Tier:        domain.TierPremium,
		SourceURL:   "https://images.local/seed.jpg",
		Prompt:      "a dream",
		Status:      domain.JobStatusCompleted,
		AssetURL:    "http://assets.local/reels/job-1/reel.drm",
		FrameCount:  6,
		CreatedAt:   done.Add(-time.Minute),
		CompletedAt: &done,
	}
	_ = jobs.Create(context.Background(), job)

	router := chi.NewRouter()
	router.Get("/v1/reels/{job_id}", app.ReelStatus)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/v1/reels/job-1", nil, "acct-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp jobResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if resp.Status != "completed" || resp.AssetURL == "" || resp.FrameCount != 6 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.CompletedAt == nil || *resp.CompletedAt != "2026-03-02T09:00:00Z" {
		t.Fatalf("completedAt = %v", resp.CompletedAt)
	}

	// Another account must not see the job.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/v1/reels/job-1", nil, "acct-2"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-account status = %d, want 404", rr.Code)
	}
}

func TestReelsListFiltersByStatus(t *testing.T) {
	app, jobs := newTestApp(domain.Account{ID: "acct-1", Tier: domain.TierPremium})

	now := time.Now()
	for i, status := range []domain.JobStatus{domain.JobStatusPending, domain.JobStatusCompleted, domain.JobStatusFailed} {
		_ = jobs.Create(context.Background(), &domain.Job{
			ID:        "job-" + string(rune('a'+i)),
			AccountID: "acct-1",
			Tier:      domain.TierPremium,
			SourceURL: "https://images.local/seed.jpg",
			Prompt:    "a dream",
			Status:    status,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
	}

	rr := httptest.NewRecorder()
	app.ReelsList(rr, authedRequest(http.MethodGet, "/v1/reels?status=completed", nil, "acct-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Items []jobResponse `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Status != "completed" {
		t.Fatalf("items = %+v", resp.Items)
	}

	rr = httptest.NewRecorder()
	app.ReelsList(rr, authedRequest(http.MethodGet, "/v1/reels?status=bogus", nil, "acct-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bogus filter status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	app.ReelsList(rr, authedRequest(http.MethodGet, "/v1/reels?limit=0", nil, "acct-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rr.Code)
	}
}
