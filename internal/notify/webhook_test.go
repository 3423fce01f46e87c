package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dreamreel/internal/adapter/memrepo"
	"dreamreel/internal/domain"
	"dreamreel/internal/infra"
)

type callbackRecorder struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
}

func (c *callbackRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		status := c.status
		c.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}
}

func (c *callbackRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func completedJob(callbackURL string) *domain.Job {
	done := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Job{
		ID:          "job-1",
		AccountID:   "acct-1",
		Tier:        domain.TierPremium,
		SourceURL:   "http://images.local/seed.jpg",
		Prompt:      "a dream",
		Status:      domain.JobStatusCompleted,
		AssetURL:    "http://assets.local/reels/job-1/reel.drm",
		FrameCount:  6,
		CallbackURL: callbackURL,
		CompletedAt: &done,
	}
}

func TestNotifyDeliversAndMarksSent(t *testing.T) {
	rec := &callbackRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	repo := memrepo.NewJobRepo()
	job := completedJob(srv.URL)
	_ = repo.Create(context.Background(), job)

	w := NewWebhook(repo, srv.Client(), infra.NewLogger("test"))
	w.NotifyTerminal(context.Background(), job)

	if rec.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", rec.count())
	}

	var p map[string]any
	if err := json.Unmarshal(rec.bodies[0], &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p["jobId"] != "job-1" || p["status"] != "completed" {
		t.Fatalf("payload = %v", p)
	}
	if p["assetUrl"] != job.AssetURL {
		t.Fatalf("assetUrl = %v", p["assetUrl"])
	}
	if p["completedAt"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("completedAt = %v", p["completedAt"])
	}

	stored, _ := repo.GetByID(context.Background(), job.ID)
	if !stored.WebhookSent {
		t.Fatal("webhookSent not persisted")
	}
}

func TestNotifySkipsAlreadySent(t *testing.T) {
	rec := &callbackRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	repo := memrepo.NewJobRepo()
	job := completedJob(srv.URL)
	job.WebhookSent = true
	_ = repo.Create(context.Background(), job)

	w := NewWebhook(repo, srv.Client(), infra.NewLogger("test"))
	w.NotifyTerminal(context.Background(), job)

	if rec.count() != 0 {
		t.Fatalf("deliveries = %d, want 0", rec.count())
	}
}

func TestNotifySkipsJobsWithoutCallback(t *testing.T) {
	repo := memrepo.NewJobRepo()
	job := completedJob("")
	_ = repo.Create(context.Background(), job)

	w := NewWebhook(repo, nil, infra.NewLogger("test"))
	w.NotifyTerminal(context.Background(), job)

	stored, _ := repo.GetByID(context.Background(), job.ID)
	if stored.WebhookSent {
		t.Fatal("webhookSent set without a callback")
	}
}

func TestNotifyFailureIsSwallowedAndNotMarked(t *testing.T) {
	rec := &callbackRecorder{status: http.StatusBadGateway}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	repo := memrepo.NewJobRepo()
	job := completedJob(srv.URL)
	_ = repo.Create(context.Background(), job)

	w := NewWebhook(repo, srv.Client(), infra.NewLogger("test"))
	w.NotifyTerminal(context.Background(), job)

	if rec.count() != 1 {
		t.Fatalf("deliveries = %d, want 1 attempt", rec.count())
	}
	stored, _ := repo.GetByID(context.Background(), job.ID)
	if stored.WebhookSent {
		t.Fatal("webhookSent set after failed delivery")
	}
}

func TestNotifyFailedJobCarriesErrorMessage(t *testing.T) {
	rec := &callbackRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	repo := memrepo.NewJobRepo()
	job := completedJob(srv.URL)
	job.Status = domain.JobStatusFailed
	job.AssetURL = ""
	job.ErrorMessage = "render backend down"
	_ = repo.Create(context.Background(), job)

	w := NewWebhook(repo, srv.Client(), infra.NewLogger("test"))
	w.NotifyTerminal(context.Background(), job)

	var p map[string]any
	if err := json.Unmarshal(rec.bodies[0], &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p["status"] != "failed" || p["errorMessage"] != "render backend down" {
		t.Fatalf("payload = %v", p)
	}
	if _, ok := p["assetUrl"]; ok {
		t.Fatal("assetUrl present on failed job payload")
	}
}
