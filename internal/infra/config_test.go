package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("WORKER_POLL_INTERVAL", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.WorkerPollEvery != 2*time.Second {
		t.Fatalf("WorkerPollEvery = %v", cfg.WorkerPollEvery)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Fatalf("RateLimitPerMin = %d", cfg.RateLimitPerMin)
	}
	if cfg.RenderModel == "" {
		t.Fatal("RenderModel default missing")
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("WORKER_POLL_INTERVAL", "500ms")
	t.Setenv("GUARD_COOLDOWN", "3s")
	t.Setenv("S3_PATH_STYLE", "true")
	t.Setenv("REDIS_DB", "4")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerPollEvery != 500*time.Millisecond {
		t.Fatalf("WorkerPollEvery = %v", cfg.WorkerPollEvery)
	}
	if cfg.GuardCooldown != 3*time.Second {
		t.Fatalf("GuardCooldown = %v", cfg.GuardCooldown)
	}
	if !cfg.S3PathStyle {
		t.Fatal("S3PathStyle override ignored")
	}
	if cfg.RedisDB != 4 {
		t.Fatalf("RedisDB = %d", cfg.RedisDB)
	}
}
