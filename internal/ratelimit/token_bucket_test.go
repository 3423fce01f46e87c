package ratelimit

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBucket(t *testing.T, perMinute int) *TokenBucket {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPerMinuteBucket(client, perMinute)
}

func TestBucketEnforcesCapacity(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t, 3)

	for i := 0; i < 3; i++ {
		allowed, err := bucket.Allow(ctx, "acct-1")
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("submission %d rejected inside the budget", i+1)
		}
	}

	allowed, err := bucket.Allow(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Allow over budget: %v", err)
	}
	if allowed {
		t.Fatal("submission over the per-minute budget was allowed")
	}
}

func TestBucketsAreIsolatedPerAccount(t *testing.T) {
	ctx := context.Background()
	bucket := newTestBucket(t, 1)

	if allowed, _ := bucket.Allow(ctx, "acct-1"); !allowed {
		t.Fatal("acct-1 first submission rejected")
	}
	if allowed, _ := bucket.Allow(ctx, "acct-1"); allowed {
		t.Fatal("acct-1 second submission allowed")
	}
	// A different account keeps its own budget.
	if allowed, _ := bucket.Allow(ctx, "acct-2"); !allowed {
		t.Fatal("acct-2 first submission rejected")
	}
}
