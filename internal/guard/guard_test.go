package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dreamreel/internal/domain"
)

func TestDoDeduplicatesConcurrentCallsPerKey(t *testing.T) {
	g := New(time.Second)

	var calls int32
	release := make(chan struct{})
	fn := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "tier", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := g.Do(context.Background(), "account:a1", fn)
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			results[i] = v
		}(i)
	}

	// Give every caller a chance to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("fn ran %d times, want 1", n)
	}
	for i, v := range results {
		if v != "tier" {
			t.Fatalf("caller %d got %v, want shared result", i, v)
		}
	}
}

func TestDistinctKeysDoNotShareCalls(t *testing.T) {
	g := New(time.Second)

	var calls int32
	fn := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	if _, err := g.Do(context.Background(), "account:a1", fn); err != nil {
		t.Fatalf("Do a1: %v", err)
	}
	if _, err := g.Do(context.Background(), "account:a2", fn); err != nil {
		t.Fatalf("Do a2: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("fn ran %d times, want 2", n)
	}
}

func TestRateLimitSignalImposesGlobalCooldown(t *testing.T) {
	cooldown := 80 * time.Millisecond
	g := New(cooldown)
	ctx := context.Background()

	_, err := g.Do(ctx, "account:a1", func() (any, error) {
		return nil, domain.ErrRateLimited
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}

	// The next call, even for an unrelated key, waits out the cool-down.
	start := time.Now()
	if _, err := g.Do(ctx, "job:other", func() (any, error) { return nil, nil }); err != nil {
		t.Fatalf("Do after cooldown: %v", err)
	}
	if elapsed := time.Since(start); elapsed < cooldown/2 {
		t.Fatalf("call proceeded after %s, want it held for the cool-down", elapsed)
	}
}

func TestCooldownHonorsContextCancellation(t *testing.T) {
	g := New(5 * time.Second)
	ctx := context.Background()

	_, _ = g.Do(ctx, "k", func() (any, error) { return nil, domain.ErrRateLimited })

	cancelled, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err := g.Do(cancelled, "k", func() (any, error) { return nil, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error while cooling down, got %v", err)
	}
}

func TestWrapDirectorySharesLookups(t *testing.T) {
	var calls int32
	dir := directoryFunc(func(ctx context.Context, id string) (*domain.Account, error) {
		atomic.AddInt32(&calls, 1)
		return &domain.Account{ID: id, Tier: domain.TierPremium}, nil
	})
	wrapped := WrapDirectory(dir, New(time.Second))

	acc, err := wrapped.GetAccount(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.Tier != domain.TierPremium {
		t.Fatalf("tier = %s, want premium", acc.Tier)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("directory called %d times, want 1", n)
	}
}

type directoryFunc func(ctx context.Context, id string) (*domain.Account, error)

func (f directoryFunc) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return f(ctx, id)
}
