// Package guard wraps read-heavy store lookups with two protections: identical
// concurrent lookups are collapsed into a single in-flight call per key, and a
// rate-limit signal from the store imposes a short global cool-down before the
// next call of any kind.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dreamreel/internal/domain"
)

// Guard coordinates deduplication and cool-down. The zero value is not
// usable; construct with New.
type Guard struct {
	cooldown time.Duration
	group    singleflight.Group

	mu        sync.Mutex
	coolUntil time.Time

	now func() time.Time
}

// New constructs a guard with the given cool-down window.
func New(cooldown time.Duration) *Guard {
	return &Guard{cooldown: cooldown, now: time.Now}
}

// Do runs fn, sharing the result with any concurrent caller using the same
// key. If a previous call signalled a rate-limit condition, Do first waits
// out the remaining cool-down, honoring context cancellation.
func (g *Guard) Do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	if err := g.waitCooldown(ctx); err != nil {
		return nil, err
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		v, err := fn()
		if err != nil && errors.Is(err, domain.ErrRateLimited) {
			g.mu.Lock()
			g.coolUntil = g.now().Add(g.cooldown)
			g.mu.Unlock()
		}
		return v, err
	})
	return v, err
}

func (g *Guard) waitCooldown(ctx context.Context) error {
	g.mu.Lock()
	wait := time.Until(g.coolUntil)
	g.mu.Unlock()
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Directory wraps an AccountDirectory so concurrent lookups for the same
// account share one store round-trip. The admission path is the heaviest
// consumer and must tolerate the added latency of the cool-down.
type Directory struct {
	inner domain.AccountDirectory
	guard *Guard
}

// WrapDirectory decorates dir with the guard's protections.
func WrapDirectory(dir domain.AccountDirectory, g *Guard) *Directory {
	return &Directory{inner: dir, guard: g}
}

func (d *Directory) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	v, err := d.guard.Do(ctx, "account:"+accountID, func() (any, error) {
		return d.inner.GetAccount(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Account), nil
}

var _ domain.AccountDirectory = (*Directory)(nil)
