// Package quota implements the per-account monthly usage ledger.
package quota

import (
	"context"
	"time"

	"dreamreel/internal/domain"
)

// Decision is the outcome of a check-and-reserve. When Allowed, one unit has
// already been consumed; check and use are never separate steps.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Ledger applies tier policy on top of the atomic quota repository.
type Ledger struct {
	repo domain.QuotaRepository
	now  func() time.Time
}

// NewLedger constructs a ledger. now is overridable for tests; nil means
// wall clock.
func NewLedger(repo domain.QuotaRepository, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{repo: repo, now: now}
}

// CheckAndReserve reserves one reel for the account if the tier's monthly
// allowance permits it. Tiers with a zero allowance are always denied. Period
// rollover happens lazily inside the repository's read-modify-write.
func (l *Ledger) CheckAndReserve(ctx context.Context, accountID string, tier domain.Tier) (Decision, error) {
	policy := domain.PolicyFor(tier)
	now := l.now().UTC()

	if policy.MonthlyAllowance <= 0 {
		return Decision{
			Allowed: false,
			Limit:   policy.MonthlyAllowance,
			ResetAt: nextPeriod(now),
		}, nil
	}

	res, err := l.repo.Reserve(ctx, accountID, tier, policy.MonthlyAllowance, now)
	if err != nil {
		return Decision{}, err
	}

	remaining := policy.MonthlyAllowance - res.Consumed
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   res.Allowed,
		Remaining: remaining,
		Limit:     policy.MonthlyAllowance,
		ResetAt:   nextPeriod(res.PeriodStart),
	}, nil
}

// nextPeriod returns the first instant of the month after t.
func nextPeriod(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
