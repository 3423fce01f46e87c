package quota

import (
	"context"
	"testing"
	"time"

	"dreamreel/internal/adapter/memrepo"
	"dreamreel/internal/domain"
)

func TestZeroAllowanceTiersAlwaysDenied(t *testing.T) {
	ledger := NewLedger(memrepo.NewQuotaRepo(), nil)

	for _, tier := range []domain.Tier{domain.TierFree, domain.TierBasic} {
		for i := 0; i < 3; i++ {
			dec, err := ledger.CheckAndReserve(context.Background(), "acct-1", tier)
			if err != nil {
				t.Fatalf("CheckAndReserve(%s): %v", tier, err)
			}
			if dec.Allowed {
				t.Fatalf("tier %s attempt %d: expected denial", tier, i)
			}
			if dec.Remaining != 0 {
				t.Fatalf("tier %s: remaining = %d, want 0", tier, dec.Remaining)
			}
		}
	}
}

func TestRemainingDecrementsPerAdmission(t *testing.T) {
	ledger := NewLedger(memrepo.NewQuotaRepo(), nil)
	ctx := context.Background()

	limit := domain.PolicyFor(domain.TierPremium).MonthlyAllowance
	if limit != 20 {
		t.Fatalf("premium allowance = %d, want 20", limit)
	}

	for i := 1; i <= limit; i++ {
		dec, err := ledger.CheckAndReserve(ctx, "acct-1", domain.TierPremium)
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		if !dec.Allowed {
			t.Fatalf("reserve %d: expected allowed", i)
		}
		if dec.Remaining != limit-i {
			t.Fatalf("reserve %d: remaining = %d, want %d", i, dec.Remaining, limit-i)
		}
	}

	dec, err := ledger.CheckAndReserve(ctx, "acct-1", domain.TierPremium)
	if err != nil {
		t.Fatalf("reserve over limit: %v", err)
	}
	if dec.Allowed || dec.Remaining != 0 {
		t.Fatalf("reserve over limit: got allowed=%v remaining=%d, want denied with 0", dec.Allowed, dec.Remaining)
	}
	if dec.Limit != limit {
		t.Fatalf("limit = %d, want %d", dec.Limit, limit)
	}
}

func TestMonthlyRolloverGrantsFreshAllowance(t *testing.T) {
	current := time.Date(2026, time.March, 28, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger(memrepo.NewQuotaRepo(), func() time.Time { return current })
	ctx := context.Background()

	limit := domain.PolicyFor(domain.TierPremium).MonthlyAllowance
	for i := 0; i < limit; i++ {
		if dec, _ := ledger.CheckAndReserve(ctx, "acct-1", domain.TierPremium); !dec.Allowed {
			t.Fatalf("reserve %d: expected allowed", i)
		}
	}
	if dec, _ := ledger.CheckAndReserve(ctx, "acct-1", domain.TierPremium); dec.Allowed {
		t.Fatal("expected denial once allowance is spent")
	}

	// Crossing the month boundary resets consumption exactly once.
	current = time.Date(2026, time.April, 1, 0, 0, 1, 0, time.UTC)
	dec, err := ledger.CheckAndReserve(ctx, "acct-1", domain.TierPremium)
	if err != nil {
		t.Fatalf("post-rollover reserve: %v", err)
	}
	if !dec.Allowed {
		t.Fatal("expected fresh allowance after rollover")
	}
	if dec.Remaining != limit-1 {
		t.Fatalf("post-rollover remaining = %d, want %d", dec.Remaining, limit-1)
	}

	// A second read in the same month must not roll over again.
	dec, _ = ledger.CheckAndReserve(ctx, "acct-1", domain.TierPremium)
	if dec.Remaining != limit-2 {
		t.Fatalf("second post-rollover remaining = %d, want %d", dec.Remaining, limit-2)
	}
}

func TestResetDateIsFirstOfNextMonth(t *testing.T) {
	current := time.Date(2026, time.December, 15, 8, 30, 0, 0, time.UTC)
	ledger := NewLedger(memrepo.NewQuotaRepo(), func() time.Time { return current })

	dec, err := ledger.CheckAndReserve(context.Background(), "acct-1", domain.TierVIP)
	if err != nil {
		t.Fatalf("CheckAndReserve: %v", err)
	}
	want := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !dec.ResetAt.Equal(want) {
		t.Fatalf("ResetAt = %s, want %s", dec.ResetAt, want)
	}
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	ledger := NewLedger(memrepo.NewQuotaRepo(), nil)
	ctx := context.Background()

	limit := domain.PolicyFor(domain.TierPremium).MonthlyAllowance
	attempts := limit * 2
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			dec, err := ledger.CheckAndReserve(ctx, "acct-1", domain.TierPremium)
			results <- err == nil && dec.Allowed
		}()
	}

	allowed := 0
	for i := 0; i < attempts; i++ {
		if <-results {
			allowed++
		}
	}
	if allowed != limit {
		t.Fatalf("allowed %d concurrent reservations, want exactly %d", allowed, limit)
	}
}
