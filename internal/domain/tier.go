package domain

// Tier enumerates billing plans as resolved from the account directory.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

// TierPolicy is the static per-tier configuration: monthly reel allowance,
// scheduling priority, and output duration default/ceiling. An allowance of
// zero disables reel generation for the tier entirely.
type TierPolicy struct {
	MonthlyAllowance int
	Priority         int
	DefaultDuration  int
	MaxDuration      int
}

var tierPolicies = map[Tier]TierPolicy{
	TierFree:    {MonthlyAllowance: 0, Priority: 0},
	TierBasic:   {MonthlyAllowance: 0, Priority: 10},
	TierPremium: {MonthlyAllowance: 20, Priority: 50, DefaultDuration: 15, MaxDuration: 60},
	TierVIP:     {MonthlyAllowance: 100, Priority: 100, DefaultDuration: 30, MaxDuration: 120},
}

// PolicyFor returns the policy for the tier. Unknown tiers resolve to the
// free policy, which denies everything.
func PolicyFor(tier Tier) TierPolicy {
	if p, ok := tierPolicies[tier]; ok {
		return p
	}
	return tierPolicies[TierFree]
}

// ValidTier reports whether t names a known tier.
func ValidTier(t Tier) bool {
	_, ok := tierPolicies[t]
	return ok
}

// MinimumReelTier is the lowest tier permitted to generate reels, used in
// feature-gate rejection messages.
const MinimumReelTier = TierPremium

// Account is the authoritative identity record supplied by the external
// identity/billing system. Only the fields the pipeline needs are carried.
type Account struct {
	ID   string
	Tier Tier
}
