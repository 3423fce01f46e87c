package domain

import "time"

// QuotaRecord tracks one account's reel consumption for the current monthly
// period. The record rolls over lazily: whenever the wall-clock month or year
// differs from PeriodStart's, Consumed resets to zero and PeriodStart
// advances before the current request is considered.
type QuotaRecord struct {
	AccountID   string
	Tier        Tier
	Consumed    int
	PeriodStart time.Time
	UpdatedAt   time.Time
}

// SamePeriod reports whether now falls in the record's stored monthly period.
func (q *QuotaRecord) SamePeriod(now time.Time) bool {
	return q.PeriodStart.Year() == now.Year() && q.PeriodStart.Month() == now.Month()
}

// Reservation is the result of an atomic check-and-reserve against a quota
// record. Consumed and PeriodStart reflect the record after rollover and,
// when Allowed, after the unit was consumed.
type Reservation struct {
	Allowed     bool
	Consumed    int
	PeriodStart time.Time
}
