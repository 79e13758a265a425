package common

import "time"

// Freshness TTLs for market data kinds. The quote TTL comes from [cache].
const (
	FreshnessDividends  = 12 * time.Hour
	FreshnessFinancials = 7 * 24 * time.Hour // annual statements change rarely
	FreshnessFXRate     = 1 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	return IsFreshAt(updated, ttl, time.Now())
}

// IsFreshAt is IsFresh against an explicit clock
func IsFreshAt(updated time.Time, ttl time.Duration, now time.Time) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
