package inbound

import "time"

// StalenessFilter drops events whose platform timestamp is too old, which
// protects against replays after the bot was offline.
type StalenessFilter struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewStalenessFilter creates a filter. A non-positive maxAge disables it.
func NewStalenessFilter(maxAge time.Duration) *StalenessFilter {
	return &StalenessFilter{maxAge: maxAge, now: time.Now}
}

// IsStale reports whether ts is older than the threshold. A missing
// timestamp counts as stale.
func (f *StalenessFilter) IsStale(ts time.Time) bool {
	if f.maxAge <= 0 {
		return false
	}
	if ts.IsZero() {
		return true
	}
	return f.now().Sub(ts) > f.maxAge
}

// MaxAge returns the configured threshold.
func (f *StalenessFilter) MaxAge() time.Duration { return f.maxAge }
