package engine

import (
	"sync"
	"time"
)

// DefaultMinInterval is the spacing the public NVD API tolerates without
// an API key.
const DefaultMinInterval = 5 * time.Second

// RateLimiter enforces a minimum spacing between outbound queries. It is
// the single global throttle shared by all keyword queries in the process.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastGranted time.Time
}

// NewRateLimiter creates a limiter with the given minimum spacing;
// non-positive values fall back to the default.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &RateLimiter{minInterval: minInterval}
}

// WaitForSlot blocks until the minimum interval has elapsed since the
// previous slot was granted, then records the grant. The mutex is held
// across the sleep: the check-and-update of the last-granted timestamp
// must not interleave, or two concurrent callers could both observe a
// stale elapsed time and proceed immediately.
func (r *RateLimiter) WaitForSlot() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastGranted.IsZero() {
		if elapsed := time.Since(r.lastGranted); elapsed < r.minInterval {
			time.Sleep(r.minInterval - elapsed)
		}
	}
	r.lastGranted = time.Now()
}
