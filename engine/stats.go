package engine

import (
	"sync/atomic"
	"time"

	"github.com/fleetscan/fleetscan-backend/model"
)

// Statistics holds the engine's process-wide counters. They are
// observability state: atomic increments, approximate consistency under
// race is acceptable. Owned by the Engine instance so tests and
// multi-tenant setups get isolated counters.
type Statistics struct {
	start         time.Time
	totalQueries  atomic.Int64
	cacheHits     atomic.Int64
	externalCalls atomic.Int64
	totalMatches  atomic.Int64
}

// NewStatistics creates counters with the start timestamp set to now.
func NewStatistics() *Statistics {
	return &Statistics{start: time.Now()}
}

// Snapshot returns the current counter values.
func (s *Statistics) Snapshot() model.EngineStats {
	return model.EngineStats{
		TotalQueries:      s.totalQueries.Load(),
		CacheHits:         s.cacheHits.Load(),
		ExternalCalls:     s.externalCalls.Load(),
		TotalMatchesFound: s.totalMatches.Load(),
		UptimeSeconds:     time.Since(s.start).Seconds(),
	}
}
