package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetscan/fleetscan-backend/model"
)

// fakeSource scripts per-keyword responses and counts requests.
type fakeSource struct {
	responses map[string][]model.VulnerabilityRecord
	errors    map[string][]error
	calls     []string
}

func (f *fakeSource) Search(_ context.Context, keyword string, _ int) ([]model.VulnerabilityRecord, error) {
	f.calls = append(f.calls, keyword)
	if errs, ok := f.errors[keyword]; ok && len(errs) > 0 {
		err := errs[0]
		f.errors[keyword] = errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.responses[keyword], nil
}

// memStore is an in-memory cache.Store with a configurable freshness window.
type memStore struct {
	entries map[string]*model.CacheEntry
	ttl     time.Duration
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]*model.CacheEntry{}, ttl: 24 * time.Hour}
}

func storeKey(name, version string) string { return name + "\x00" + version }

func (m *memStore) IsFresh(name, version string) bool {
	entry, ok := m.entries[storeKey(name, version)]
	return ok && time.Since(entry.QueriedAt) < m.ttl
}

func (m *memStore) Get(name, version string) (*model.CacheEntry, error) {
	return m.entries[storeKey(name, version)], nil
}

func (m *memStore) Put(entry *model.CacheEntry) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[storeKey(entry.PackageName, entry.Version)] = entry
	return nil
}

func (m *memStore) Invalidate(name string) error {
	for key, entry := range m.entries {
		if entry.PackageName == name {
			delete(m.entries, key)
		}
	}
	return nil
}

// countingLimiter grants slots instantly and counts them.
type countingLimiter struct{ slots int }

func (l *countingLimiter) WaitForSlot() { l.slots++ }

func newTestEngine(source Source, store *memStore) (*Engine, *countingLimiter) {
	eng := NewEngine(Config{RetryBaseDelay: time.Millisecond}, source, store, nil, nil)
	limiter := &countingLimiter{}
	eng.limiter = limiter
	return eng, limiter
}

func record(id string, severity float64) model.VulnerabilityRecord {
	return model.VulnerabilityRecord{ID: id, Description: id + " description", Severity: severity}
}

func Test_CheckFreshCacheSkipsSource(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{}}
	store := newMemStore()
	store.entries[storeKey("nginx", "1.24.0")] = &model.CacheEntry{
		PackageName: "nginx",
		Version:     "1.24.0",
		QueriedAt:   time.Now(),
		MatchCount:  2,
		MaxSeverity: 9.8,
		Records:     []model.VulnerabilityRecord{record("CVE-2023-0001", 9.8), record("CVE-2023-0002", 5.0)},
	}

	eng, limiter := newTestEngine(source, store)
	result := eng.Check(context.Background(), "nginx", "1.24.0")

	assert.True(t, result.FromCache)
	assert.Equal(t, 2, result.MatchCount)
	assert.Equal(t, 9.8, result.MaxSeverity)
	assert.Equal(t, "CRITICAL", result.SeverityRating)
	assert.Empty(t, source.calls)
	assert.Zero(t, limiter.slots)

	stats := eng.Stats()
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(0), stats.ExternalCalls)
	assert.Equal(t, int64(2), stats.TotalMatchesFound)
}

func Test_CheckStaleEntryQueriesAgain(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{
		"nginx": {record("CVE-2024-1111", 7.5)},
	}}
	store := newMemStore()
	store.entries[storeKey("nginx", "")] = &model.CacheEntry{
		PackageName: "nginx",
		QueriedAt:   time.Now().Add(-25 * time.Hour),
		MatchCount:  0,
	}

	eng, _ := newTestEngine(source, store)
	result := eng.Check(context.Background(), "nginx", "")

	assert.False(t, result.FromCache)
	assert.Equal(t, 1, result.MatchCount)
	assert.Equal(t, []string{"nginx"}, source.calls)

	// The stale entry was replaced atomically.
	entry := store.entries[storeKey("nginx", "")]
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.MatchCount)
}

func Test_CheckZeroMatchesStillCached(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{}}
	store := newMemStore()

	eng, _ := newTestEngine(source, store)
	result := eng.Check(context.Background(), "obscurepkg", "")

	assert.False(t, result.FromCache)
	assert.Equal(t, 0, result.MatchCount)
	assert.False(t, result.Vulnerable)
	assert.Equal(t, "NONE", result.SeverityRating)

	entry := store.entries[storeKey("obscurepkg", "")]
	require.NotNil(t, entry, "zero-match result must be cached")
	assert.Equal(t, 0, entry.MatchCount)

	// Second check hits the cache without another source call.
	calls := len(source.calls)
	result = eng.Check(context.Background(), "obscurepkg", "")
	assert.True(t, result.FromCache)
	assert.Len(t, source.calls, calls)
}

func Test_CheckDegenerateInputUncached(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{}}
	store := newMemStore()

	eng, limiter := newTestEngine(source, store)
	result := eng.Check(context.Background(), "   ", "")

	assert.False(t, result.FromCache)
	assert.Equal(t, 0, result.MatchCount)
	assert.Empty(t, source.calls)
	assert.Zero(t, limiter.slots)
	assert.Empty(t, store.entries, "degenerate input must not be cached")
}

func Test_CheckEarlyExitOnFirstKeywordMatch(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{
		"microsoft edge": {record("CVE-2024-2222", 8.8)},
	}}
	store := newMemStore()

	eng, limiter := newTestEngine(source, store)
	result := eng.Check(context.Background(), "Microsoft Edge", "")

	// "microsoft edge" matched, so the fallback keyword "microsoft" was
	// never queried.
	assert.Equal(t, []string{"microsoft edge"}, source.calls)
	assert.Equal(t, 1, limiter.slots)
	assert.Equal(t, 1, result.MatchCount)
}

func Test_CheckKeywordFallback(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{
		"microsoft": {record("CVE-2024-3333", 6.1)},
	}}
	store := newMemStore()

	eng, _ := newTestEngine(source, store)
	result := eng.Check(context.Background(), "Microsoft Edge", "")

	assert.Equal(t, []string{"microsoft edge", "microsoft"}, source.calls)
	assert.Equal(t, 1, result.MatchCount)
}

func Test_CheckDeduplicatesAcrossKeywords(t *testing.T) {
	// Both keywords are queried because the first returns nothing; the
	// second returns the same CVE twice in one page.
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{
		"microsoft": {record("CVE-2024-4444", 5.5), record("CVE-2024-4444", 5.5), record("CVE-2024-5555", 4.0)},
	}}
	store := newMemStore()

	eng, _ := newTestEngine(source, store)
	result := eng.Check(context.Background(), "Microsoft Edge", "")

	assert.Equal(t, 2, result.MatchCount)
	ids := []string{}
	for _, rec := range result.Records {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"CVE-2024-4444", "CVE-2024-5555"}, ids)
}

func Test_CheckRateLimitRetryCountsSlotsNotCalls(t *testing.T) {
	source := &fakeSource{
		responses: map[string][]model.VulnerabilityRecord{
			"nginx": {record("CVE-2024-6666", 9.1)},
		},
		errors: map[string][]error{
			"nginx": {fmt.Errorf("throttled: %w", ErrRateLimited)},
		},
	}
	store := newMemStore()

	eng, limiter := newTestEngine(source, store)
	result := eng.Check(context.Background(), "nginx", "")

	// One 429 then success: two limiter slots consumed, but only one
	// logical external call recorded.
	assert.Equal(t, 2, limiter.slots)
	assert.Equal(t, int64(1), eng.Stats().ExternalCalls)
	assert.Equal(t, 1, result.MatchCount)
}

func Test_CheckRateLimitRetriesExhausted(t *testing.T) {
	source := &fakeSource{
		errors: map[string][]error{
			"nginx": {ErrRateLimited, ErrRateLimited, ErrRateLimited},
		},
	}
	store := newMemStore()

	eng, limiter := newTestEngine(source, store)
	result := eng.Check(context.Background(), "nginx", "")

	assert.Equal(t, 3, limiter.slots)
	assert.Equal(t, 0, result.MatchCount)
	// The empty outcome is still cached; a broken source should not cause
	// a thundering herd of re-queries.
	assert.NotEmpty(t, store.entries)
}

func Test_CheckTransportErrorAbandonsKeyword(t *testing.T) {
	source := &fakeSource{
		errors: map[string][]error{
			"nginx": {errors.New("connection refused")},
		},
	}
	store := newMemStore()

	eng, limiter := newTestEngine(source, store)
	result := eng.Check(context.Background(), "nginx", "")

	assert.Equal(t, 1, limiter.slots, "transport errors are not retried")
	assert.Equal(t, 0, result.MatchCount)
}

func Test_CheckRecordCap(t *testing.T) {
	var records []model.VulnerabilityRecord
	for i := 0; i < 80; i++ {
		records = append(records, record(fmt.Sprintf("CVE-2024-%04d", i), 5.0))
	}
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{
		"nginx": records,
	}}
	store := newMemStore()

	eng, _ := newTestEngine(source, store)
	result := eng.Check(context.Background(), "nginx", "")

	assert.Equal(t, 50, result.MatchCount)
	assert.Len(t, result.Records, 50)
}

func Test_CheckStorageFailureStillReturns(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{
		"nginx": {record("CVE-2024-7777", 7.0)},
	}}
	store := newMemStore()
	store.putErr = errors.New("disk full")

	eng, _ := newTestEngine(source, store)
	result := eng.Check(context.Background(), "nginx", "")

	assert.Equal(t, 1, result.MatchCount)
	assert.True(t, result.Vulnerable)
}

func Test_CheckEmptyVersionDistinctFromVersioned(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{
		"nginx": {record("CVE-2024-8888", 6.5)},
	}}
	store := newMemStore()

	eng, _ := newTestEngine(source, store)
	eng.Check(context.Background(), "nginx", "")
	eng.Check(context.Background(), "nginx", "1.24.0")

	assert.Len(t, store.entries, 2)
	assert.Equal(t, []string{"nginx", "nginx"}, source.calls)
}

func Test_CheckVersionMatches(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{
		"nginx": {
			{ID: "CVE-2024-9999", Severity: 8.1, AffectedRanges: []model.AffectedRange{
				{StartIncluding: "1.0.0", EndExcluding: "1.25.0"},
			}},
			{ID: "CVE-2024-0000", Severity: 5.0, AffectedRanges: []model.AffectedRange{
				{StartIncluding: "2.0.0"},
			}},
		},
	}}
	store := newMemStore()

	eng, _ := newTestEngine(source, store)
	result := eng.Check(context.Background(), "nginx", "1.24.0")

	assert.Equal(t, 2, result.MatchCount)
	assert.Equal(t, 1, result.VersionMatches)
}

func Test_Invalidate(t *testing.T) {
	source := &fakeSource{responses: map[string][]model.VulnerabilityRecord{}}
	store := newMemStore()
	store.entries[storeKey("nginx", "")] = &model.CacheEntry{PackageName: "nginx", QueriedAt: time.Now()}
	store.entries[storeKey("nginx", "1.24.0")] = &model.CacheEntry{PackageName: "nginx", Version: "1.24.0", QueriedAt: time.Now()}

	eng, _ := newTestEngine(source, store)
	require.NoError(t, eng.Invalidate("nginx"))
	assert.Empty(t, store.entries)
}
