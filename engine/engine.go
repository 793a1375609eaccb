package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/fleetscan/fleetscan-backend/cache"
	"github.com/fleetscan/fleetscan-backend/model"
	"github.com/fleetscan/fleetscan-backend/util"
)

// ErrRateLimited is returned by a Source when the remote service signaled
// throttling. It is the only error class the engine retries; anything else
// abandons the keyword immediately.
var ErrRateLimited = errors.New("vulnerability source rate limited")

// Source is the abstract remote lookup capability: given a keyword,
// return a page of candidate vulnerability records. Transport, auth and
// wire schema are the implementation's concern; per-request timeouts too.
type Source interface {
	Search(ctx context.Context, keyword string, pageSize int) ([]model.VulnerabilityRecord, error)
}

// SlotLimiter grants timed slots for outbound queries.
type SlotLimiter interface {
	WaitForSlot()
}

// Config tunes the engine. Zero values mean defaults.
type Config struct {
	// MinInterval is the spacing between outbound queries (default 5s).
	MinInterval time.Duration
	// MaxRetries bounds attempts per keyword on throttling (default 3).
	MaxRetries int
	// RetryBaseDelay is the first backoff delay, doubling per attempt
	// (default 1s).
	RetryBaseDelay time.Duration
	// PageSize is the result page requested per query (default 50).
	PageSize int
	// MaxRecords caps the records kept per lookup (default 50).
	MaxRecords int
}

func (c *Config) applyDefaults() {
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.MaxRecords <= 0 {
		c.MaxRecords = 50
	}
}

// Engine composes normalization, keyword selection, rate limiting, the
// vulnerability source and the result cache into the single Check entry
// point. All mutable state (limiter timestamp, counters) lives on the
// instance.
type Engine struct {
	cfg      Config
	source   Source
	store    cache.Store
	selector *KeywordSelector
	limiter  SlotLimiter
	stats    *Statistics
	logger   *zap.Logger
}

// NewEngine wires an engine. selector may be nil for the default alias
// table, logger may be nil for no logging.
func NewEngine(cfg Config, source Source, store cache.Store, selector *KeywordSelector, logger *zap.Logger) *Engine {
	cfg.applyDefaults()
	if selector == nil {
		selector = NewKeywordSelector(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		store:    store,
		selector: selector,
		limiter:  NewRateLimiter(cfg.MinInterval),
		stats:    NewStatistics(),
		logger:   logger,
	}
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() model.EngineStats {
	return e.stats.Snapshot()
}

// Invalidate drops every cached entry for the package name. Callers
// renaming a package's canonical identity invalidate then re-check.
func (e *Engine) Invalidate(name string) error {
	return e.store.Invalidate(name)
}

// Check looks up one package. Fresh cached results short-circuit; stale or
// missing entries trigger rate-limited keyword queries against the source,
// and the merged result is cached, including the zero-match outcome.
// Degenerate input (a name that normalizes to nothing usable) returns an
// empty result without querying or caching. Check never fails the caller:
// every error class is recovered locally and surfaced in logs only.
func (e *Engine) Check(ctx context.Context, name, version string) model.LookupResult {
	e.stats.totalQueries.Add(1)

	if e.store.IsFresh(name, version) {
		entry, err := e.store.Get(name, version)
		if err == nil && entry != nil {
			e.stats.cacheHits.Add(1)
			e.stats.totalMatches.Add(int64(entry.MatchCount))
			return e.buildResult(entry, true, name, version)
		}
		if err != nil {
			e.logger.Warn("cache read failed, treating as miss",
				zap.String("package", name), zap.Error(err))
		}
	}

	keywords := e.selector.SelectKeywords(name)
	if len(keywords) == 0 {
		e.logger.Debug("no usable keywords, skipping lookup", zap.String("package", name))
		return model.LookupResult{
			Package:        name,
			Version:        version,
			SeverityRating: util.GetSeverityRating(0),
			Records:        []model.VulnerabilityRecord{},
		}
	}

	records := e.search(ctx, keywords)

	entry := model.NewCacheEntry(name, Normalize(name), version, records)

	if err := e.store.Put(entry); err != nil {
		// A storage outage degrades caching, not the immediate answer.
		e.logger.Warn("cache write failed",
			zap.String("package", name), zap.String("version", version), zap.Error(err))
	}

	e.stats.totalMatches.Add(int64(len(records)))
	return e.buildResult(entry, false, name, version)
}

// search tries keywords strictly in order, merging records by id with
// first occurrence winning, and stops as soon as any keyword produced
// matches: conserving rate-limited quota beats exhaustive recall.
func (e *Engine) search(ctx context.Context, keywords []string) []model.VulnerabilityRecord {
	seen := make(map[string]struct{})
	var records []model.VulnerabilityRecord

	for _, keyword := range keywords {
		found, queried := e.searchKeyword(ctx, keyword)
		if queried {
			e.stats.externalCalls.Add(1)
		}
		for _, rec := range found {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			records = append(records, rec)
		}
		if len(records) > 0 {
			e.logger.Debug("matches found, stopping keyword search",
				zap.String("keyword", keyword), zap.Int("records", len(records)))
			break
		}
	}

	if len(records) > e.cfg.MaxRecords {
		records = records[:e.cfg.MaxRecords]
	}
	return records
}

// searchKeyword performs one logical query: up to MaxRetries attempts on
// throttling with exponential backoff, each attempt consuming a limiter
// slot. A transport error abandons the keyword immediately. The second
// return value reports whether at least one request was actually sent.
func (e *Engine) searchKeyword(ctx context.Context, keyword string) ([]model.VulnerabilityRecord, bool) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.RetryBaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	bo.Reset()

	queried := false
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		e.limiter.WaitForSlot()
		queried = true

		records, err := e.source.Search(ctx, keyword, e.cfg.PageSize)
		if err == nil {
			return records, queried
		}
		if !errors.Is(err, ErrRateLimited) {
			e.logger.Warn("vulnerability source query failed",
				zap.String("keyword", keyword), zap.Error(err))
			return nil, queried
		}
		if attempt < e.cfg.MaxRetries {
			delay := bo.NextBackOff()
			e.logger.Warn("rate limited by vulnerability source, backing off",
				zap.String("keyword", keyword),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", e.cfg.MaxRetries))
			time.Sleep(delay)
		}
	}

	e.logger.Warn("rate limit retries exhausted, abandoning keyword",
		zap.String("keyword", keyword))
	return nil, queried
}

func (e *Engine) buildResult(entry *model.CacheEntry, fromCache bool, name, version string) model.LookupResult {
	result := model.LookupResult{
		Package:        name,
		Version:        version,
		FromCache:      fromCache,
		MatchCount:     entry.MatchCount,
		MaxSeverity:    entry.MaxSeverity,
		SeverityRating: util.GetSeverityRating(entry.MaxSeverity),
		Records:        entry.Records,
		Vulnerable:     entry.MatchCount > 0,
	}
	if result.Records == nil {
		result.Records = []model.VulnerabilityRecord{}
	}
	if version != "" {
		ecosystem := Ecosystem(name)
		for _, rec := range entry.Records {
			if util.IsVersionAffectedAny(version, rec.AffectedRanges, ecosystem) {
				result.VersionMatches++
			}
		}
	}
	return result
}
