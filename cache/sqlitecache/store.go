// Package sqlitecache is the default cache backend: a single-file SQLite
// database with the records payload stored as JSON.
package sqlitecache

import (
	"database/sql"
	"encoding/json"
	"time"

	"golang.org/x/xerrors"

	"github.com/fleetscan/fleetscan-backend/model"
)

const createTable = `
CREATE TABLE IF NOT EXISTS cve_cache (
	package_name    TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	version         TEXT NOT NULL DEFAULT '',
	queried_at      TIMESTAMP NOT NULL,
	match_count     INTEGER NOT NULL DEFAULT 0,
	max_severity    REAL NOT NULL DEFAULT 0,
	records         TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (package_name, version)
);
CREATE INDEX IF NOT EXISTS idx_cve_cache_normalized ON cve_cache (normalized_name);
CREATE INDEX IF NOT EXISTS idx_cve_cache_queried ON cve_cache (queried_at);
`

// Store implements cache.Store on SQLite. The (package_name, version)
// primary key plus INSERT OR REPLACE gives the atomic upsert the engine
// requires.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// New creates a store over an open database handle and ensures the schema
// exists. ttl is the freshness window.
func New(db *sql.DB, ttl time.Duration) (*Store, error) {
	if _, err := db.Exec(createTable); err != nil {
		return nil, xerrors.Errorf("failed to create cache schema: %w", err)
	}
	return &Store{db: db, ttl: ttl}, nil
}

// IsFresh reports whether a cache entry exists for the key and was queried
// within the freshness window.
func (s *Store) IsFresh(name, version string) bool {
	var queriedAt time.Time
	err := s.db.QueryRow(
		`SELECT queried_at FROM cve_cache WHERE package_name = ? AND version = ?`,
		name, version,
	).Scan(&queriedAt)
	if err != nil {
		return false
	}
	return time.Since(queriedAt) < s.ttl
}

// Get returns the cached entry for the key, or nil when none exists.
func (s *Store) Get(name, version string) (*model.CacheEntry, error) {
	var (
		entry       model.CacheEntry
		recordsJSON string
	)
	err := s.db.QueryRow(
		`SELECT package_name, normalized_name, version, queried_at, match_count, max_severity, records
		 FROM cve_cache WHERE package_name = ? AND version = ?`,
		name, version,
	).Scan(&entry.PackageName, &entry.NormalizedName, &entry.Version,
		&entry.QueriedAt, &entry.MatchCount, &entry.MaxSeverity, &recordsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("failed to read cache entry: %w", err)
	}

	if err := json.Unmarshal([]byte(recordsJSON), &entry.Records); err != nil {
		return nil, xerrors.Errorf("failed to decode cached records: %w", err)
	}
	return &entry, nil
}

// Put inserts or replaces the entry for its key in one statement.
// MatchCount and MaxSeverity are stored as given; model.NewCacheEntry is
// the one place that derives them from the records.
func (s *Store) Put(entry *model.CacheEntry) error {
	queriedAt := entry.QueriedAt
	if queriedAt.IsZero() {
		queriedAt = time.Now().UTC()
	}
	records := entry.Records
	if records == nil {
		records = []model.VulnerabilityRecord{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return xerrors.Errorf("failed to encode records: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO cve_cache
		 (package_name, normalized_name, version, queried_at, match_count, max_severity, records)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.PackageName, entry.NormalizedName, entry.Version,
		queriedAt, entry.MatchCount, entry.MaxSeverity, string(recordsJSON),
	)
	if err != nil {
		return xerrors.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Invalidate deletes every entry for the package name.
func (s *Store) Invalidate(name string) error {
	if _, err := s.db.Exec(`DELETE FROM cve_cache WHERE package_name = ?`, name); err != nil {
		return xerrors.Errorf("failed to invalidate cache entries: %w", err)
	}
	return nil
}
