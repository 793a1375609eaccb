// Package model - shared data types for the fleetscan backend
package model

import "time"

// AffectedRange describes one set of version boundaries under which a
// vulnerability applies. Any of the four boundaries may be absent.
type AffectedRange struct {
	StartIncluding string `json:"start_including,omitempty"`
	StartExcluding string `json:"start_excluding,omitempty"`
	EndIncluding   string `json:"end_including,omitempty"`
	EndExcluding   string `json:"end_excluding,omitempty"`
}

// IsEmpty reports whether no boundary is set at all.
func (r AffectedRange) IsEmpty() bool {
	return r.StartIncluding == "" && r.StartExcluding == "" &&
		r.EndIncluding == "" && r.EndExcluding == ""
}

// VulnerabilityRecord is a single CVE as stored in the cache and returned
// to callers. Severity carries the CVSS base score, v3 preferred over v2.
type VulnerabilityRecord struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	Severity       float64         `json:"cvss"`
	AffectedRanges []AffectedRange `json:"affected_ranges,omitempty"`
	Published      time.Time       `json:"published,omitempty"`
}

// CacheEntry is one cached lookup result, keyed by (package_name, version).
// Records is the source of truth; MatchCount and MaxSeverity are derived
// from it in NewCacheEntry and never mutated independently.
type CacheEntry struct {
	PackageName    string                `json:"package_name"`
	NormalizedName string                `json:"normalized_name"`
	Version        string                `json:"version"`
	QueriedAt      time.Time             `json:"queried_at"`
	MatchCount     int                   `json:"match_count"`
	MaxSeverity    float64               `json:"max_severity"`
	Records        []VulnerabilityRecord `json:"records"`
}

// NewCacheEntry builds an entry stamped with the current time, deriving
// MatchCount and MaxSeverity from the records. Stores persist these
// fields as-is, so this is the single place the derivation lives.
func NewCacheEntry(name, normalized, version string, records []VulnerabilityRecord) *CacheEntry {
	entry := &CacheEntry{
		PackageName:    name,
		NormalizedName: normalized,
		Version:        version,
		QueriedAt:      time.Now().UTC(),
		MatchCount:     len(records),
		Records:        records,
	}
	for _, rec := range records {
		if rec.Severity > entry.MaxSeverity {
			entry.MaxSeverity = rec.Severity
		}
	}
	return entry
}

// LookupResult is the engine's answer for a single package check.
type LookupResult struct {
	Package        string                `json:"package"`
	Version        string                `json:"version,omitempty"`
	FromCache      bool                  `json:"cached"`
	MatchCount     int                   `json:"cves_found"`
	MaxSeverity    float64               `json:"cvss_max"`
	SeverityRating string                `json:"severity_rating"`
	Records        []VulnerabilityRecord `json:"cves"`
	Vulnerable     bool                  `json:"vulnerable"`
	// VersionMatches counts records whose affected ranges cover the
	// reported version. Only populated when a version was supplied.
	VersionMatches int `json:"version_matches,omitempty"`
}
