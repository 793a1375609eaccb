// Package model - API types for requests and responses
package model

// CheckRequest asks the engine to look up one package.
type CheckRequest struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ReportResponse returns the result of a collector report POST.
type ReportResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ReportID int64  `json:"report_id,omitempty"`
}

// InvalidateResponse returns the result of a cache invalidation.
type InvalidateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Removed string `json:"package"`
}

// EngineStats is a point-in-time copy of the engine counters for reporting.
type EngineStats struct {
	TotalQueries      int64   `json:"total_queries"`
	CacheHits         int64   `json:"cache_hits"`
	ExternalCalls     int64   `json:"external_calls"`
	TotalMatchesFound int64   `json:"total_matches_found"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// ScanResponse summarizes a batch scan over one host's latest inventory.
// Stats carries the engine counter snapshot taken after the scan.
type ScanResponse struct {
	Hostname   string         `json:"hostname"`
	Scanned    int            `json:"scanned"`
	Vulnerable int            `json:"vulnerable"`
	Results    []LookupResult `json:"results"`
	Stats      EngineStats    `json:"stats"`
}
