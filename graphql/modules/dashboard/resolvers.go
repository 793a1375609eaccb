package dashboard

import (
	"time"

	"github.com/fleetscan/fleetscan-backend/database"
	"github.com/fleetscan/fleetscan-backend/engine"
	"github.com/fleetscan/fleetscan-backend/util"
)

// ResolveOverview returns the top card counters.
func ResolveOverview(db database.DBConnection) (map[string]interface{}, error) {
	counts, err := db.Overview()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"total_hosts":         counts.Hosts,
		"total_reports":       counts.Reports,
		"total_packages":      counts.Packages,
		"vulnerable_packages": counts.VulnerablePackages,
	}, nil
}

// ResolveTopVulnerable returns the highest-severity cached packages.
// minSeverity names a rating ("LOW".."CRITICAL") and drops entries whose
// score falls below that rating's threshold; empty means no filter.
func ResolveTopVulnerable(db database.DBConnection, limit int, minSeverity string) ([]map[string]interface{}, error) {
	packages, err := db.TopVulnerable(limit)
	if err != nil {
		return nil, err
	}

	minScore := util.GetSeverityScore(minSeverity)
	results := []map[string]interface{}{}
	for _, pkg := range packages {
		if pkg.MaxSeverity < minScore {
			continue
		}
		results = append(results, map[string]interface{}{
			"package_name":    pkg.PackageName,
			"version":         pkg.Version,
			"cves_found":      pkg.MatchCount,
			"cvss_max":        pkg.MaxSeverity,
			"severity_rating": util.GetSeverityRating(pkg.MaxSeverity),
		})
	}
	return results, nil
}

// ResolveRecentReports returns the newest collector reports.
func ResolveRecentReports(db database.DBConnection, limit int) ([]map[string]interface{}, error) {
	reports, err := db.RecentReports(limit)
	if err != nil {
		return nil, err
	}

	results := []map[string]interface{}{}
	for _, report := range reports {
		results = append(results, map[string]interface{}{
			"id":            report.ID,
			"hostname":      report.Hostname,
			"ip":            report.IP,
			"os":            report.OS,
			"received_at":   report.ReceivedAt.Format(time.RFC3339),
			"package_count": report.PackageCount,
		})
	}
	return results, nil
}

// ResolveEngineStats returns the lookup engine counter snapshot.
func ResolveEngineStats(eng *engine.Engine) (map[string]interface{}, error) {
	stats := eng.Stats()
	return map[string]interface{}{
		"total_queries":       stats.TotalQueries,
		"cache_hits":          stats.CacheHits,
		"external_calls":      stats.ExternalCalls,
		"total_matches_found": stats.TotalMatchesFound,
		"uptime_seconds":      stats.UptimeSeconds,
	}, nil
}
