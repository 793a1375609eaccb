package util

import "strings"

// GetSeverityRating returns the severity rating for a given CVSS score
func GetSeverityRating(score float64) string {
	switch {
	case score == 0:
		return "NONE"
	case score < 4.0:
		return "LOW"
	case score < 7.0:
		return "MEDIUM"
	case score < 9.0:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}

// GetSeverityScore returns the lowest CVSS base score threshold for a given severity rating.
func GetSeverityScore(severity string) float64 {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case "NONE":
		return 0.0
	case "LOW":
		return 0.1
	case "MEDIUM":
		return 4.0
	case "HIGH":
		return 7.0
	case "CRITICAL":
		return 9.0
	default:
		return 0.0 // unknown severity defaults to 0.0
	}
}
