// Package dashboard defines the GraphQL types for the fleet dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
)

// DashboardOverviewType represents the high-level metrics for the top cards
var DashboardOverviewType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DashboardOverview",
	Fields: graphql.Fields{
		"total_hosts":         &graphql.Field{Type: graphql.Int},
		"total_reports":       &graphql.Field{Type: graphql.Int},
		"total_packages":      &graphql.Field{Type: graphql.Int},
		"vulnerable_packages": &graphql.Field{Type: graphql.Int},
	},
})

// VulnerablePackageType represents rows for the "Top Vulnerable" table
var VulnerablePackageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "VulnerablePackage",
	Fields: graphql.Fields{
		"package_name":    &graphql.Field{Type: graphql.String},
		"version":         &graphql.Field{Type: graphql.String},
		"cves_found":      &graphql.Field{Type: graphql.Int},
		"cvss_max":        &graphql.Field{Type: graphql.Float},
		"severity_rating": &graphql.Field{Type: graphql.String},
	},
})

// ReportSummaryType represents recent collector reports
var ReportSummaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ReportSummary",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.Int},
		"hostname":      &graphql.Field{Type: graphql.String},
		"ip":            &graphql.Field{Type: graphql.String},
		"os":            &graphql.Field{Type: graphql.String},
		"received_at":   &graphql.Field{Type: graphql.String},
		"package_count": &graphql.Field{Type: graphql.Int},
	},
})

// EngineStatsType represents the lookup engine counters
var EngineStatsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EngineStats",
	Fields: graphql.Fields{
		"total_queries":       &graphql.Field{Type: graphql.Int},
		"cache_hits":          &graphql.Field{Type: graphql.Int},
		"external_calls":      &graphql.Field{Type: graphql.Int},
		"total_matches_found": &graphql.Field{Type: graphql.Int},
		"uptime_seconds":      &graphql.Field{Type: graphql.Float},
	},
})
