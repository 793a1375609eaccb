package dashboard

import (
	"github.com/graphql-go/graphql"

	"github.com/fleetscan/fleetscan-backend/database"
	"github.com/fleetscan/fleetscan-backend/engine"
)

// GetQueryFields returns the dashboard queries to be mounted in the root schema
func GetQueryFields(db database.DBConnection, eng *engine.Engine) graphql.Fields {
	return graphql.Fields{
		// Section 1: Top Cards (Overview)
		"dashboardOverview": &graphql.Field{
			Type: DashboardOverviewType,
			Resolve: func(_ graphql.ResolveParams) (interface{}, error) {
				return ResolveOverview(db)
			},
		},
		// Section 2: Tables (Top Vulnerable Packages)
		"topVulnerable": &graphql.Field{
			Type: graphql.NewList(VulnerablePackageType),
			Args: graphql.FieldConfigArgument{
				"limit":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				"minSeverity": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit := p.Args["limit"].(int)
				minSeverity := p.Args["minSeverity"].(string)
				return ResolveTopVulnerable(db, limit, minSeverity)
			},
		},
		// Section 3: Recent collector reports
		"recentReports": &graphql.Field{
			Type: graphql.NewList(ReportSummaryType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit := p.Args["limit"].(int)
				return ResolveRecentReports(db, limit)
			},
		},
		// Section 4: Lookup engine counters
		"engineStats": &graphql.Field{
			Type: EngineStatsType,
			Resolve: func(_ graphql.ResolveParams) (interface{}, error) {
				return ResolveEngineStats(eng)
			},
		},
	}
}
