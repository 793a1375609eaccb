// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/fleetscan/fleetscan-backend/database"
	"github.com/fleetscan/fleetscan-backend/engine"
	"github.com/fleetscan/fleetscan-backend/restapi/modules/lookup"
	"github.com/fleetscan/fleetscan-backend/restapi/modules/reports"
)

// SetupRoutes configures all REST API routes and the GraphQL endpoint.
func SetupRoutes(app *fiber.App, db database.DBConnection, eng *engine.Engine, schema graphql.Schema) {
	// API Group /api/v1
	api := app.Group("/api/v1")

	// GraphQL Route - Mounted within the api group to inherit path prefixes
	api.Post("/graphql", GraphQLHandler(schema))

	// Vulnerability lookup
	api.Post("/check", lookup.PostCheck(eng))
	api.Get("/stats", lookup.GetStats(eng))
	api.Delete("/cache/:name", lookup.DeleteCacheEntry(eng))

	// Inventory reports
	api.Post("/reports", reports.PostReport(db))
	api.Get("/reports", reports.ListReports(db))
	api.Post("/hosts/:hostname/scan", reports.ScanHost(db, eng))

	log.Println("API routes initialized successfully")
}
