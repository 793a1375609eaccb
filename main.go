// package main provides the entry point for the fleetscan-backend
// microservice: inventory ingestion, CVE lookups with caching, and the
// dashboard GraphQL API.
package main

import (
	"context"
	"log"
	"time"

	"github.com/fleetscan/fleetscan-backend/cache"
	"github.com/fleetscan/fleetscan-backend/cache/arangocache"
	"github.com/fleetscan/fleetscan-backend/cache/sqlitecache"
	"github.com/fleetscan/fleetscan-backend/database"
	"github.com/fleetscan/fleetscan-backend/engine"
	"github.com/fleetscan/fleetscan-backend/internal/api"
	"github.com/fleetscan/fleetscan-backend/internal/kafka"
	"github.com/fleetscan/fleetscan-backend/nvd"
	"github.com/fleetscan/fleetscan-backend/util"
)

func main() {
	logger := database.InitLogger()

	// Initialize database connection
	dbPath := util.GetEnvDefault("DB_PATH", "fleetscan.db")
	db := database.InitializeDatabase(dbPath)

	ttl := time.Duration(util.GetEnvInt("CACHE_TTL_HOURS", 24)) * time.Hour

	// Cache backend selection
	var store cache.Store
	switch backend := util.GetEnvDefault("CACHE_BACKEND", "sqlite"); backend {
	case "arango":
		arangoStore, err := arangocache.New(arangocache.Config{
			URL:      util.GetEnvDefault("ARANGO_URL", "http://localhost:8529"),
			Username: util.GetEnvDefault("ARANGO_USER", "root"),
			Password: util.GetEnvDefault("ARANGO_PASS", "mypassword"),
			Database: util.GetEnvDefault("ARANGO_DB", "fleetscan"),
		}, ttl)
		if err != nil {
			log.Fatalf("Failed to initialize arango cache: %v", err)
		}
		store = arangoStore
	case "sqlite":
		sqliteStore, err := sqlitecache.New(db.DB, ttl)
		if err != nil {
			log.Fatalf("Failed to initialize sqlite cache: %v", err)
		}
		store = sqliteStore
	default:
		log.Fatalf("Unknown CACHE_BACKEND %q", backend)
	}

	// Optional extra keyword aliases
	var selector *engine.KeywordSelector
	if aliasPath := util.GetEnvDefault("ALIAS_CONFIG", ""); util.IsNotEmpty(aliasPath) {
		rules, err := engine.LoadAliasRules(aliasPath)
		if err != nil {
			log.Fatalf("Failed to load alias config %s: %v", aliasPath, err)
		}
		selector = engine.NewKeywordSelector(rules)
	}

	minInterval := time.Duration(util.GetEnvInt("NVD_MIN_INTERVAL", 5)) * time.Second

	source := nvd.NewClient(
		nvd.WithBaseURL(util.GetEnvDefault("NVD_BASE_URL", "https://services.nvd.nist.gov/rest/json/cves/2.0")),
	)

	eng := engine.NewEngine(engine.Config{MinInterval: minInterval}, source, store, selector, logger)

	// Optional Kafka ingestion for collectors that publish through a broker
	if util.IsNotEmpty(util.GetEnvDefault("KAFKA_BROKERS", "")) {
		if err := kafka.RunEventProcessor(context.Background(), db); err != nil {
			log.Fatalf("Failed to start Kafka event processor: %v", err)
		}
	}

	// Create Fiber app with REST and GraphQL routes
	app := api.NewFiberApp(db, eng)

	// Get port from environment or default to 3000
	port := util.GetEnvDefault("MS_PORT", "3000")

	// Start server
	log.Printf("Starting server on port %s", port)
	log.Printf("GraphQL endpoint available at /api/v1/graphql")
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
