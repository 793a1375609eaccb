// Package graphql assembles the root query schema from the feature modules.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/fleetscan/fleetscan-backend/database"
	"github.com/fleetscan/fleetscan-backend/engine"
	"github.com/fleetscan/fleetscan-backend/graphql/modules/dashboard"
)

var db database.DBConnection
var eng *engine.Engine

// InitDB stores the connections the resolvers use.
func InitDB(conn database.DBConnection, e *engine.Engine) {
	db = conn
	eng = e
}

// CreateSchema builds the root schema with every module's query fields.
func CreateSchema() (graphql.Schema, error) {
	fields := graphql.Fields{}

	for name, field := range dashboard.GetQueryFields(db, eng) {
		fields[name] = field
	}

	rootQuery := graphql.ObjectConfig{Name: "Query", Fields: fields}
	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(rootQuery),
	})
}
