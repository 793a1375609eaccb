// Package report defines types for Kafka event processing of host inventory events.
package report

import (
	"time"

	"github.com/fleetscan/fleetscan-backend/model"
)

// InventoryReportedEvent represents a host inventory report published to Kafka.
// Collectors that cannot reach the REST API directly publish through a broker
// instead.
type InventoryReportedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	Report model.InventoryReport `json:"report"`
}
