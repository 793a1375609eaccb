// Package report handles Kafka event processing for host inventory events.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/fleetscan/fleetscan-backend/model"
)

// ReportService defines the interface for inventory storage operations.
type ReportService interface {
	StoreReport(ctx context.Context, report model.InventoryReport) error
}

// HandleInventoryReportedWithService processes inventory report events from Kafka.
func HandleInventoryReportedWithService(
	ctx context.Context,
	msg []byte,
	service ReportService,
) error {
	var event InventoryReportedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("failed to unmarshal InventoryReportedEvent: %w", err)
	}

	if event.Report.Hostname == "" {
		return fmt.Errorf("invalid event: missing hostname")
	}

	log.Printf("Processing inventory report from %s (%d packages)",
		event.Report.Hostname, len(event.Report.Packages))

	if err := service.StoreReport(ctx, event.Report); err != nil {
		return fmt.Errorf("internal service error: %w", err)
	}

	log.Printf("Successfully processed inventory report from %s", event.Report.Hostname)
	return nil
}
