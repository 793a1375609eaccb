// Package services provides internal service implementations for the fleetscan backend.
package services

import (
	"context"
	"log"

	"github.com/fleetscan/fleetscan-backend/database"
	report "github.com/fleetscan/fleetscan-backend/events/modules/reports"
	"github.com/fleetscan/fleetscan-backend/model"
)

// ReportServiceWrapper implements report.ReportService
type ReportServiceWrapper struct {
	DB database.DBConnection
}

// StoreReport persists an inventory report received over the event bus.
func (s *ReportServiceWrapper) StoreReport(_ context.Context, inventory model.InventoryReport) error {
	reportID, err := s.DB.SaveReport(inventory)
	if err != nil {
		return err
	}
	log.Printf("Stored inventory report %d from %s", reportID, inventory.Hostname)
	return nil
}

// Ensure compile-time interface check
var _ report.ReportService = (*ReportServiceWrapper)(nil)
