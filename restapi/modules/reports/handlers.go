// Package reports handles collector inventory ingestion and host scans.
package reports

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetscan/fleetscan-backend/database"
	"github.com/fleetscan/fleetscan-backend/engine"
	"github.com/fleetscan/fleetscan-backend/model"
	"github.com/fleetscan/fleetscan-backend/util"
)

// PostReport stores an inventory report posted by a host collector.
func PostReport(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var report model.InventoryReport
		if err := c.BodyParser(&report); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(model.ReportResponse{
				Success: false,
				Message: "Invalid request body",
			})
		}
		if util.IsEmpty(report.Hostname) {
			return c.Status(fiber.StatusBadRequest).JSON(model.ReportResponse{
				Success: false,
				Message: "hostname is required",
			})
		}

		reportID, err := db.SaveReport(report)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(model.ReportResponse{
				Success: false,
				Message: err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(model.ReportResponse{
			Success:  true,
			Message:  "report stored",
			ReportID: reportID,
		})
	}
}

// ListReports returns recent report summaries, newest first.
func ListReports(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "10"))

		summaries, err := db.RecentReports(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(summaries)
	}
}

// ScanHost checks every package from the host's latest inventory against
// the vulnerability source. Cached entries answer immediately; the rest
// queue behind the engine's rate limiter, so large cold scans take a
// while by design.
func ScanHost(db database.DBConnection, eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hostname := c.Params("hostname")

		packages, err := db.LatestPackages(hostname)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if len(packages) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no inventory found for host",
			})
		}

		if limit, _ := strconv.Atoi(c.Query("limit", "0")); limit > 0 && limit < len(packages) {
			packages = packages[:limit]
		}

		response := model.ScanResponse{
			Hostname: hostname,
			Results:  []model.LookupResult{},
		}
		for _, pkg := range packages {
			result := eng.Check(c.Context(), pkg.Name, pkg.Version)
			response.Scanned++
			if result.Vulnerable {
				response.Vulnerable++
			}
			response.Results = append(response.Results, result)
		}
		response.Stats = eng.Stats()

		return c.JSON(response)
	}
}
