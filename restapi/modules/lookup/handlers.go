// Package lookup exposes the vulnerability check endpoints.
package lookup

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetscan/fleetscan-backend/engine"
	"github.com/fleetscan/fleetscan-backend/model"
	"github.com/fleetscan/fleetscan-backend/util"
)

// PostCheck looks up a single package against the vulnerability source,
// serving from cache when fresh.
func PostCheck(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.CheckRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if util.IsEmpty(req.Name) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "name is required",
			})
		}

		result := eng.Check(c.Context(), req.Name, req.Version)
		return c.JSON(result)
	}
}

// GetStats returns the engine counter snapshot.
func GetStats(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(eng.Stats())
	}
}

// DeleteCacheEntry drops every cached result for a package name. The name
// arrives URL-encoded since display names carry spaces and parentheses.
func DeleteCacheEntry(eng *engine.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil || name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid package name",
			})
		}

		if err := eng.Invalidate(name); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(model.InvalidateResponse{
				Success: false,
				Message: err.Error(),
				Removed: name,
			})
		}

		return c.JSON(model.InvalidateResponse{
			Success: true,
			Message: "cache entries removed",
			Removed: name,
		})
	}
}
