package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/foodlens/food-lens-server/database"
	"github.com/foodlens/food-lens-server/storage"
)

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HealthDeep checks the database connection and storage configuration.
func (h *Handler) HealthDeep(c *fiber.Ctx) error {
	results := fiber.Map{}
	healthy := true

	if err := database.Ping(h.db); err != nil {
		healthy = false
		results["database"] = fiber.Map{"ok": false, "error": err.Error()}
	} else {
		results["database"] = fiber.Map{"ok": true}
	}

	if missing := storage.ValidateConfig(); len(missing) > 0 {
		healthy = false
		results["storage"] = fiber.Map{"ok": false, "missing": missing}
	} else {
		results["storage"] = fiber.Map{"ok": true}
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(fiber.Map{
		"success":   healthy,
		"results":   results,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
