package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/foodlens/food-lens-server/models"
	"github.com/foodlens/food-lens-server/pipeline"
)

type generateImageRequest struct {
	ItemName     string `json:"itemName"`
	Description  string `json:"description"`
	Cuisine      string `json:"cuisine"`
	MenuItemID   string `json:"menuItemId"`
	RestaurantID string `json:"restaurantId"`
}

// GenerateImage is the synchronous pipeline entry point: generate,
// normalize and upload in one request, without touching item status.
func (h *Handler) GenerateImage(c *fiber.Ctx) error {
	var req generateImageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.ItemName == "" {
		return badRequest(c, "Item name is required")
	}

	restaurantID, okR := parseUUID(req.RestaurantID)
	menuItemID, okM := parseUUID(req.MenuItemID)
	if !okR || !okM {
		return badRequest(c, "Restaurant ID and Menu Item ID are required for secure storage")
	}

	result, err := h.pipeline.Run(context.Background(), pipeline.RunRequest{
		ItemName:     req.ItemName,
		Description:  req.Description,
		Cuisine:      req.Cuisine,
		MenuItemID:   menuItemID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		h.log.WithError(err).Error("image generation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"imageUrl": result.URL,
		"imageKey": result.Key,
	})
}

// GenerateImageStatus reports whether the image model is reachable.
func (h *Handler) GenerateImageStatus(c *fiber.Ctx) error {
	status := "connected"
	var errMsg string
	if err := h.gen.TestConnection(c.UserContext()); err != nil {
		status = "error"
		errMsg = err.Error()
	}
	return c.JSON(fiber.Map{
		"service": "image generation",
		"status":  status,
		"error":   errMsg,
	})
}

type triggerGenerationRequest struct {
	RestaurantID string `json:"restaurantId"`
}

// TriggerGeneration is the manual trigger/retry for one menu item. It
// verifies tenant ownership, flips the item to generating and enqueues
// a durable job; the response returns before the pipeline runs.
func (h *Handler) TriggerGeneration(c *fiber.Ctx) error {
	itemID, ok := parseUUID(c.Params("itemId"))
	if !ok {
		return badRequest(c, "Menu item ID is required")
	}

	var req triggerGenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restaurantID, ok := parseUUID(req.RestaurantID)
	if !ok {
		return badRequest(c, "Restaurant ID is required")
	}

	var restaurant models.Restaurant
	if err := h.db.First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Restaurant not found")
		}
		return internalError(c, "Failed to look up restaurant")
	}

	item, err := h.pipeline.Trigger(context.Background(), restaurantID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Menu item not found")
		}
		h.log.WithError(err).Error("failed to trigger generation")
		return internalError(c, "Failed to trigger image generation")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":  true,
		"status":   models.StatusGenerating,
		"menuItem": item,
	})
}
