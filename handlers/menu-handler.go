package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/foodlens/food-lens-server/models"
	"github.com/foodlens/food-lens-server/storage"
)

type createMenuItemRequest struct {
	RestaurantID string   `json:"restaurantId"`
	Name         string   `json:"name"`
	Price        *float64 `json:"price"`
	Description  string   `json:"description"`
	Cuisine      string   `json:"cuisine"`
	Ingredients  []string `json:"ingredients"`
}

// CreateMenuItem creates an item in the pending state and, when
// auto-generation is on, immediately triggers the image pipeline. The
// response never waits for generation to finish.
func (h *Handler) CreateMenuItem(c *fiber.Ctx) error {
	var req createMenuItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	restaurantID, ok := parseUUID(req.RestaurantID)
	if !ok {
		return badRequest(c, "Restaurant ID is required")
	}
	if strings.TrimSpace(req.Name) == "" || req.Price == nil {
		return badRequest(c, "Name and price are required")
	}
	if *req.Price < 0 {
		return badRequest(c, "Price must be a valid positive number")
	}

	var restaurant models.Restaurant
	if err := h.db.First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Restaurant not found")
		}
		return internalError(c, "Failed to look up restaurant")
	}

	item := models.MenuItem{
		RestaurantID:          restaurantID,
		Name:                  strings.TrimSpace(req.Name),
		Price:                 *req.Price,
		Description:           strings.TrimSpace(req.Description),
		Cuisine:               strings.TrimSpace(req.Cuisine),
		ImageGenerationStatus: models.StatusPending,
	}
	if len(req.Ingredients) > 0 {
		raw, err := json.Marshal(req.Ingredients)
		if err != nil {
			return badRequest(c, "Invalid ingredients")
		}
		item.Ingredients = datatypes.JSON(raw)
	}

	if err := h.db.Create(&item).Error; err != nil {
		h.log.WithError(err).Error("failed to create menu item")
		return internalError(c, "Failed to create menu item")
	}

	if h.autoGenerate {
		if triggered, err := h.pipeline.Trigger(context.Background(), restaurantID, item.ID); err != nil {
			h.log.WithError(err).WithField("menu_item_id", item.ID).
				Warn("auto-trigger failed, item stays pending")
		} else {
			item = *triggered
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"menuItem": item,
		"message":  "Menu item created successfully",
	})
}

// ListMenuItems is the owner-facing listing, newest first.
func (h *Handler) ListMenuItems(c *fiber.Ctx) error {
	restaurantID, ok := parseUUID(c.Query("restaurantId"))
	if !ok {
		return badRequest(c, "Restaurant ID is required")
	}

	var items []models.MenuItem
	if err := h.db.Where("restaurant_id = ?", restaurantID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return internalError(c, "Failed to fetch menu items")
	}

	return c.JSON(fiber.Map{"menuItems": items})
}

// CustomerMenu is the public menu for a restaurant.
func (h *Handler) CustomerMenu(c *fiber.Ctx) error {
	restaurantID, ok := parseUUID(c.Params("restaurantId"))
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

	var items []models.MenuItem
	if err := h.db.Where("restaurant_id = ?", restaurantID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return internalError(c, "Failed to fetch menu items")
	}

	return c.JSON(fiber.Map{
		"restaurant": restaurant,
		"menuItems":  items,
	})
}

func (h *Handler) GetMenuItem(c *fiber.Ctx) error {
	itemID, ok := parseUUID(c.Params("itemId"))
	if !ok {
		return badRequest(c, "Menu item ID is required")
	}

	var item models.MenuItem
	if err := h.db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Menu item not found")
		}
		return internalError(c, "Failed to fetch menu item")
	}

	return c.JSON(fiber.Map{"menuItem": item})
}

type updateMenuItemRequest struct {
	RestaurantID string   `json:"restaurantId"`
	Name         *string  `json:"name"`
	Price        *float64 `json:"price"`
	Description  *string  `json:"description"`
	Cuisine      *string  `json:"cuisine"`
	Ingredients  []string `json:"ingredients"`
}

func (h *Handler) UpdateMenuItem(c *fiber.Ctx) error {
	itemID, ok := parseUUID(c.Params("itemId"))
	if !ok {
		return badRequest(c, "Menu item ID is required")
	}

	var req updateMenuItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	restaurantID, ok := parseUUID(req.RestaurantID)
	if !ok {
		return badRequest(c, "Restaurant ID is required")
	}

	var item models.MenuItem
	if err := h.db.Where("id = ? AND restaurant_id = ?", itemID, restaurantID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Menu item not found")
		}
		return internalError(c, "Failed to fetch menu item")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return badRequest(c, "Name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return badRequest(c, "Price must be a valid positive number")
		}
		updates["price"] = *req.Price
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Cuisine != nil {
		updates["cuisine"] = strings.TrimSpace(*req.Cuisine)
	}
	if req.Ingredients != nil {
		raw, err := json.Marshal(req.Ingredients)
		if err != nil {
			return badRequest(c, "Invalid ingredients")
		}
		updates["ingredients"] = datatypes.JSON(raw)
	}

	if len(updates) > 0 {
		if err := h.db.Model(&item).Updates(updates).Error; err != nil {
			return internalError(c, "Failed to update menu item")
		}
	}

	return c.JSON(fiber.Map{
		"menuItem": item,
		"message":  "Menu item updated successfully",
	})
}

// DeleteMenuItem removes the item unconditionally; it does not wait for
// an in-flight generation. The stored image object is deleted best-effort.
func (h *Handler) DeleteMenuItem(c *fiber.Ctx) error {
	itemID, ok := parseUUID(c.Params("itemId"))
	if !ok {
		return badRequest(c, "Menu item ID is required")
	}
	restaurantID, ok := parseUUID(c.Query("restaurantId"))
	if !ok {
		return badRequest(c, "Restaurant ID is required")
	}

	var item models.MenuItem
	if err := h.db.Where("id = ? AND restaurant_id = ?", itemID, restaurantID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Menu item not found")
		}
		return internalError(c, "Failed to fetch menu item")
	}

	if err := h.db.Delete(&item).Error; err != nil {
		return internalError(c, "Failed to delete menu item")
	}

	key := item.ImageKey
	if key == "" {
		key = storage.ExtractKey(item.ImageURL)
	}
	if key != "" && h.uploader != nil {
		if err := h.uploader.Delete(context.Background(), key); err != nil {
			h.log.WithError(err).WithField("key", key).Warn("failed to delete stored image")
		}
	}

	return c.JSON(fiber.Map{"message": "Menu item deleted successfully"})
}
