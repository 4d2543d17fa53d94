package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/foodlens/food-lens-server/models"
	"github.com/foodlens/food-lens-server/storage"
)

type qrCodeRequest struct {
	RestaurantID string `json:"restaurantId"`
}

// GenerateQRCode renders a QR code for the restaurant's public menu URL,
// uploads it through the storage layer and persists the resulting URL.
func (h *Handler) GenerateQRCode(c *fiber.Ctx) error {
	var req qrCodeRequest
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

	menuURL := fmt.Sprintf("%s/menu/%s", h.appURL, restaurant.ID)

	png, err := qrcode.Encode(menuURL, qrcode.Medium, 512)
	if err != nil {
		h.log.WithError(err).Error("failed to encode QR code")
		return internalError(c, "Failed to generate QR code")
	}

	key := storage.BuildQRKey(restaurant.ID)
	result, err := h.uploader.Upload(context.Background(), png, key, "image/png")
	if err != nil {
		h.log.WithError(err).Error("failed to upload QR code")
		return internalError(c, "Failed to upload QR code")
	}

	if err := h.db.Model(&restaurant).Update("qr_code_url", result.URL).Error; err != nil {
		return internalError(c, "Failed to save QR code URL")
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"qrCodeUrl": result.URL,
		"menuUrl":   menuURL,
	})
}
