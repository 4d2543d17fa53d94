package handler

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/foodlens/food-lens-server/models"
)

type createRestaurantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) CreateRestaurant(c *fiber.Ctx) error {
	var req createRestaurantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		return badRequest(c, "Name and email are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return badRequest(c, "Invalid email address")
	}

	restaurant := models.Restaurant{Name: req.Name, Email: req.Email}
	if err := h.db.Create(&restaurant).Error; err != nil {
		h.log.WithError(err).Error("failed to create restaurant")
		return internalError(c, "Failed to create restaurant")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"restaurant": restaurant,
		"message":    "Restaurant created successfully",
	})
}

func (h *Handler) ListRestaurants(c *fiber.Ctx) error {
	var restaurants []models.Restaurant
	if err := h.db.Order("created_at desc").Find(&restaurants).Error; err != nil {
		return internalError(c, "Failed to fetch restaurants")
	}
	return c.JSON(fiber.Map{"restaurants": restaurants})
}

func (h *Handler) GetRestaurant(c *fiber.Ctx) error {
	restaurantID, ok := parseUUID(c.Params("restaurantId"))
	if !ok {
		return badRequest(c, "Restaurant ID is required")
	}

	var restaurant models.Restaurant
	if err := h.db.First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Restaurant not found")
		}
		return internalError(c, "Failed to fetch restaurant")
	}

	return c.JSON(fiber.Map{"restaurant": restaurant})
}
