package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foodlens/food-lens-server/advisor"
)

type aiQueryRequest struct {
	Query        string `json:"query"`
	RestaurantID string `json:"restaurantId"`
	DishContext  *struct {
		ItemID string `json:"itemId"`
		Name   string `json:"name"`
	} `json:"dishContext"`
}

// AIQuery answers a customer question about the restaurant's menu.
func (h *Handler) AIQuery(c *fiber.Ctx) error {
	var req aiQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	restaurantID, ok := parseUUID(req.RestaurantID)
	if req.Query == "" || !ok {
		return badRequest(c, "Missing required fields: query and restaurantId")
	}

	var dish *advisor.DishContext
	if req.DishContext != nil {
		dish = &advisor.DishContext{Name: req.DishContext.Name}
		if id, ok := parseUUID(req.DishContext.ItemID); ok {
			dish.ItemID = id
		}
	}

	answer, err := h.advisor.Query(c.UserContext(), restaurantID, req.Query, dish)
	if err != nil {
		h.log.WithError(err).Error("AI query failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to process AI query",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"textResponse": answer})
}
