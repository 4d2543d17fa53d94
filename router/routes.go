package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	handler "github.com/foodlens/food-lens-server/handlers"
)

func SetupRoutes(app *fiber.App, h *handler.Handler) {
	api := app.Group("/api", logger.New())

	api.Get("/health", h.Health)
	api.Get("/health/deep", h.HealthDeep)

	// Restaurants
	restaurants := api.Group("/restaurants")
	restaurants.Post("/", h.CreateRestaurant)
	restaurants.Get("/", h.ListRestaurants)
	restaurants.Post("/qr-code", h.GenerateQRCode)
	restaurants.Get("/:restaurantId", h.GetRestaurant)
	restaurants.Get("/:restaurantId/menu", h.CustomerMenu)

	// Menu items
	menu := api.Group("/menu")
	menu.Post("/", h.CreateMenuItem)
	menu.Get("/", h.ListMenuItems)
	menu.Get("/:itemId", h.GetMenuItem)
	menu.Put("/:itemId", h.UpdateMenuItem)
	menu.Delete("/:itemId", h.DeleteMenuItem)
	menu.Post("/:itemId/generate-image", h.TriggerGeneration)

	// Image generation pipeline
	api.Post("/generate-image", h.GenerateImage)
	api.Get("/generate-image", h.GenerateImageStatus)

	// AI advisor + TTS
	api.Post("/ai/query", h.AIQuery)
	api.Post("/tts", h.TTS)
}
