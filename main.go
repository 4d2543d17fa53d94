package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/genai"

	"github.com/foodlens/food-lens-server/advisor"
	"github.com/foodlens/food-lens-server/config"
	"github.com/foodlens/food-lens-server/database"
	handler "github.com/foodlens/food-lens-server/handlers"
	"github.com/foodlens/food-lens-server/imagegen"
	"github.com/foodlens/food-lens-server/logging"
	"github.com/foodlens/food-lens-server/models"
	"github.com/foodlens/food-lens-server/pipeline"
	"github.com/foodlens/food-lens-server/router"
	"github.com/foodlens/food-lens-server/storage"
	"github.com/foodlens/food-lens-server/tts"
)

func main() {
	ctx := context.Background()
	log := logging.New()

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Errorf("Error closing the database connection: %v", err)
		}
	}()

	if err := database.Migrate(db,
		&models.Restaurant{},
		&models.MenuItem{},
		&models.GenerationJob{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	genaiClient, err := genai.NewClient(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to create genai client: %v", err)
	}

	uploader, err := storage.NewFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to create storage client: %v", err)
	}

	generator := imagegen.NewGeminiGenerator(genaiClient, log)
	pipe := pipeline.New(db, generator, uploader, log, pipeline.Options{})
	pipe.Start(ctx)

	h := handler.New(handler.Config{
		DB:           db,
		Pipeline:     pipe,
		Uploader:     uploader,
		Advisor:      advisor.New(genaiClient, db, log),
		TTS:          tts.New(),
		Generator:    generator,
		Log:          log,
		AutoGenerate: config.ConfigBool("AUTO_GENERATE_IMAGES", true),
		AppURL:       config.ConfigDefault("APP_URL", "http://localhost:3000"),
	})

	app := fiber.New(fiber.Config{
		BodyLimit: 8 * 1024 * 1024,
	})
	router.SetupRoutes(app, h)

	port := config.ConfigDefault("PORT", "3000")
	log.Infof("Server is listening at the port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
