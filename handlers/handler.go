package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/foodlens/food-lens-server/advisor"
	"github.com/foodlens/food-lens-server/models"
	"github.com/foodlens/food-lens-server/pipeline"
	"github.com/foodlens/food-lens-server/storage"
)

// Pipeline is the slice of the generation service the HTTP layer needs.
type Pipeline interface {
	Trigger(ctx context.Context, restaurantID, itemID uuid.UUID) (*models.MenuItem, error)
	Run(ctx context.Context, req pipeline.RunRequest) (*storage.UploadResult, error)
}

// Advisor answers menu questions.
type Advisor interface {
	Query(ctx context.Context, restaurantID uuid.UUID, query string, dish *advisor.DishContext) (string, error)
}

// Synthesizer converts text to speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// ConnectionTester verifies the image model is reachable.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

type Handler struct {
	db           *gorm.DB
	pipeline     Pipeline
	uploader     storage.Uploader
	advisor      Advisor
	tts          Synthesizer
	gen          ConnectionTester
	log          *logrus.Logger
	autoGenerate bool
	appURL       string
}

type Config struct {
	DB           *gorm.DB
	Pipeline     Pipeline
	Uploader     storage.Uploader
	Advisor      Advisor
	TTS          Synthesizer
	Generator    ConnectionTester
	Log          *logrus.Logger
	AutoGenerate bool
	AppURL       string
}

func New(cfg Config) *Handler {
	return &Handler{
		db:           cfg.DB,
		pipeline:     cfg.Pipeline,
		uploader:     cfg.Uploader,
		advisor:      cfg.Advisor,
		tts:          cfg.TTS,
		gen:          cfg.Generator,
		log:          cfg.Log,
		autoGenerate: cfg.AutoGenerate,
		appURL:       cfg.AppURL,
	}
}

func parseUUID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	return id, err == nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}
