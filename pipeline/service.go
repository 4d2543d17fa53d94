package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/foodlens/food-lens-server/imagegen"
	"github.com/foodlens/food-lens-server/imageproc"
	"github.com/foodlens/food-lens-server/models"
	"github.com/foodlens/food-lens-server/storage"
)

// Service owns the image_generation_status state machine and sequences
// generation, normalization and upload for menu items. Work is recorded
// in a job table so a triggered generation survives process restarts.
type Service struct {
	db    *gorm.DB
	gen   imagegen.Generator
	store storage.Uploader
	log   *logrus.Logger

	workers       int
	pollInterval  time.Duration
	sweepInterval time.Duration
	generatingTTL time.Duration
}

// Options tune the background worker; zero values take defaults.
type Options struct {
	Workers       int
	PollInterval  time.Duration
	SweepInterval time.Duration
	GeneratingTTL time.Duration
}

func New(db *gorm.DB, gen imagegen.Generator, store storage.Uploader, log *logrus.Logger, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.GeneratingTTL <= 0 {
		opts.GeneratingTTL = 5 * time.Minute
	}

	return &Service{
		db:            db,
		gen:           gen,
		store:         store,
		log:           log,
		workers:       opts.Workers,
		pollInterval:  opts.PollInterval,
		sweepInterval: opts.SweepInterval,
		generatingTTL: opts.GeneratingTTL,
	}
}

// Trigger starts a generation attempt for a menu item: bumps the attempt
// counter, flips status to generating so the UI can show a spinner
// immediately, and enqueues a durable job, all in one transaction.
// Returns gorm.ErrRecordNotFound if the item is not owned by the tenant.
func (s *Service) Trigger(ctx context.Context, restaurantID, itemID uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND restaurant_id = ?", itemID, restaurantID).First(&item).Error; err != nil {
			return err
		}

		item.GenerationAttempt++
		item.ImageGenerationStatus = models.StatusGenerating

		if err := tx.Model(&models.MenuItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"generation_attempt":      item.GenerationAttempt,
			"image_generation_status": models.StatusGenerating,
		}).Error; err != nil {
			return err
		}

		job := models.GenerationJob{
			MenuItemID:   item.ID,
			RestaurantID: restaurantID,
			Attempt:      item.GenerationAttempt,
			Status:       models.JobQueued,
		}
		return tx.Create(&job).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"menu_item_id": item.ID,
		"attempt":      item.GenerationAttempt,
	}).Info("generation triggered")

	return &item, nil
}

// RunRequest is one synchronous pass through the pipeline:
// prompt -> model -> normalize -> upload. It does not touch item status.
type RunRequest struct {
	ItemName     string
	Description  string
	Cuisine      string
	MenuItemID   uuid.UUID
	RestaurantID uuid.UUID
}

func (s *Service) Run(ctx context.Context, req RunRequest) (*storage.UploadResult, error) {
	img, err := s.gen.GenerateMenuItemImage(ctx, imagegen.Request{
		ItemName:    req.ItemName,
		Description: req.Description,
		Cuisine:     req.Cuisine,
	})
	if err != nil {
		return nil, err
	}

	data, mime, err := imageproc.Normalize(img.Data, img.MIME)
	if err != nil {
		return nil, fmt.Errorf("normalize generated image: %w", err)
	}

	key := storage.BuildImageKey(req.RestaurantID, req.MenuItemID, extForMIME(mime))
	result, err := s.store.Upload(ctx, data, key, mime)
	if err != nil {
		return nil, fmt.Errorf("upload generated image: %w", err)
	}
	return result, nil
}

func extForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
