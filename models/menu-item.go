package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Image generation states for a menu item. Transitions are
// pending -> generating -> completed|failed; a new trigger restarts
// the cycle from generating.
const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type MenuItem struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID      `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Price        float64        `gorm:"not null" json:"price"`
	Description  string         `gorm:"size:1000" json:"description,omitempty"`
	Cuisine      string         `gorm:"size:100" json:"cuisine,omitempty"`
	Ingredients  datatypes.JSON `json:"ingredients,omitempty"`

	// ImageURL/ImageKey point at the last successfully generated image.
	// A failed regeneration leaves them untouched.
	ImageURL              string `gorm:"size:1024" json:"image_url,omitempty"`
	ImageKey              string `gorm:"size:1024" json:"image_key,omitempty"`
	ImageGenerationStatus string `gorm:"size:20;not null;default:'pending';index" json:"image_generation_status"`

	// GenerationAttempt is bumped on every trigger. Terminal status
	// updates only commit while the counter they started with is still
	// current, so a superseded run discards its result.
	GenerationAttempt int `gorm:"not null;default:0" json:"generation_attempt"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Restaurant *Restaurant `gorm:"foreignKey:RestaurantID" json:"restaurant,omitempty"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.ImageGenerationStatus == "" {
		m.ImageGenerationStatus = StatusPending
	}
	return nil
}
