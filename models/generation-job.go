package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generation job states. A job is the durable record of one generation
// attempt; it survives process restarts, unlike a fired goroutine.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

type GenerationJob struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MenuItemID   uuid.UUID `gorm:"type:uuid;not null;index" json:"menu_item_id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`

	// Attempt is the menu item's generation counter at enqueue time.
	Attempt int    `gorm:"not null" json:"attempt"`
	Status  string `gorm:"size:20;not null;default:'queued';index" json:"status"`
	Error   string `gorm:"size:1024" json:"error,omitempty"`

	LockedAt  *time.Time `gorm:"index" json:"locked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (j *GenerationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
