package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base holds the common columns shared by every persisted entity.
type Base struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// EnsureID assigns a fresh UUID when the entity has none yet.
func (b *Base) EnsureID() {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
}
