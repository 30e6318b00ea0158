package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentConfig stores per-provider webhook credentials. At most one row per
// provider is active at a time.
type PaymentConfig struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider      string    `gorm:"column:provider;not null;index"`
	WebhookSecret string    `gorm:"column:webhook_secret;not null"`
	Active        bool      `gorm:"column:active;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
