package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookDeadLetter keeps unprocessable webhook deliveries for manual replay.
// The provider only sees a 200, so this row is the sole durable trace.
type WebhookDeadLetter struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider  string          `gorm:"column:provider;not null;uniqueIndex:idx_webhook_dlq_provider_event"`
	EventID   string          `gorm:"column:event_id;not null;uniqueIndex:idx_webhook_dlq_provider_event"`
	EventType string          `gorm:"column:event_type;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb"`
	Reason    string          `gorm:"column:reason;not null"`
	RetriedAt *time.Time      `gorm:"column:retried_at"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
