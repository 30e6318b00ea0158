package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tappy-hq/tappy-backend/pkg/enums"
)

// Subscriber links a customer to a plan on one of Tappy's platforms.
type Subscriber struct {
	ID           uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	PlatformID   uuid.UUID              `gorm:"column:platform_id;type:uuid;not null;index"`
	PlanID       uuid.UUID              `gorm:"column:plan_id;type:uuid;not null;index"`
	Status       enums.SubscriberStatus `gorm:"column:status;type:subscriber_status;not null;default:'active'"`
	StartDate    time.Time              `gorm:"column:start_date;not null"`
	CancelDate   *time.Time             `gorm:"column:cancel_date"`
	CancelReason *string                `gorm:"column:cancel_reason"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
