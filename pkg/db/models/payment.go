package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tappy-hq/tappy-backend/pkg/enums"
)

// Payment persists one Kirvano payment, keyed by the provider's own id.
type Payment struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID   string              `gorm:"column:external_id;not null;unique"`
	UserID       uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriberID *uuid.UUID          `gorm:"column:subscriber_id;type:uuid;index"`
	PlanID       uuid.UUID           `gorm:"column:plan_id;type:uuid;not null;index"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency     string              `gorm:"column:currency;not null;default:'BRL'"`
	Status       enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	// PaymentMethod holds a normalized value (pix/credit_card/debit_card) or
	// the raw provider string when unrecognized.
	PaymentMethod string          `gorm:"column:payment_method"`
	WebhookData   json.RawMessage `gorm:"column:webhook_data;type:jsonb"`
	PaymentDate   *time.Time      `gorm:"column:payment_date"`
	RefundDate    *time.Time      `gorm:"column:refund_date"`
	RefundReason  *string         `gorm:"column:refund_reason"`
	// LastEventAt is the provider timestamp of the newest event applied to
	// this row; stale deliveries must not overwrite newer state.
	LastEventAt time.Time `gorm:"column:last_event_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
