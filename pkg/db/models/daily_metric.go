package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyMetric aggregates webhook activity per platform and calendar day.
// The (platform_id, date) pair is the natural key; counters only ever grow.
type DailyMetric struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PlatformID          uuid.UUID       `gorm:"column:platform_id;type:uuid;not null;uniqueIndex:idx_daily_metrics_platform_date"`
	Date                time.Time       `gorm:"column:date;not null;uniqueIndex:idx_daily_metrics_platform_date"`
	Sales               int64           `gorm:"column:sales;not null;default:0"`
	Revenue             decimal.Decimal `gorm:"column:revenue;type:numeric(14,2);not null;default:0"`
	Refunds             int64           `gorm:"column:refunds;not null;default:0"`
	RefundAmount        decimal.Decimal `gorm:"column:refund_amount;type:numeric(14,2);not null;default:0"`
	NewSubscribers      int64           `gorm:"column:new_subscribers;not null;default:0"`
	CanceledSubscribers int64           `gorm:"column:canceled_subscribers;not null;default:0"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
