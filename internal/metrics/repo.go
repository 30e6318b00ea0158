package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
)

// Delta carries the counter increments applied to one platform-day row.
// Zero-valued fields leave the stored counter untouched.
type Delta struct {
	Sales               int64
	Revenue             decimal.Decimal
	Refunds             int64
	RefundAmount        decimal.Decimal
	NewSubscribers      int64
	CanceledSubscribers int64
}

// Repository handles daily metric persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	IncrementDaily(ctx context.Context, platformID uuid.UUID, day time.Time, delta Delta) error
	FindDay(ctx context.Context, platformID uuid.UUID, day time.Time) (*models.DailyMetric, error)
	ListRange(ctx context.Context, params RangeQuery) ([]models.DailyMetric, error)
}

// RangeQuery selects metric rows over a date window, optionally per platform.
type RangeQuery struct {
	PlatformID *uuid.UUID
	From       time.Time
	To         time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a metrics repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// DayOf truncates a timestamp to UTC midnight, the bucket key for daily rows.
func DayOf(at time.Time) time.Time {
	at = at.UTC()
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
}

func (r *repository) IncrementDaily(ctx context.Context, platformID uuid.UUID, day time.Time, delta Delta) error {
	row := models.DailyMetric{
		ID:                  uuid.New(),
		PlatformID:          platformID,
		Date:                DayOf(day),
		Sales:               delta.Sales,
		Revenue:             delta.Revenue,
		Refunds:             delta.Refunds,
		RefundAmount:        delta.RefundAmount,
		NewSubscribers:      delta.NewSubscribers,
		CanceledSubscribers: delta.CanceledSubscribers,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "platform_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"sales":                gorm.Expr("daily_metrics.sales + ?", delta.Sales),
			"revenue":              gorm.Expr("daily_metrics.revenue + ?", delta.Revenue),
			"refunds":              gorm.Expr("daily_metrics.refunds + ?", delta.Refunds),
			"refund_amount":        gorm.Expr("daily_metrics.refund_amount + ?", delta.RefundAmount),
			"new_subscribers":      gorm.Expr("daily_metrics.new_subscribers + ?", delta.NewSubscribers),
			"canceled_subscribers": gorm.Expr("daily_metrics.canceled_subscribers + ?", delta.CanceledSubscribers),
			"updated_at":           time.Now().UTC(),
		}),
	}).Create(&row).Error
}

func (r *repository) FindDay(ctx context.Context, platformID uuid.UUID, day time.Time) (*models.DailyMetric, error) {
	var metric models.DailyMetric
	if err := r.db.WithContext(ctx).
		Where("platform_id = ? AND date = ?", platformID, DayOf(day)).
		First(&metric).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &metric, nil
}

func (r *repository) ListRange(ctx context.Context, params RangeQuery) ([]models.DailyMetric, error) {
	query := r.db.WithContext(ctx).Model(&models.DailyMetric{}).
		Where("date >= ? AND date <= ?", DayOf(params.From), DayOf(params.To))
	if params.PlatformID != nil {
		query = query.Where("platform_id = ?", *params.PlatformID)
	}

	var list []models.DailyMetric
	if err := query.Order("date ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
