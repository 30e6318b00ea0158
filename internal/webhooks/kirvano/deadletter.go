package kirvano

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
)

// DeadLetterRepository keeps unprocessable deliveries for manual replay.
type DeadLetterRepository interface {
	WithTx(tx *gorm.DB) DeadLetterRepository
	Record(ctx context.Context, letter *models.WebhookDeadLetter) error
	List(ctx context.Context, provider string, limit int) ([]models.WebhookDeadLetter, error)
	MarkRetried(ctx context.Context, id uuid.UUID) error
}

type deadLetterRepository struct {
	db *gorm.DB
}

// NewDeadLetterRepository returns a dead letter repository bound to the
// provided database.
func NewDeadLetterRepository(db *gorm.DB) DeadLetterRepository {
	return &deadLetterRepository{db: db}
}

func (r *deadLetterRepository) WithTx(tx *gorm.DB) DeadLetterRepository {
	if tx == nil {
		return r
	}
	return &deadLetterRepository{db: tx}
}

// Record inserts the letter, ignoring redelivery of an already dead-lettered
// event (same provider + event id).
func (r *deadLetterRepository) Record(ctx context.Context, letter *models.WebhookDeadLetter) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
		DoNothing: true,
	}).Create(letter).Error
}

func (r *deadLetterRepository) List(ctx context.Context, provider string, limit int) ([]models.WebhookDeadLetter, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Model(&models.WebhookDeadLetter{})
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}

	var list []models.WebhookDeadLetter
	if err := query.Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *deadLetterRepository) MarkRetried(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookDeadLetter{}).
		Where("id = ?", id).
		Update("retried_at", time.Now().UTC()).Error
}
