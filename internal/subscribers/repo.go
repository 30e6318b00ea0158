package subscribers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	"github.com/tappy-hq/tappy-backend/pkg/enums"
)

// Repository handles subscriber persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscriber *models.Subscriber) error
	Update(ctx context.Context, subscriber *models.Subscriber) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscriber, error)
	FindByUserAndPlan(ctx context.Context, userID, planID uuid.UUID) (*models.Subscriber, error)
	List(ctx context.Context, params ListQuery) ([]models.Subscriber, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListQuery configures subscriber list queries.
type ListQuery struct {
	Status     *enums.SubscriberStatus
	PlatformID *uuid.UUID
	PlanID     *uuid.UUID
	Limit      int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscriber repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, subscriber *models.Subscriber) error {
	return r.db.WithContext(ctx).Create(subscriber).Error
}

func (r *repository) Update(ctx context.Context, subscriber *models.Subscriber) error {
	return r.db.WithContext(ctx).Save(subscriber).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&subscriber).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

func (r *repository) FindByUserAndPlan(ctx context.Context, userID, planID uuid.UUID) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND plan_id = ?", userID, planID).
		Order("created_at DESC").
		First(&subscriber).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.Subscriber, error) {
	limit := params.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := r.db.WithContext(ctx).Model(&models.Subscriber{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.PlatformID != nil {
		query = query.Where("platform_id = ?", *params.PlatformID)
	}
	if params.PlanID != nil {
		query = query.Where("plan_id = ?", *params.PlanID)
	}

	var list []models.Subscriber
	if err := query.Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Subscriber{}).Error
}
