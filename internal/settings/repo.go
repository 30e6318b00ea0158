package settings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
)

// Repository handles payment provider configuration persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cfg *models.PaymentConfig) error
	Update(ctx context.Context, cfg *models.PaymentConfig) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentConfig, error)
	FindActiveByProvider(ctx context.Context, provider string) (*models.PaymentConfig, error)
	ListByProvider(ctx context.Context, provider string) ([]models.PaymentConfig, error)
	DeactivateProvider(ctx context.Context, provider string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cfg *models.PaymentConfig) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *repository) Update(ctx context.Context, cfg *models.PaymentConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentConfig, error) {
	var cfg models.PaymentConfig
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&cfg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) FindActiveByProvider(ctx context.Context, provider string) (*models.PaymentConfig, error) {
	if provider == "" {
		return nil, nil
	}
	var cfg models.PaymentConfig
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND active = true", provider).
		Order("updated_at DESC").
		First(&cfg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) ListByProvider(ctx context.Context, provider string) ([]models.PaymentConfig, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentConfig{})
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}

	var list []models.PaymentConfig
	if err := query.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) DeactivateProvider(ctx context.Context, provider string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentConfig{}).
		Where("provider = ? AND active", provider).
		Update("active", false).Error
}
