package platforms

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
)

// Repository handles platform persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, platform *models.Platform) error
	Update(ctx context.Context, platform *models.Platform) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Platform, error)
	FindBySlug(ctx context.Context, slug string) (*models.Platform, error)
	List(ctx context.Context, activeOnly bool) ([]models.Platform, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a platform repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, platform *models.Platform) error {
	return r.db.WithContext(ctx).Create(platform).Error
}

func (r *repository) Update(ctx context.Context, platform *models.Platform) error {
	return r.db.WithContext(ctx).Save(platform).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Platform, error) {
	var platform models.Platform
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&platform).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &platform, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Platform, error) {
	if slug == "" {
		return nil, nil
	}
	var platform models.Platform
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&platform).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &platform, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.Platform, error) {
	query := r.db.WithContext(ctx).Model(&models.Platform{})
	if activeOnly {
		query = query.Where("active = true")
	}

	var list []models.Platform
	if err := query.Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Platform{}).Error
}
