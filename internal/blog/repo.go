package blog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
)

// Repository handles blog post persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	List(ctx context.Context, params ListQuery) ([]models.BlogPost, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListQuery configures blog post list queries.
type ListQuery struct {
	PublishedOnly bool
	Tag           string
	Limit         int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a blog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *repository) Update(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&post).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	if slug == "" {
		return nil, nil
	}
	var post models.BlogPost
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&post).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.BlogPost, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := r.db.WithContext(ctx).Model(&models.BlogPost{})
	if params.PublishedOnly {
		query = query.Where("published = true")
	}
	if params.Tag != "" {
		query = query.Where("? = ANY(tags)", params.Tag)
	}

	var list []models.BlogPost
	if err := query.Order("published_at DESC NULLS LAST, created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.BlogPost{}).Error
}
