package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BlogPost backs the marketing site's blog cards.
type BlogPost struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string         `gorm:"column:title;not null"`
	Slug        string         `gorm:"column:slug;not null;uniqueIndex"`
	Excerpt     *string        `gorm:"column:excerpt"`
	Content     string         `gorm:"column:content;not null"`
	Tags        pq.StringArray `gorm:"column:tags;type:text[];default:ARRAY[]::text[]"`
	Published   bool           `gorm:"column:published;not null;default:false"`
	PublishedAt *time.Time     `gorm:"column:published_at"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
