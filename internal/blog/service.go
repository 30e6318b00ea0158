package blog

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ServiceParams groups dependencies for the blog service.
type ServiceParams struct {
	Repo Repository
}

/// Service backs the marketing blog: public reads of published posts and the
// admin authoring surface.
type Service struct {
	repo Repository
}

// NewService builds a blog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// CreateInput is the authoring payload.
type CreateInput struct {
	Title     string   `json:"title" validate:"required,min=2,max=200"`
	Slug      string   `json:"slug" validate:"required,min=2,max=120"`
	Excerpt   *string  `json:"excerpt"`
	Content   string   `json:"content" validate:"required"`
	Tags      []string `json:"tags"`
	Published bool     `json:"published"`
}

// UpdateInput is the authoring update payload; nil fields are left untouched.
type UpdateInput struct {
	Title     *string  `json:"title" validate:"omitempty,min=2,max=200"`
	Excerpt   *string  `json:"excerpt"`
	Content   *string  `json:"content"`
	Tags      []string `json:"tags"`
	Published *bool    `json:"published"`
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.BlogPost, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if !slugRe.MatchString(slug) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase letters, digits and hyphens")
	}

	existing, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
	}

	post := &models.BlogPost{
		Title:     input.Title,
		Slug:      slug,
		Excerpt:   input.Excerpt,
		Content:   input.Content,
		Tags:      pq.StringArray(input.Tags),
		Published: input.Published,
	}
	if input.Published {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return post, nil
}

// GetPublishedBySlug serves the public blog page; drafts are invisible here.
func (s *Service) GetPublishedBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	post, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if post == nil || !post.Published {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return post, nil
}

func (s *Service) List(ctx context.Context, params ListQuery) ([]models.BlogPost, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.BlogPost, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		post.Title = *input.Title
	}
	if input.Excerpt != nil {
		post.Excerpt = input.Excerpt
	}
	if input.Content != nil {
		post.Content = *input.Content
	}
	if input.Tags != nil {
		post.Tags = pq.StringArray(input.Tags)
	}
	if input.Published != nil {
		if *input.Published && !post.Published {
			now := time.Now().UTC()
			post.PublishedAt = &now
		}
		post.Published = *input.Published
	}

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
