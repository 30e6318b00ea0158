package platforms

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ServiceParams groups dependencies for the platform service.
type ServiceParams struct {
	Repo Repository
}

// Service backs the admin platform CRUD surface.
type Service struct {
	repo Repository
}

// NewService builds a platform service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// CreateInput is the admin create payload.
type CreateInput struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Slug        string  `json:"slug" validate:"required,min=2,max=60"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// UpdateInput is the admin update payload; nil fields are left untouched.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=120"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Platform, error) {
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

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	platform := &models.Platform{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		Active:      active,
	}
	if err := s.repo.Create(ctx, platform); err != nil {
		return nil, err
	}
	return platform, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Platform, error) {
	platform, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "platform not found")
	}
	return platform, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.Platform, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Platform, error) {
	platform, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		platform.Name = *input.Name
	}
	if input.Description != nil {
		platform.Description = input.Description
	}
	if input.Active != nil {
		platform.Active = *input.Active
	}

	if err := s.repo.Update(ctx, platform); err != nil {
		return nil, err
	}
	return platform, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
