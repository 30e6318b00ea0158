package plans

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
)

// ServiceParams groups dependencies for the plan service.
type ServiceParams struct {
	Repo Repository
}

// Service backs the admin plan CRUD surface and the public pricing page.
type Service struct {
	repo Repository
}

// NewService builds a plan service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// CreateInput is the admin create payload. Price is a major-unit decimal
// string ("49.90").
type CreateInput struct {
	PlatformID  uuid.UUID `json:"platform_id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=2,max=120"`
	Description *string   `json:"description"`
	Price       string    `json:"price" validate:"required"`
	Currency    string    `json:"currency" validate:"omitempty,len=3"`
	Interval    string    `json:"interval" validate:"omitempty,oneof=month year"`
	Features    []string  `json:"features"`
	Active      *bool     `json:"active"`
}

// UpdateInput is the admin update payload; nil fields are left untouched.
type UpdateInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=2,max=120"`
	Description *string  `json:"description"`
	Price       *string  `json:"price"`
	Interval    *string  `json:"interval" validate:"omitempty,oneof=month year"`
	Features    []string `json:"features"`
	Active      *bool    `json:"active"`
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Plan, error) {
	price, err := decimal.NewFromString(input.Price)
	if err != nil || price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be a non-negative decimal")
	}

	currency := input.Currency
	if currency == "" {
		currency = "BRL"
	}
	interval := input.Interval
	if interval == "" {
		interval = "month"
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	plan := &models.Plan{
		PlatformID:  input.PlatformID,
		Name:        input.Name,
		Description: input.Description,
		Price:       price,
		Currency:    currency,
		Interval:    interval,
		Features:    pq.StringArray(input.Features),
		Active:      active,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

func (s *Service) List(ctx context.Context, params ListQuery) ([]models.Plan, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Plan, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		plan.Name = *input.Name
	}
	if input.Description != nil {
		plan.Description = input.Description
	}
	if input.Price != nil {
		price, err := decimal.NewFromString(*input.Price)
		if err != nil || price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be a non-negative decimal")
		}
		plan.Price = price
	}
	if input.Interval != nil {
		plan.Interval = *input.Interval
	}
	if input.Features != nil {
		plan.Features = pq.StringArray(input.Features)
	}
	if input.Active != nil {
		plan.Active = *input.Active
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
