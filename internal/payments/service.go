package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
)

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo Repository
}

// Service exposes read access to reconciled payments for the dashboard.
// Writes happen only through the webhook reconciler.
type Service struct {
	repo Repository
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

func (s *Service) List(ctx context.Context, params ListQuery) ([]models.Payment, error) {
	return s.repo.List(ctx, params)
}
