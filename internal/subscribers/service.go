package subscribers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	"github.com/tappy-hq/tappy-backend/pkg/enums"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
)

// ServiceParams groups dependencies for the subscriber service.
type ServiceParams struct {
	Repo Repository
}

// Service backs the admin subscriber CRUD surface.
type Service struct {
	repo Repository
}

// NewService builds a subscriber service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// CreateInput is the admin create payload.
type CreateInput struct {
	UserID     uuid.UUID `json:"user_id" validate:"required"`
	PlatformID uuid.UUID `json:"platform_id" validate:"required"`
	PlanID     uuid.UUID `json:"plan_id" validate:"required"`
	Status     string    `json:"status" validate:"omitempty,oneof=active canceled overdue"`
}

// UpdateInput is the admin update payload; nil fields are left untouched.
type UpdateInput struct {
	PlanID       *uuid.UUID `json:"plan_id"`
	Status       *string    `json:"status" validate:"omitempty,oneof=active canceled overdue"`
	CancelReason *string    `json:"cancel_reason"`
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Subscriber, error) {
	status := enums.SubscriberStatusActive
	if input.Status != "" {
		parsed, err := enums.ParseSubscriberStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = parsed
	}

	subscriber := &models.Subscriber{
		UserID:     input.UserID,
		PlatformID: input.PlatformID,
		PlanID:     input.PlanID,
		Status:     status,
		StartDate:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, subscriber); err != nil {
		return nil, err
	}
	return subscriber, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Subscriber, error) {
	subscriber, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if subscriber == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscriber not found")
	}
	return subscriber, nil
}

func (s *Service) List(ctx context.Context, params ListQuery) ([]models.Subscriber, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Subscriber, error) {
	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.PlanID != nil {
		subscriber.PlanID = *input.PlanID
	}
	if input.Status != nil {
		status, err := enums.ParseSubscriberStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		if status == enums.SubscriberStatusCanceled && subscriber.Status != enums.SubscriberStatusCanceled {
			now := time.Now().UTC()
			subscriber.CancelDate = &now
		}
		subscriber.Status = status
	}
	if input.CancelReason != nil {
		subscriber.CancelReason = input.CancelReason
	}

	if err := s.repo.Update(ctx, subscriber); err != nil {
		return nil, err
	}
	return subscriber, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
