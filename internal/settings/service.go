package settings

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the settings service.
type ServiceParams struct {
	Repo              Repository
	TransactionRunner txRunner
}

// Service manages payment provider credentials. Rotating a secret swaps the
// active config atomically so the webhook verifier never sees two.
type Service struct {
	repo     Repository
	txRunner txRunner
}

// NewService builds a settings service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.TransactionRunner == nil {
		return nil, errors.New("transaction runner is required")
	}
	return &Service{repo: params.Repo, txRunner: params.TransactionRunner}, nil
}

// RotateSecretInput installs a new active webhook secret for a provider.
type RotateSecretInput struct {
	Provider      string `json:"provider" validate:"required,min=2,max=40"`
	WebhookSecret string `json:"webhook_secret" validate:"required,min=16"`
}

// ProviderStatus is the masked read-model; the secret itself never leaves the
// service.
type ProviderStatus struct {
	Provider     string `json:"provider"`
	Active       bool   `json:"active"`
	SecretMasked string `json:"secret_masked"`
}

// RotateSecret deactivates the provider's previous configs and installs the
// new secret as the single active one.
func (s *Service) RotateSecret(ctx context.Context, input RotateSecretInput) (*models.PaymentConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	if provider == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider is required")
	}

	cfg := &models.PaymentConfig{
		Provider:      provider,
		WebhookSecret: input.WebhookSecret,
		Active:        true,
	}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeactivateProvider(ctx, provider); err != nil {
			return err
		}
		return repo.Create(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Status reports whether a provider has an active secret, masked for display.
func (s *Service) Status(ctx context.Context, provider string) (*ProviderStatus, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	cfg, err := s.repo.FindActiveByProvider(ctx, provider)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &ProviderStatus{Provider: provider, Active: false}, nil
	}
	return &ProviderStatus{
		Provider:     provider,
		Active:       true,
		SecretMasked: maskSecret(cfg.WebhookSecret),
	}, nil
}

func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
