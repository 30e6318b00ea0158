package settings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	active      *models.PaymentConfig
	deactivated []string
	created     []*models.PaymentConfig
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) Create(ctx context.Context, cfg *models.PaymentConfig) error {
	s.created = append(s.created, cfg)
	return nil
}
func (s *stubRepo) Update(ctx context.Context, cfg *models.PaymentConfig) error {
	return nil
}
func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentConfig, error) {
	return nil, nil
}
func (s *stubRepo) FindActiveByProvider(ctx context.Context, provider string) (*models.PaymentConfig, error) {
	return s.active, nil
}
func (s *stubRepo) ListByProvider(ctx context.Context, provider string) ([]models.PaymentConfig, error) {
	return nil, nil
}
func (s *stubRepo) DeactivateProvider(ctx context.Context, provider string) error {
	s.deactivated = append(s.deactivated, provider)
	return nil
}

func TestRotateSecretDeactivatesPreviousConfigs(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := NewService(ServiceParams{Repo: repo, TransactionRunner: fakeTxRunner{}})

	cfg, err := svc.RotateSecret(context.Background(), RotateSecretInput{
		Provider:      " Kirvano ",
		WebhookSecret: "a-sufficiently-long-secret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "kirvano" {
		t.Fatalf("provider not normalized: %q", cfg.Provider)
	}
	if !cfg.Active {
		t.Fatal("new config must be active")
	}
	if len(repo.deactivated) != 1 || repo.deactivated[0] != "kirvano" {
		t.Fatalf("previous configs not deactivated: %v", repo.deactivated)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created config, got %d", len(repo.created))
	}
}

func TestRotateSecretRequiresProvider(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}, TransactionRunner: fakeTxRunner{}})

	_, err := svc.RotateSecret(context.Background(), RotateSecretInput{
		Provider:      "   ",
		WebhookSecret: "a-sufficiently-long-secret",
	})
	if err == nil {
		t.Fatal("expected error for blank provider")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatusMasksSecret(t *testing.T) {
	repo := &stubRepo{active: &models.PaymentConfig{
		Provider:      "kirvano",
		WebhookSecret: "whsec_1234567890abcd",
		Active:        true,
	}}
	svc, _ := NewService(ServiceParams{Repo: repo, TransactionRunner: fakeTxRunner{}})

	status, err := svc.Status(context.Background(), "kirvano")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Active {
		t.Fatal("expected active status")
	}
	if status.SecretMasked != "****************abcd" {
		t.Fatalf("unexpected mask: %q", status.SecretMasked)
	}
}

func TestStatusWithoutActiveConfig(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}, TransactionRunner: fakeTxRunner{}})

	status, err := svc.Status(context.Background(), "kirvano")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Active || status.SecretMasked != "" {
		t.Fatalf("expected inactive empty status, got %+v", status)
	}
}
