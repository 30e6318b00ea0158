package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/internal/metrics"
	"github.com/tappy-hq/tappy-backend/internal/payments"
	"github.com/tappy-hq/tappy-backend/internal/plans"
	"github.com/tappy-hq/tappy-backend/internal/settings"
	"github.com/tappy-hq/tappy-backend/internal/subscribers"
	"github.com/tappy-hq/tappy-backend/internal/webhooks/kirvano"
	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
)

const webhookSecret = "whsec_test"

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memPaymentRepo struct {
	byExternalID map[string]*models.Payment
	creates      int
}

func (s *memPaymentRepo) WithTx(tx *gorm.DB) payments.Repository { return s }
func (s *memPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	s.creates++
	copied := *payment
	s.byExternalID[payment.ExternalID] = &copied
	return nil
}
func (s *memPaymentRepo) Update(ctx context.Context, payment *models.Payment) error {
	copied := *payment
	s.byExternalID[payment.ExternalID] = &copied
	return nil
}
func (s *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return nil, nil
}
func (s *memPaymentRepo) FindByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	if p, ok := s.byExternalID[externalID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}
func (s *memPaymentRepo) List(ctx context.Context, params payments.ListQuery) ([]models.Payment, error) {
	return nil, nil
}

type memSubscriberRepo struct{}

func (memSubscriberRepo) WithTx(tx *gorm.DB) subscribers.Repository { return memSubscriberRepo{} }
func (memSubscriberRepo) Create(ctx context.Context, subscriber *models.Subscriber) error {
	return nil
}
func (memSubscriberRepo) Update(ctx context.Context, subscriber *models.Subscriber) error {
	return nil
}
func (memSubscriberRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscriber, error) {
	return nil, nil
}
func (memSubscriberRepo) FindByUserAndPlan(ctx context.Context, userID, planID uuid.UUID) (*models.Subscriber, error) {
	return nil, nil
}
func (memSubscriberRepo) List(ctx context.Context, params subscribers.ListQuery) ([]models.Subscriber, error) {
	return nil, nil
}
func (memSubscriberRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type memPlanRepo struct{}

func (memPlanRepo) WithTx(tx *gorm.DB) plans.Repository { return memPlanRepo{} }
func (memPlanRepo) Create(ctx context.Context, plan *models.Plan) error {
	return nil
}
func (memPlanRepo) Update(ctx context.Context, plan *models.Plan) error {
	return nil
}
func (memPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	return nil, nil
}
func (memPlanRepo) List(ctx context.Context, params plans.ListQuery) ([]models.Plan, error) {
	return nil, nil
}
func (memPlanRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type memMetricsRepo struct{}

func (memMetricsRepo) WithTx(tx *gorm.DB) metrics.Repository { return memMetricsRepo{} }
func (memMetricsRepo) IncrementDaily(ctx context.Context, platformID uuid.UUID, day time.Time, delta metrics.Delta) error {
	return nil
}
func (memMetricsRepo) FindDay(ctx context.Context, platformID uuid.UUID, day time.Time) (*models.DailyMetric, error) {
	return nil, nil
}
func (memMetricsRepo) ListRange(ctx context.Context, params metrics.RangeQuery) ([]models.DailyMetric, error) {
	return nil, nil
}

type memDeadLetterRepo struct {
	letters []models.WebhookDeadLetter
}

func (s *memDeadLetterRepo) WithTx(tx *gorm.DB) kirvano.DeadLetterRepository { return s }
func (s *memDeadLetterRepo) Record(ctx context.Context, letter *models.WebhookDeadLetter) error {
	s.letters = append(s.letters, *letter)
	return nil
}
func (s *memDeadLetterRepo) List(ctx context.Context, provider string, limit int) ([]models.WebhookDeadLetter, error) {
	return s.letters, nil
}
func (s *memDeadLetterRepo) MarkRetried(ctx context.Context, id uuid.UUID) error { return nil }

type memSettingsRepo struct {
	secret string
}

func (s *memSettingsRepo) WithTx(tx *gorm.DB) settings.Repository { return s }
func (s *memSettingsRepo) Create(ctx context.Context, cfg *models.PaymentConfig) error {
	return nil
}
func (s *memSettingsRepo) Update(ctx context.Context, cfg *models.PaymentConfig) error {
	return nil
}
func (s *memSettingsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentConfig, error) {
	return nil, nil
}
func (s *memSettingsRepo) FindActiveByProvider(ctx context.Context, provider string) (*models.PaymentConfig, error) {
	if s.secret == "" {
		return nil, nil
	}
	return &models.PaymentConfig{Provider: provider, WebhookSecret: s.secret, Active: true}, nil
}
func (s *memSettingsRepo) ListByProvider(ctx context.Context, provider string) ([]models.PaymentConfig, error) {
	return nil, nil
}
func (s *memSettingsRepo) DeactivateProvider(ctx context.Context, provider string) error {
	return nil
}

type memIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{seen: map[string]string{}}
}

func (s *memIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key], nil
}
func (s *memIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = "1"
	return true, nil
}
func (s *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}
func (s *memIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

type webhookFixture struct {
	handler  http.HandlerFunc
	payments *memPaymentRepo
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	paymentRepo := &memPaymentRepo{byExternalID: map[string]*models.Payment{}}
	metricsService, err := metrics.NewService(metrics.ServiceParams{Repo: memMetricsRepo{}})
	if err != nil {
		t.Fatalf("metrics service: %v", err)
	}

	service, err := kirvano.NewService(kirvano.ServiceParams{
		TransactionRunner: fakeTxRunner{},
		PaymentRepo:       paymentRepo,
		SubscriberRepo:    memSubscriberRepo{},
		PlanRepo:          memPlanRepo{},
		Metrics:           metricsService,
		DeadLetterRepo:    &memDeadLetterRepo{},
		Logger:            logg,
	})
	if err != nil {
		t.Fatalf("webhook service: %v", err)
	}

	verifier, err := kirvano.NewVerifier(&memSettingsRepo{secret: webhookSecret}, logg, false)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	guard, err := kirvano.NewIdempotencyGuard(newMemIdempotencyStore(), time.Minute, kirvano.Provider)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}

	return &webhookFixture{
		handler: Kirvano(KirvanoParams{
			Service:  service,
			Verifier: verifier,
			Guard:    guard,
			Logger:   logg,
		}),
		payments: paymentRepo,
	}
}

func signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func buildCreatedPayload(t *testing.T, externalID string) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"event": "payment.created",
		"data": map[string]any{
			"id":            externalID,
			"amount":        4599,
			"currency":      "BRL",
			"paymentMethod": "pix",
			"createdAt":     time.Now().UTC().Format(time.RFC3339),
			"metadata": map[string]string{
				"userId":       uuid.NewString(),
				"planId":       uuid.NewString(),
				"subscriberId": uuid.NewString(),
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func postWebhook(f *webhookFixture, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/kirvano", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("x-kirvano-signature", signature)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestKirvanoWebhookAcknowledgesValidDelivery(t *testing.T) {
	f := newWebhookFixture(t)
	payload := buildCreatedPayload(t, "pay_http_1")

	rec := postWebhook(f, payload, signPayload(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["received"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	if f.payments.creates != 1 {
		t.Fatalf("expected 1 payment created, got %d", f.payments.creates)
	}
}

func TestKirvanoWebhookSuppressesDuplicateDelivery(t *testing.T) {
	f := newWebhookFixture(t)
	payload := buildCreatedPayload(t, "pay_http_dup")
	signature := signPayload(payload)

	first := postWebhook(f, payload, signature)
	if first.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", first.Code)
	}
	second := postWebhook(f, payload, signature)
	if second.Code != http.StatusOK {
		t.Fatalf("duplicate delivery: expected 200, got %d", second.Code)
	}
	if f.payments.creates != 1 {
		t.Fatalf("duplicate was reprocessed: %d creates", f.payments.creates)
	}
}

func TestKirvanoWebhookRejectsEmptyBody(t *testing.T) {
	f := newWebhookFixture(t)

	rec := postWebhook(f, nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Nenhum dado recebido" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestKirvanoWebhookRejectsMissingSignature(t *testing.T) {
	f := newWebhookFixture(t)
	payload := buildCreatedPayload(t, "pay_http_unsigned")

	rec := postWebhook(f, payload, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Assinatura inválida" {
		t.Fatalf("unexpected body: %v", body)
	}
	if f.payments.creates != 0 {
		t.Fatal("unsigned delivery must not be processed")
	}
}

func TestKirvanoWebhookRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	payload := buildCreatedPayload(t, "pay_http_bad_sig")

	rec := postWebhook(f, payload, signPayload([]byte("different body")))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if f.payments.creates != 0 {
		t.Fatal("forged delivery must not be processed")
	}
}

func TestKirvanoWebhookMalformedJSONIsInternalError(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{"event":`)

	rec := postWebhook(f, payload, signPayload(payload))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Erro interno do servidor" {
		t.Fatalf("unexpected body: %v", body)
	}
}
