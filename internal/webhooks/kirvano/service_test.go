package kirvano

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/internal/metrics"
	"github.com/tappy-hq/tappy-backend/internal/payments"
	"github.com/tappy-hq/tappy-backend/internal/plans"
	"github.com/tappy-hq/tappy-backend/internal/subscribers"
	"github.com/tappy-hq/tappy-backend/pkg/db/models"
	"github.com/tappy-hq/tappy-backend/pkg/enums"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubPaymentRepo struct {
	byExternalID map[string]*models.Payment
	creates      int
	updates      int
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{byExternalID: map[string]*models.Payment{}}
}

func (s *stubPaymentRepo) WithTx(tx *gorm.DB) payments.Repository { return s }
func (s *stubPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	s.creates++
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	copied := *payment
	s.byExternalID[payment.ExternalID] = &copied
	return nil
}
func (s *stubPaymentRepo) Update(ctx context.Context, payment *models.Payment) error {
	s.updates++
	copied := *payment
	s.byExternalID[payment.ExternalID] = &copied
	return nil
}
func (s *stubPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	for _, p := range s.byExternalID {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}
func (s *stubPaymentRepo) FindByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	if p, ok := s.byExternalID[externalID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}
func (s *stubPaymentRepo) List(ctx context.Context, params payments.ListQuery) ([]models.Payment, error) {
	return nil, nil
}

type stubSubscriberRepo struct {
	byID    map[uuid.UUID]*models.Subscriber
	creates int
	updates int
}

func newStubSubscriberRepo() *stubSubscriberRepo {
	return &stubSubscriberRepo{byID: map[uuid.UUID]*models.Subscriber{}}
}

func (s *stubSubscriberRepo) WithTx(tx *gorm.DB) subscribers.Repository { return s }
func (s *stubSubscriberRepo) Create(ctx context.Context, subscriber *models.Subscriber) error {
	s.creates++
	if subscriber.ID == uuid.Nil {
		subscriber.ID = uuid.New()
	}
	copied := *subscriber
	s.byID[subscriber.ID] = &copied
	return nil
}
func (s *stubSubscriberRepo) Update(ctx context.Context, subscriber *models.Subscriber) error {
	s.updates++
	copied := *subscriber
	s.byID[subscriber.ID] = &copied
	return nil
}
func (s *stubSubscriberRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscriber, error) {
	if sub, ok := s.byID[id]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, nil
}
func (s *stubSubscriberRepo) FindByUserAndPlan(ctx context.Context, userID, planID uuid.UUID) (*models.Subscriber, error) {
	return nil, nil
}
func (s *stubSubscriberRepo) List(ctx context.Context, params subscribers.ListQuery) ([]models.Subscriber, error) {
	return nil, nil
}
func (s *stubSubscriberRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.byID, id)
	return nil
}

type stubPlanRepo struct {
	plan *models.Plan
}

func (s *stubPlanRepo) WithTx(tx *gorm.DB) plans.Repository { return s }
func (s *stubPlanRepo) Create(ctx context.Context, plan *models.Plan) error {
	return nil
}
func (s *stubPlanRepo) Update(ctx context.Context, plan *models.Plan) error {
	return nil
}
func (s *stubPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if s.plan != nil && s.plan.ID == id {
		copied := *s.plan
		return &copied, nil
	}
	return nil, nil
}
func (s *stubPlanRepo) List(ctx context.Context, params plans.ListQuery) ([]models.Plan, error) {
	return nil, nil
}
func (s *stubPlanRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type stubMetricsRepo struct {
	deltas []metrics.Delta
}

func (s *stubMetricsRepo) WithTx(tx *gorm.DB) metrics.Repository { return s }
func (s *stubMetricsRepo) IncrementDaily(ctx context.Context, platformID uuid.UUID, day time.Time, delta metrics.Delta) error {
	s.deltas = append(s.deltas, delta)
	return nil
}
func (s *stubMetricsRepo) FindDay(ctx context.Context, platformID uuid.UUID, day time.Time) (*models.DailyMetric, error) {
	return nil, nil
}
func (s *stubMetricsRepo) ListRange(ctx context.Context, params metrics.RangeQuery) ([]models.DailyMetric, error) {
	return nil, nil
}

type stubDeadLetterRepo struct {
	letters []models.WebhookDeadLetter
}

func (s *stubDeadLetterRepo) WithTx(tx *gorm.DB) DeadLetterRepository { return s }
func (s *stubDeadLetterRepo) Record(ctx context.Context, letter *models.WebhookDeadLetter) error {
	s.letters = append(s.letters, *letter)
	return nil
}
func (s *stubDeadLetterRepo) List(ctx context.Context, provider string, limit int) ([]models.WebhookDeadLetter, error) {
	return s.letters, nil
}
func (s *stubDeadLetterRepo) MarkRetried(ctx context.Context, id uuid.UUID) error { return nil }

type serviceFixture struct {
	svc         *Service
	payments    *stubPaymentRepo
	subscribers *stubSubscriberRepo
	planRepo    *stubPlanRepo
	metricsRepo *stubMetricsRepo
	deadLetters *stubDeadLetterRepo

	planID     uuid.UUID
	platformID uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	planID := uuid.New()
	platformID := uuid.New()

	paymentRepo := newStubPaymentRepo()
	subscriberRepo := newStubSubscriberRepo()
	planRepo := &stubPlanRepo{plan: &models.Plan{ID: planID, PlatformID: platformID}}
	metricsRepo := &stubMetricsRepo{}
	deadLetters := &stubDeadLetterRepo{}

	metricsService, err := metrics.NewService(metrics.ServiceParams{Repo: metricsRepo})
	if err != nil {
		t.Fatalf("metrics service setup: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	svc, err := NewService(ServiceParams{
		TransactionRunner: fakeTxRunner{},
		PaymentRepo:       paymentRepo,
		SubscriberRepo:    subscriberRepo,
		PlanRepo:          planRepo,
		Metrics:           metricsService,
		DeadLetterRepo:    deadLetters,
		Logger:            logg,
	})
	if err != nil {
		t.Fatalf("service setup: %v", err)
	}

	return &serviceFixture{
		svc:         svc,
		payments:    paymentRepo,
		subscribers: subscriberRepo,
		planRepo:    planRepo,
		metricsRepo: metricsRepo,
		deadLetters: deadLetters,
		planID:      planID,
		platformID:  platformID,
	}
}

func buildEvent(t *testing.T, eventType, externalID string, amount int64, occurredAt time.Time, metadata map[string]string) (*Event, []byte) {
	t.Helper()

	payload := map[string]any{
		"event": eventType,
		"data": map[string]any{
			"id":            externalID,
			"amount":        amount,
			"currency":      "BRL",
			"paymentMethod": "PIX",
			"createdAt":     occurredAt.Format(time.RFC3339),
			"metadata":      metadata,
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	return event, raw
}

func TestPaymentCreatedStoresPendingPayment(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	subscriberID := uuid.New()
	occurredAt := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	event, raw := buildEvent(t, EventPaymentCreated, "pay_123", 4599, occurredAt, map[string]string{
		"userId":       userID.String(),
		"planId":       f.planID.String(),
		"subscriberId": subscriberID.String(),
	})

	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.payments.byExternalID["pay_123"]
	if stored == nil {
		t.Fatal("payment not created")
	}
	if stored.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending status, got %s", stored.Status)
	}
	if !stored.Amount.Equal(decimal.RequireFromString("45.99")) {
		t.Fatalf("expected amount 45.99, got %s", stored.Amount)
	}
	if stored.PaymentMethod != string(enums.PaymentMethodPix) {
		t.Fatalf("expected normalized pix method, got %q", stored.PaymentMethod)
	}
	if stored.UserID != userID || stored.PlanID != f.planID {
		t.Fatal("metadata ids not stored")
	}
	if !stored.LastEventAt.Equal(occurredAt) {
		t.Fatalf("expected last event at %s, got %s", occurredAt, stored.LastEventAt)
	}
}

func TestPaymentCreatedMissingMetadataDeadLetters(t *testing.T) {
	f := newServiceFixture(t)
	occurredAt := time.Now().UTC()

	event, raw := buildEvent(t, EventPaymentCreated, "pay_456", 1000, occurredAt, map[string]string{
		"planId":       f.planID.String(),
		"subscriberId": uuid.NewString(),
	})

	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("expected nil error for dead-lettered event, got %v", err)
	}
	if len(f.payments.byExternalID) != 0 {
		t.Fatal("no payment should be created without metadata")
	}
	if len(f.deadLetters.letters) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(f.deadLetters.letters))
	}
	letter := f.deadLetters.letters[0]
	if letter.EventID != "pay_456" || letter.EventType != EventPaymentCreated {
		t.Fatalf("dead letter misfiled: %+v", letter)
	}
}

func TestPaymentCreatedReplayDoesNotRegressStatus(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	subscriberID := uuid.New()
	occurredAt := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	meta := map[string]string{
		"userId":       userID.String(),
		"planId":       f.planID.String(),
		"subscriberId": subscriberID.String(),
	}

	event, raw := buildEvent(t, EventPaymentCreated, "pay_replay", 4599, occurredAt, meta)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// Advance the row as an approval would, then replay the original created
	// event with its original timestamp.
	f.payments.byExternalID["pay_replay"].Status = enums.PaymentStatusApproved

	replay, replayRaw := buildEvent(t, EventPaymentCreated, "pay_replay", 4599, occurredAt, meta)
	if err := f.svc.HandleEvent(context.Background(), replay, replayRaw); err != nil {
		t.Fatalf("replay delivery: %v", err)
	}

	if got := f.payments.byExternalID["pay_replay"].Status; got != enums.PaymentStatusApproved {
		t.Fatalf("replay regressed status to %s", got)
	}
	if f.payments.creates != 1 {
		t.Fatalf("expected a single create, got %d", f.payments.creates)
	}
}

func TestPaymentApprovedActivatesSubscriberAndRecordsSale(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	subscriberID := uuid.New()
	createdAt := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	approvedAt := createdAt.Add(5 * time.Minute)

	f.subscribers.byID[subscriberID] = &models.Subscriber{
		ID:         subscriberID,
		UserID:     userID,
		PlatformID: f.platformID,
		PlanID:     f.planID,
		Status:     enums.SubscriberStatusOverdue,
	}
	f.payments.byExternalID["pay_ok"] = &models.Payment{
		ID:           uuid.New(),
		ExternalID:   "pay_ok",
		UserID:       userID,
		SubscriberID: &subscriberID,
		PlanID:       f.planID,
		Amount:       decimal.RequireFromString("45.99"),
		Status:       enums.PaymentStatusPending,
		LastEventAt:  createdAt,
	}

	event, raw := buildEvent(t, EventPaymentApproved, "pay_ok", 4599, approvedAt, nil)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.payments.byExternalID["pay_ok"]
	if stored.Status != enums.PaymentStatusApproved {
		t.Fatalf("expected approved, got %s", stored.Status)
	}
	if stored.PaymentDate == nil || !stored.PaymentDate.Equal(approvedAt) {
		t.Fatal("payment date not set to the event timestamp")
	}
	if got := f.subscribers.byID[subscriberID].Status; got != enums.SubscriberStatusActive {
		t.Fatalf("subscriber not activated, status %s", got)
	}
	if len(f.metricsRepo.deltas) != 1 {
		t.Fatalf("expected 1 metric delta, got %d", len(f.metricsRepo.deltas))
	}
	delta := f.metricsRepo.deltas[0]
	if delta.Sales != 1 || !delta.Revenue.Equal(decimal.RequireFromString("45.99")) {
		t.Fatalf("unexpected sale delta: %+v", delta)
	}
}

func TestPaymentApprovedWithoutCreatedDeadLetters(t *testing.T) {
	f := newServiceFixture(t)

	event, raw := buildEvent(t, EventPaymentApproved, "pay_orphan", 4599, time.Now().UTC(), nil)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(f.deadLetters.letters) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(f.deadLetters.letters))
	}
	if len(f.metricsRepo.deltas) != 0 {
		t.Fatal("no metric should be recorded for an orphan approval")
	}
}

func TestStaleApprovalSkipped(t *testing.T) {
	f := newServiceFixture(t)
	newer := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	f.payments.byExternalID["pay_stale"] = &models.Payment{
		ID:          uuid.New(),
		ExternalID:  "pay_stale",
		UserID:      uuid.New(),
		PlanID:      f.planID,
		Amount:      decimal.RequireFromString("10.00"),
		Status:      enums.PaymentStatusRefunded,
		LastEventAt: newer,
	}

	event, raw := buildEvent(t, EventPaymentApproved, "pay_stale", 1000, newer.Add(-time.Hour), nil)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.payments.byExternalID["pay_stale"].Status; got != enums.PaymentStatusRefunded {
		t.Fatalf("stale approval overwrote status: %s", got)
	}
	if len(f.metricsRepo.deltas) != 0 {
		t.Fatal("stale approval must not record metrics")
	}
}

func TestPaymentRefundedRecordsRefund(t *testing.T) {
	f := newServiceFixture(t)
	createdAt := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	refundedAt := createdAt.Add(48 * time.Hour)

	f.payments.byExternalID["pay_refund"] = &models.Payment{
		ID:          uuid.New(),
		ExternalID:  "pay_refund",
		UserID:      uuid.New(),
		PlanID:      f.planID,
		Amount:      decimal.RequireFromString("45.99"),
		Status:      enums.PaymentStatusApproved,
		LastEventAt: createdAt,
	}

	event, raw := buildEvent(t, EventPaymentRefunded, "pay_refund", 4599, refundedAt, nil)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.payments.byExternalID["pay_refund"]
	if stored.Status != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", stored.Status)
	}
	if stored.RefundReason == nil || *stored.RefundReason != defaultReason {
		t.Fatal("missing reason should fall back to the default")
	}
	if len(f.metricsRepo.deltas) != 1 {
		t.Fatalf("expected 1 metric delta, got %d", len(f.metricsRepo.deltas))
	}
	delta := f.metricsRepo.deltas[0]
	if delta.Refunds != 1 || !delta.RefundAmount.Equal(decimal.RequireFromString("45.99")) {
		t.Fatalf("unexpected refund delta: %+v", delta)
	}
}

func TestSubscriptionCreatedCountsOnlyNewSubscribers(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	occurredAt := time.Now().UTC()
	meta := map[string]string{
		"userId":     userID.String(),
		"planId":     f.planID.String(),
		"platformId": f.platformID.String(),
	}

	event, raw := buildEvent(t, EventSubscriptionCreated, "evt_sub_1", 0, occurredAt, meta)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.subscribers.creates != 1 {
		t.Fatalf("expected subscriber created, got %d creates", f.subscribers.creates)
	}
	if len(f.metricsRepo.deltas) != 1 || f.metricsRepo.deltas[0].NewSubscribers != 1 {
		t.Fatal("new subscriber metric not recorded")
	}

	// Redelivery addressing the now-existing row must update, not re-count.
	var existingID uuid.UUID
	for id := range f.subscribers.byID {
		existingID = id
	}
	meta["subscriberId"] = existingID.String()
	replay, replayRaw := buildEvent(t, EventSubscriptionCreated, "evt_sub_1", 0, occurredAt, meta)
	if err := f.svc.HandleEvent(context.Background(), replay, replayRaw); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if f.subscribers.creates != 1 {
		t.Fatalf("replay created another subscriber: %d creates", f.subscribers.creates)
	}
	if len(f.metricsRepo.deltas) != 1 {
		t.Fatalf("replay inflated metrics: %d deltas", len(f.metricsRepo.deltas))
	}
}

func TestSubscriptionCanceledCountsOnlyOnTransition(t *testing.T) {
	f := newServiceFixture(t)
	subscriberID := uuid.New()
	f.subscribers.byID[subscriberID] = &models.Subscriber{
		ID:         subscriberID,
		UserID:     uuid.New(),
		PlatformID: f.platformID,
		PlanID:     f.planID,
		Status:     enums.SubscriberStatusActive,
	}

	meta := map[string]string{"subscriberId": subscriberID.String()}
	event, raw := buildEvent(t, EventSubscriptionCanceled, "evt_cancel_1", 0, time.Now().UTC(), meta)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.subscribers.byID[subscriberID]
	if stored.Status != enums.SubscriberStatusCanceled {
		t.Fatalf("expected canceled, got %s", stored.Status)
	}
	if stored.CancelReason == nil || *stored.CancelReason != defaultReason {
		t.Fatal("missing reason should fall back to the default")
	}
	if len(f.metricsRepo.deltas) != 1 || f.metricsRepo.deltas[0].CanceledSubscribers != 1 {
		t.Fatal("canceled metric not recorded")
	}

	replay, replayRaw := buildEvent(t, EventSubscriptionCanceled, "evt_cancel_1", 0, time.Now().UTC(), meta)
	if err := f.svc.HandleEvent(context.Background(), replay, replayRaw); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(f.metricsRepo.deltas) != 1 {
		t.Fatalf("replay re-counted the cancellation: %d deltas", len(f.metricsRepo.deltas))
	}
}

func TestSubscriptionCanceledUnknownSubscriberDeadLetters(t *testing.T) {
	f := newServiceFixture(t)

	meta := map[string]string{"subscriberId": uuid.NewString()}
	event, raw := buildEvent(t, EventSubscriptionCanceled, "evt_cancel_missing", 0, time.Now().UTC(), meta)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(f.deadLetters.letters) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(f.deadLetters.letters))
	}
}

func TestUnknownEventTypeIsIgnored(t *testing.T) {
	f := newServiceFixture(t)

	event, raw := buildEvent(t, "payment.unknown", "pay_x", 100, time.Now().UTC(), nil)
	if err := f.svc.HandleEvent(context.Background(), event, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.payments.byExternalID) != 0 || len(f.deadLetters.letters) != 0 {
		t.Fatal("unknown event must not mutate anything")
	}
}
