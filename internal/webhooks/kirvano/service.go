package kirvano

import (
	"context"
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
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
	obs "github.com/tappy-hq/tappy-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the Kirvano webhook service.
type ServiceParams struct {
	TransactionRunner txRunner
	PaymentRepo       payments.Repository
	SubscriberRepo    subscribers.Repository
	PlanRepo          plans.Repository
	Metrics           *metrics.Service
	DeadLetterRepo    DeadLetterRepository
	Logger            *logger.Logger
	Observer          *obs.WebhookMetrics
}

// Service reconciles Kirvano webhook events into payments, subscribers and
// daily metrics. Business-rule failures (missing metadata, unknown rows) are
// dead-lettered and swallowed; only infrastructure errors propagate.
type Service struct {
	txRunner       txRunner
	paymentRepo    payments.Repository
	subscriberRepo subscribers.Repository
	planRepo       plans.Repository
	metrics        *metrics.Service
	deadLetterRepo DeadLetterRepository
	logg           *logger.Logger
	observer       *obs.WebhookMetrics
	now            func() time.Time
}

// NewService builds the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.PaymentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repo required")
	}
	if params.SubscriberRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriber repo required")
	}
	if params.PlanRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan repo required")
	}
	if params.Metrics == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "metrics service required")
	}
	if params.DeadLetterRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dead letter repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		txRunner:       params.TransactionRunner,
		paymentRepo:    params.PaymentRepo,
		subscriberRepo: params.SubscriberRepo,
		planRepo:       params.PlanRepo,
		metrics:        params.Metrics,
		deadLetterRepo: params.DeadLetterRepo,
		logg:           params.Logger,
		observer:       params.Observer,
		now:            time.Now,
	}, nil
}

// HandleEvent routes one parsed delivery to its handler. Unrecognized event
// types are logged and acknowledged without mutation.
func (s *Service) HandleEvent(ctx context.Context, event *Event, raw []byte) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "kirvano event required")
	}

	ctx = s.logg.WithEvent(ctx, event.Event)
	s.observer.IncReceived(event.Event)
	started := s.now()
	defer func() {
		s.observer.ObserveDuration(event.Event, s.now().Sub(started))
	}()

	switch event.Event {
	case EventPaymentCreated:
		return s.onPaymentCreated(ctx, event, raw)
	case EventPaymentApproved:
		return s.onPaymentApproved(ctx, event, raw)
	case EventPaymentFailed:
		return s.onPaymentFailed(ctx, event, raw)
	case EventPaymentRefunded:
		return s.onPaymentRefunded(ctx, event, raw)
	case EventSubscriptionCreated:
		return s.onSubscriptionCreated(ctx, event, raw)
	case EventSubscriptionCanceled:
		return s.onSubscriptionCanceled(ctx, event, raw)
	default:
		s.logg.Warn(ctx, "ignoring unrecognized webhook event")
		return nil
	}
}

func (s *Service) onPaymentCreated(ctx context.Context, event *Event, raw []byte) error {
	if event.Data.ID == "" {
		return s.deadLetter(ctx, event, raw, "payment.created missing data.id")
	}
	userID, ok := s.requireMetaUUID(ctx, event, raw, metaUserID)
	if !ok {
		return nil
	}
	planID, ok := s.requireMetaUUID(ctx, event, raw, metaPlanID)
	if !ok {
		return nil
	}
	subscriberID, ok := s.requireMetaUUID(ctx, event, raw, metaSubscriberID)
	if !ok {
		return nil
	}

	occurredAt := event.OccurredAt(s.now())
	amount := decimal.NewFromInt(event.Data.Amount).Shift(-2)
	currency := event.Data.Currency
	if currency == "" {
		currency = "BRL"
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		stored, err := repo.FindByExternalID(ctx, event.Data.ID)
		if err != nil {
			return err
		}

		if stored == nil {
			payment := &models.Payment{
				ExternalID:    event.Data.ID,
				UserID:        userID,
				SubscriberID:  &subscriberID,
				PlanID:        planID,
				Amount:        amount,
				Currency:      currency,
				Status:        enums.PaymentStatusPending,
				PaymentMethod: enums.NormalizePaymentMethod(event.Data.PaymentMethod),
				WebhookData:   raw,
				LastEventAt:   occurredAt,
			}
			return repo.Create(ctx, payment)
		}

		// A replay carries the original timestamp; only a strictly newer
		// created event may rewrite the row, so late duplicates cannot
		// regress an already-advanced status.
		if !occurredAt.After(stored.LastEventAt) {
			s.logg.Info(ctx, "skipping stale payment.created delivery")
			return nil
		}

		stored.Amount = amount
		stored.Currency = currency
		stored.Status = enums.PaymentStatusPending
		stored.PaymentMethod = enums.NormalizePaymentMethod(event.Data.PaymentMethod)
		stored.WebhookData = raw
		stored.LastEventAt = occurredAt
		return repo.Update(ctx, stored)
	})
}

func (s *Service) onPaymentApproved(ctx context.Context, event *Event, raw []byte) error {
	occurredAt := event.OccurredAt(s.now())

	var (
		missing  bool
		platform uuid.UUID
		amount   decimal.Decimal
		applied  bool
	)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		stored, err := repo.FindByExternalID(ctx, event.Data.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			missing = true
			return nil
		}
		if occurredAt.Before(stored.LastEventAt) {
			s.logg.Info(ctx, "skipping stale payment.approved delivery")
			return nil
		}

		stored.Status = enums.PaymentStatusApproved
		stored.PaymentDate = &occurredAt
		stored.WebhookData = raw
		stored.LastEventAt = occurredAt
		if err := repo.Update(ctx, stored); err != nil {
			return err
		}

		if stored.SubscriberID != nil {
			if err := s.activateSubscriber(ctx, tx, *stored.SubscriberID); err != nil {
				return err
			}
		}

		platformID, err := s.resolvePlatform(ctx, tx, stored.PlanID)
		if err != nil {
			return err
		}
		platform = platformID
		amount = stored.Amount
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if missing {
		return s.deadLetter(ctx, event, raw, "payment.approved before payment.created: no payment row")
	}
	if applied {
		s.recordMetric(ctx, func() error {
			return s.metrics.RecordSale(ctx, platform, amount, occurredAt)
		})
	}
	return nil
}

func (s *Service) onPaymentFailed(ctx context.Context, event *Event, raw []byte) error {
	occurredAt := event.OccurredAt(s.now())

	var missing bool
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		stored, err := repo.FindByExternalID(ctx, event.Data.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			missing = true
			return nil
		}
		if occurredAt.Before(stored.LastEventAt) {
			s.logg.Info(ctx, "skipping stale payment.failed delivery")
			return nil
		}

		stored.Status = enums.PaymentStatusFailed
		stored.WebhookData = raw
		stored.LastEventAt = occurredAt
		return repo.Update(ctx, stored)
	})
	if err != nil {
		return err
	}
	if missing {
		return s.deadLetter(ctx, event, raw, "payment.failed: no payment row")
	}
	return nil
}

func (s *Service) onPaymentRefunded(ctx context.Context, event *Event, raw []byte) error {
	occurredAt := event.OccurredAt(s.now())
	reason := event.Data.Reason
	if reason == "" {
		reason = defaultReason
	}

	var (
		missing  bool
		platform uuid.UUID
		amount   decimal.Decimal
		applied  bool
	)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		stored, err := repo.FindByExternalID(ctx, event.Data.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			missing = true
			return nil
		}
		if occurredAt.Before(stored.LastEventAt) {
			s.logg.Info(ctx, "skipping stale payment.refunded delivery")
			return nil
		}

		stored.Status = enums.PaymentStatusRefunded
		stored.RefundDate = &occurredAt
		stored.RefundReason = &reason
		stored.WebhookData = raw
		stored.LastEventAt = occurredAt
		if err := repo.Update(ctx, stored); err != nil {
			return err
		}

		platformID, err := s.resolvePlatform(ctx, tx, stored.PlanID)
		if err != nil {
			return err
		}
		platform = platformID
		amount = stored.Amount
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if missing {
		return s.deadLetter(ctx, event, raw, "payment.refunded: no payment row")
	}
	if applied {
		s.recordMetric(ctx, func() error {
			return s.metrics.RecordRefund(ctx, platform, amount, occurredAt)
		})
	}
	return nil
}

func (s *Service) onSubscriptionCreated(ctx context.Context, event *Event, raw []byte) error {
	userID, ok := s.requireMetaUUID(ctx, event, raw, metaUserID)
	if !ok {
		return nil
	}
	planID, ok := s.requireMetaUUID(ctx, event, raw, metaPlanID)
	if !ok {
		return nil
	}
	platformID, ok := s.requireMetaUUID(ctx, event, raw, metaPlatformID)
	if !ok {
		return nil
	}

	occurredAt := event.OccurredAt(s.now())

	// A subscriberId in metadata addresses an existing row; without one this
	// is always a fresh subscriber with its own generated id.
	var subscriberID uuid.UUID
	if rawID := event.Data.Meta(metaSubscriberID); rawID != "" {
		parsed, err := uuid.Parse(rawID)
		if err != nil {
			return s.deadLetter(ctx, event, raw, "malformed metadata field "+metaSubscriberID)
		}
		subscriberID = parsed
	}

	var created bool
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.subscriberRepo.WithTx(tx)

		if subscriberID != uuid.Nil {
			stored, err := repo.FindByID(ctx, subscriberID)
			if err != nil {
				return err
			}
			if stored != nil {
				stored.UserID = userID
				stored.PlanID = planID
				stored.PlatformID = platformID
				stored.Status = enums.SubscriberStatusActive
				return repo.Update(ctx, stored)
			}
			created = true
			return repo.Create(ctx, &models.Subscriber{
				ID:         subscriberID,
				UserID:     userID,
				PlatformID: platformID,
				PlanID:     planID,
				Status:     enums.SubscriberStatusActive,
				StartDate:  occurredAt,
			})
		}

		created = true
		return repo.Create(ctx, &models.Subscriber{
			ID:         uuid.New(),
			UserID:     userID,
			PlatformID: platformID,
			PlanID:     planID,
			Status:     enums.SubscriberStatusActive,
			StartDate:  occurredAt,
		})
	})
	if err != nil {
		return err
	}
	if created {
		s.recordMetric(ctx, func() error {
			return s.metrics.RecordNewSubscriber(ctx, platformID, occurredAt)
		})
	}
	return nil
}

func (s *Service) onSubscriptionCanceled(ctx context.Context, event *Event, raw []byte) error {
	subscriberID, ok := s.requireMetaUUID(ctx, event, raw, metaSubscriberID)
	if !ok {
		return nil
	}

	occurredAt := event.OccurredAt(s.now())
	reason := event.Data.Reason
	if reason == "" {
		reason = defaultReason
	}

	var (
		missing    bool
		canceled   bool
		platformID uuid.UUID
	)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.subscriberRepo.WithTx(tx)
		stored, err := repo.FindByID(ctx, subscriberID)
		if err != nil {
			return err
		}
		if stored == nil {
			missing = true
			return nil
		}

		alreadyCanceled := stored.Status == enums.SubscriberStatusCanceled
		stored.Status = enums.SubscriberStatusCanceled
		stored.CancelDate = &occurredAt
		stored.CancelReason = &reason
		if err := repo.Update(ctx, stored); err != nil {
			return err
		}
		canceled = !alreadyCanceled
		platformID = stored.PlatformID
		return nil
	})
	if err != nil {
		return err
	}
	if missing {
		return s.deadLetter(ctx, event, raw, "subscription.canceled: no subscriber row")
	}
	if canceled {
		s.recordMetric(ctx, func() error {
			return s.metrics.RecordCanceledSubscriber(ctx, platformID, occurredAt)
		})
	}
	return nil
}

// activateSubscriber flips the linked subscriber back to active after an
// approved payment.
func (s *Service) activateSubscriber(ctx context.Context, tx *gorm.DB, subscriberID uuid.UUID) error {
	repo := s.subscriberRepo.WithTx(tx)
	subscriber, err := repo.FindByID(ctx, subscriberID)
	if err != nil {
		return err
	}
	if subscriber == nil {
		s.logg.Warn(ctx, "approved payment references missing subscriber")
		return nil
	}
	if subscriber.Status == enums.SubscriberStatusActive {
		return nil
	}
	subscriber.Status = enums.SubscriberStatusActive
	return repo.Update(ctx, subscriber)
}

// resolvePlatform maps a plan to its owning platform for metrics attribution.
func (s *Service) resolvePlatform(ctx context.Context, tx *gorm.DB, planID uuid.UUID) (uuid.UUID, error) {
	plan, err := s.planRepo.WithTx(tx).FindByID(ctx, planID)
	if err != nil {
		return uuid.Nil, err
	}
	if plan == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment references missing plan")
	}
	return plan.PlatformID, nil
}

// requireMetaUUID extracts a UUID metadata field, dead-lettering the event
// when it is absent or malformed. The boolean reports whether processing may
// continue.
func (s *Service) requireMetaUUID(ctx context.Context, event *Event, raw []byte, key string) (uuid.UUID, bool) {
	value := event.Data.Meta(key)
	if value == "" {
		_ = s.deadLetter(ctx, event, raw, "missing metadata field "+key)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		_ = s.deadLetter(ctx, event, raw, "malformed metadata field "+key)
		return uuid.Nil, false
	}
	return id, true
}

// recordMetric runs a counter update best-effort. Metrics failures never fail
// the acknowledgement nor roll back the write that preceded them.
func (s *Service) recordMetric(ctx context.Context, fn func() error) {
	if err := fn(); err != nil {
		s.logg.Error(ctx, "recording daily metric", err)
	}
}

// deadLetter stores the delivery for replay and acknowledges it. Failure to
// persist the letter is logged but still swallowed so the provider does not
// retry forever.
func (s *Service) deadLetter(ctx context.Context, event *Event, raw []byte, reason string) error {
	eventID := event.Data.ID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	letter := &models.WebhookDeadLetter{
		Provider:  Provider,
		EventID:   eventID,
		EventType: event.Event,
		Payload:   raw,
		Reason:    reason,
	}
	if err := s.deadLetterRepo.Record(ctx, letter); err != nil {
		s.logg.Error(ctx, "recording webhook dead letter", err)
	} else {
		s.logg.Warn(ctx, "webhook event dead lettered: "+reason)
	}
	s.observer.IncDeadLettered(event.Event)
	return nil
}
