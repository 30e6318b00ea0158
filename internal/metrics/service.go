package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tappy-hq/tappy-backend/pkg/db/models"
)

// ServiceParams groups dependencies for the metrics service.
type ServiceParams struct {
	Repo Repository
}

// Service maintains the per-platform daily counters and serves the
// dashboard's read queries over them.
type Service struct {
	repo Repository
}

// NewService builds a metrics service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// WithTx returns a service whose writes run inside the provided transaction.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	if tx == nil {
		return s
	}
	return &Service{repo: s.repo.WithTx(tx)}
}

// RecordSale bumps the sale counters for the platform's day bucket.
func (s *Service) RecordSale(ctx context.Context, platformID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	return s.repo.IncrementDaily(ctx, platformID, at, Delta{Sales: 1, Revenue: amount})
}

// RecordRefund bumps the refund counters for the platform's day bucket.
func (s *Service) RecordRefund(ctx context.Context, platformID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	return s.repo.IncrementDaily(ctx, platformID, at, Delta{Refunds: 1, RefundAmount: amount})
}

// RecordNewSubscriber bumps the new-subscriber counter for the day bucket.
func (s *Service) RecordNewSubscriber(ctx context.Context, platformID uuid.UUID, at time.Time) error {
	return s.repo.IncrementDaily(ctx, platformID, at, Delta{NewSubscribers: 1})
}

// RecordCanceledSubscriber bumps the canceled-subscriber counter for the day bucket.
func (s *Service) RecordCanceledSubscriber(ctx context.Context, platformID uuid.UUID, at time.Time) error {
	return s.repo.IncrementDaily(ctx, platformID, at, Delta{CanceledSubscribers: 1})
}

// Summary totals a range of daily rows for the dashboard header cards.
type Summary struct {
	Sales               int64           `json:"sales"`
	Revenue             decimal.Decimal `json:"revenue"`
	Refunds             int64           `json:"refunds"`
	RefundAmount        decimal.Decimal `json:"refund_amount"`
	NewSubscribers      int64           `json:"new_subscribers"`
	CanceledSubscribers int64           `json:"canceled_subscribers"`
}

// DashboardMetrics is the dashboard read-model: the raw daily rows plus the
// totals over the requested window.
type DashboardMetrics struct {
	Days    []models.DailyMetric `json:"days"`
	Summary Summary              `json:"summary"`
}

// GetDashboardMetrics returns daily rows and totals over a window. A zero
// window defaults to the trailing 30 days.
func (s *Service) GetDashboardMetrics(ctx context.Context, platformID *uuid.UUID, from, to time.Time) (*DashboardMetrics, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return nil, errors.New("metrics range start is after end")
	}

	days, err := s.repo.ListRange(ctx, RangeQuery{PlatformID: platformID, From: from, To: to})
	if err != nil {
		return nil, err
	}

	summary := Summary{
		Revenue:      decimal.Zero,
		RefundAmount: decimal.Zero,
	}
	for _, day := range days {
		summary.Sales += day.Sales
		summary.Revenue = summary.Revenue.Add(day.Revenue)
		summary.Refunds += day.Refunds
		summary.RefundAmount = summary.RefundAmount.Add(day.RefundAmount)
		summary.NewSubscribers += day.NewSubscribers
		summary.CanceledSubscribers += day.CanceledSubscribers
	}

	return &DashboardMetrics{Days: days, Summary: summary}, nil
}
