package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tappy-hq/tappy-backend/api/responses"
	"github.com/tappy-hq/tappy-backend/internal/metrics"
	"github.com/tappy-hq/tappy-backend/internal/payments"
	"github.com/tappy-hq/tappy-backend/internal/webhooks/kirvano"
	"github.com/tappy-hq/tappy-backend/pkg/enums"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
)

// DashboardMetrics serves the per-day counters and range totals that back the
// dashboard charts. Accepts optional platform_id, from and to (YYYY-MM-DD).
func DashboardMetrics(svc *metrics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "metrics service unavailable"))
			return
		}

		var platformID *uuid.UUID
		if raw := r.URL.Query().Get("platform_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform_id filter"))
				return
			}
			platformID = &id
		}

		var from, to time.Time
		if raw := r.URL.Query().Get("from"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from date"))
				return
			}
			from = parsed
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to date"))
				return
			}
			to = parsed
		}

		result, err := svc.GetDashboardMetrics(r.Context(), platformID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaymentList serves the reconciled payment log for the dashboard.
func PaymentList(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var params payments.ListQuery
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if limit, err := strconv.Atoi(raw); err == nil {
				params.Limit = limit
			}
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// WebhookDeadLetters exposes the stored unprocessable deliveries for triage.
func WebhookDeadLetters(repo kirvano.DeadLetterRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}

		list, err := repo.List(r.Context(), kirvano.Provider, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
