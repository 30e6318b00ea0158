package controllers

import (
	"net/http"

	"github.com/tappy-hq/tappy-backend/api/responses"
	"github.com/tappy-hq/tappy-backend/api/validators"
	"github.com/tappy-hq/tappy-backend/internal/settings"
	"github.com/tappy-hq/tappy-backend/internal/webhooks/kirvano"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
)

// PaymentSettingsStatus reports whether the Kirvano webhook secret is
// configured, masked for display.
func PaymentSettingsStatus(svc *settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		provider := r.URL.Query().Get("provider")
		if provider == "" {
			provider = kirvano.Provider
		}

		status, err := svc.Status(r.Context(), provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// PaymentSettingsRotate installs a new active webhook secret.
func PaymentSettingsRotate(svc *settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var input settings.RotateSecretInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.RotateSecret(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":       cfg.ID,
			"provider": cfg.Provider,
			"active":   cfg.Active,
		})
	}
}
