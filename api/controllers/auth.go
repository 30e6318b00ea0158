package controllers

import (
	"net/http"
	"time"

	"github.com/tappy-hq/tappy-backend/api/middleware"
	"github.com/tappy-hq/tappy-backend/api/responses"
	"github.com/tappy-hq/tappy-backend/api/validators"
	"github.com/tappy-hq/tappy-backend/internal/auth"
	"github.com/tappy-hq/tappy-backend/pkg/config"
	pkgerrors "github.com/tappy-hq/tappy-backend/pkg/errors"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
)

// Login authenticates a dashboard user and installs the session cookie.
func Login(svc *auth.Service, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var input auth.LoginInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, sessionCookie(jwtCfg, result.Token, result.ExpiresAt))

		responses.WriteSuccess(w, map[string]any{
			"token":      result.Token,
			"expires_at": result.ExpiresAt,
			"user": map[string]any{
				"id":    result.User.ID,
				"name":  result.User.Name,
				"email": result.User.Email,
				"role":  result.User.Role,
			},
		})
	}
}

// Logout revokes the current session and clears the cookie.
func Logout(svc *auth.Service, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expired := sessionCookie(jwtCfg, "", time.Unix(0, 0))
		expired.MaxAge = -1
		http.SetCookie(w, expired)

		responses.WriteSuccess(w, map[string]bool{"logged_out": true})
	}
}

// Me returns the authenticated caller's identity from the request context.
func Me(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"id":   userID,
			"role": middleware.RoleFromContext(r.Context()),
		})
	}
}

func sessionCookie(cfg config.JWTConfig, token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
