package kirvano

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/tappy-hq/tappy-backend/internal/settings"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "x-kirvano-signature"

// Verifier authenticates webhook deliveries against the active provider
// secret. Verification fails closed: a missing header is only accepted when
// allowUnsigned is set (a dev-environment escape hatch, never prod).
type Verifier struct {
	settings      settings.Repository
	logg          *logger.Logger
	allowUnsigned bool
}

// NewVerifier builds a signature verifier.
func NewVerifier(repo settings.Repository, logg *logger.Logger, allowUnsigned bool) (*Verifier, error) {
	if repo == nil {
		return nil, errors.New("settings repo is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Verifier{settings: repo, logg: logg, allowUnsigned: allowUnsigned}, nil
}

// Verify reports whether the delivery is authentic. Any lookup or decode
// problem counts as a verification failure, never an error to the caller.
func (v *Verifier) Verify(ctx context.Context, rawBody []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		if v.allowUnsigned {
			v.logg.Warn(ctx, "accepting unsigned webhook delivery (allow-unsigned enabled)")
			return true
		}
		return false
	}

	cfg, err := v.settings.FindActiveByProvider(ctx, Provider)
	if err != nil {
		v.logg.Error(ctx, "loading webhook secret", err)
		return false
	}
	if cfg == nil || cfg.WebhookSecret == "" {
		v.logg.Warn(ctx, "no active webhook secret configured")
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(cfg.WebhookSecret))
	mac.Write(rawBody)
	return hmac.Equal(provided, mac.Sum(nil))
}
