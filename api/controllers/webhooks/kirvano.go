package webhooks

import (
	"io"
	"net/http"

	"github.com/tappy-hq/tappy-backend/api/responses"
	"github.com/tappy-hq/tappy-backend/internal/webhooks/kirvano"
	"github.com/tappy-hq/tappy-backend/pkg/logger"
)

// Response bodies are fixed by the provider integration contract.
var (
	bodyReceived     = map[string]bool{"received": true}
	bodyEmpty        = map[string]string{"error": "Nenhum dado recebido"}
	bodyBadSignature = map[string]string{"error": "Assinatura inválida"}
	bodyInternal     = map[string]string{"error": "Erro interno do servidor"}
)

// KirvanoParams groups the webhook endpoint dependencies.
type KirvanoParams struct {
	Service  *kirvano.Service
	Verifier *kirvano.Verifier
	Guard    *kirvano.IdempotencyGuard
	Logger   *logger.Logger
}

// Kirvano receives provider deliveries. Once a delivery authenticates and
// parses, the endpoint always acknowledges with 200 so the provider stops
// retrying; business-rule failures are dead-lettered inside the service.
func Kirvano(params KirvanoParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logg := params.Logger

		if params.Service == nil || params.Verifier == nil {
			responses.WriteRaw(w, http.StatusInternalServerError, bodyInternal)
			return
		}

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			logg.Error(ctx, "reading webhook body", err)
			responses.WriteRaw(w, http.StatusInternalServerError, bodyInternal)
			return
		}
		if len(raw) == 0 {
			responses.WriteRaw(w, http.StatusBadRequest, bodyEmpty)
			return
		}

		if !params.Verifier.Verify(ctx, raw, r.Header.Get(kirvano.SignatureHeader)) {
			logg.Warn(ctx, "webhook signature rejected")
			responses.WriteRaw(w, http.StatusUnauthorized, bodyBadSignature)
			return
		}

		event, err := kirvano.ParseEvent(raw)
		if err != nil {
			logg.Error(ctx, "parsing webhook payload", err)
			responses.WriteRaw(w, http.StatusInternalServerError, bodyInternal)
			return
		}

		// Suppress exact redeliveries of an event we already acknowledged.
		var marked bool
		if params.Guard != nil && event.Data.ID != "" {
			seen, err := params.Guard.CheckAndMark(ctx, event.Event+":"+event.Data.ID)
			if err != nil {
				logg.Error(ctx, "idempotency check failed, processing anyway", err)
			} else if seen {
				logg.Info(ctx, "duplicate webhook delivery suppressed")
				responses.WriteRaw(w, http.StatusOK, bodyReceived)
				return
			} else {
				marked = true
			}
		}

		if err := params.Service.HandleEvent(ctx, event, raw); err != nil {
			if marked {
				if delErr := params.Guard.Delete(ctx, event.Event+":"+event.Data.ID); delErr != nil {
					logg.Error(ctx, "releasing idempotency mark", delErr)
				}
			}
			logg.Error(ctx, "handling webhook event", err)
			responses.WriteRaw(w, http.StatusInternalServerError, bodyInternal)
			return
		}

		responses.WriteRaw(w, http.StatusOK, bodyReceived)
	}
}
