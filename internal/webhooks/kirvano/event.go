package kirvano

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Provider is the identifier used for config lookup, dead letters and
// idempotency keys.
const Provider = "kirvano"

// Recognized event types.
const (
	EventPaymentCreated       = "payment.created"
	EventPaymentApproved      = "payment.approved"
	EventPaymentFailed        = "payment.failed"
	EventPaymentRefunded      = "payment.refunded"
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionCanceled = "subscription.canceled"
)

// Metadata keys Kirvano relays back to us verbatim from checkout.
const (
	metaUserID       = "userId"
	metaPlanID       = "planId"
	metaSubscriberID = "subscriberId"
	metaPlatformID   = "platformId"
)

// defaultReason is stored when the provider omits a refund/cancel reason.
const defaultReason = "Sem motivo especificado"

// Event is Kirvano's webhook envelope.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData is the provider-side payload. Amount arrives in minor units
// (centavos); CreatedAt is the provider's event timestamp and drives the
// stale-delivery guard.
type EventData struct {
	ID            string            `json:"id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"paymentMethod"`
	Reason        string            `json:"reason"`
	CreatedAt     *time.Time        `json:"createdAt"`
	Metadata      map[string]string `json:"metadata"`
}

// ParseEvent decodes the raw webhook body into an Event.
func ParseEvent(raw []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("decoding webhook payload: %w", err)
	}
	return &event, nil
}

// OccurredAt returns the provider timestamp, falling back to the receive time
// when the payload carries none.
func (e *Event) OccurredAt(now time.Time) time.Time {
	if e.Data.CreatedAt != nil && !e.Data.CreatedAt.IsZero() {
		return e.Data.CreatedAt.UTC()
	}
	return now.UTC()
}

// Meta returns the named metadata value, trimmed of surrounding whitespace.
func (d EventData) Meta(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(d.Metadata[key])
}
