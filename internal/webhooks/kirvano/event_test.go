package kirvano

import (
	"testing"
	"time"
)

func TestParseEventDecodesEnvelope(t *testing.T) {
	raw := []byte(`{
		"event": "payment.approved",
		"data": {
			"id": "pay_abc",
			"amount": 4599,
			"currency": "BRL",
			"paymentMethod": "pix",
			"createdAt": "2025-06-10T12:00:00Z",
			"metadata": {"userId": " 8d7f7c8e-3a6f-4f7e-9f1a-111111111111 "}
		}
	}`)

	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Event != EventPaymentApproved {
		t.Fatalf("expected payment.approved, got %q", event.Event)
	}
	if event.Data.Amount != 4599 {
		t.Fatalf("expected amount 4599, got %d", event.Data.Amount)
	}
	if got := event.Data.Meta("userId"); got != "8d7f7c8e-3a6f-4f7e-9f1a-111111111111" {
		t.Fatalf("metadata not trimmed: %q", got)
	}
	if event.Data.Meta("planId") != "" {
		t.Fatal("absent metadata key should be empty")
	}
}

func TestParseEventRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"event":`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestOccurredAtFallsBackToReceiveTime(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	withTimestamp := &Event{Data: EventData{CreatedAt: ptrTime(now.Add(-time.Hour))}}
	if got := withTimestamp.OccurredAt(now); !got.Equal(now.Add(-time.Hour)) {
		t.Fatalf("expected provider timestamp, got %s", got)
	}

	withoutTimestamp := &Event{}
	if got := withoutTimestamp.OccurredAt(now); !got.Equal(now) {
		t.Fatalf("expected receive time fallback, got %s", got)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
