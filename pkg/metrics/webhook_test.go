package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestWebhookMetricsRecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.IncReceived("payment.created")
	m.IncReceived("payment.created")
	m.IncDeadLettered("payment.approved")
	m.ObserveDuration("payment.created", 50*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	received := findMetric(t, families, "webhook_events_received_total")
	if got := received.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 received, got %v", got)
	}

	dead := findMetric(t, families, "webhook_events_dead_lettered_total")
	if got := dead.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 dead lettered, got %v", got)
	}

	duration := findMetric(t, families, "webhook_handle_duration_seconds")
	if got := duration.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("expected 1 duration sample, got %v", got)
	}
}

func TestWebhookMetricsNilSafe(t *testing.T) {
	var m *WebhookMetrics
	m.IncReceived("payment.created")
	m.IncDeadLettered("payment.created")
	m.ObserveDuration("payment.created", time.Millisecond)

	unregistered := NewWebhookMetrics(nil)
	unregistered.IncReceived("payment.created")
}

func TestNormalizeLabelFallsBack(t *testing.T) {
	if got := normalizeLabel(""); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
