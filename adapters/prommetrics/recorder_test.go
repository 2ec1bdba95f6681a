package prommetrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecorderCountsWithStableLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)

	tags := map[string]string{"action": "test_connection", "status": "success"}
	recorder.IncCounter(context.Background(), "bridge.test_connection.total", 1, tags)
	recorder.IncCounter(context.Background(), "bridge.test_connection.total", 2, tags)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("expected one metric family, got %d", len(families))
	}
	family := families[0]
	if family.GetName() != "bridge_test_connection_total" {
		t.Fatalf("expected sanitized metric name, got %q", family.GetName())
	}
	metrics := family.GetMetric()
	if len(metrics) != 1 {
		t.Fatalf("expected one labeled series, got %d", len(metrics))
	}
	if got := metrics[0].GetCounter().GetValue(); got != 3 {
		t.Fatalf("expected counter value 3, got %v", got)
	}
}

func TestRecorderObservesHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)

	recorder.ObserveHistogram(context.Background(), "bridge.get_models.duration_ms", 12.5, map[string]string{"status": "success"})
	recorder.ObserveHistogram(context.Background(), "bridge.get_models.duration_ms", 7.5, map[string]string{"status": "success"})

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("expected one metric family, got %d", len(families))
	}
	histogram := families[0].GetMetric()[0].GetHistogram()
	if histogram.GetSampleCount() != 2 {
		t.Fatalf("expected two samples, got %d", histogram.GetSampleCount())
	}
	if histogram.GetSampleSum() != 20 {
		t.Fatalf("expected sample sum 20, got %v", histogram.GetSampleSum())
	}
}

func TestRecorderIgnoresNonPositiveCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)

	recorder.IncCounter(context.Background(), "bridge.noop.total", 0, nil)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if len(families) != 0 {
		t.Fatalf("expected no metric families, got %d", len(families))
	}
}
