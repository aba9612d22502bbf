package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	metrics.AuthFailure("bad_password")
	metrics.AuthFailure("bad_password")
	metrics.Dispatched(3, 1)
	metrics.DeadLettered()
	metrics.JobAttempt("transient")

	if got := testutil.ToFloat64(metrics.AuthFailures.WithLabelValues("bad_password")); got != 2 {
		t.Fatalf("expected 2 auth failures, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.NotificationsSent); got != 3 {
		t.Fatalf("expected 3 sent, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.NotificationsFailed); got != 1 {
		t.Fatalf("expected 1 failed, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.DeadLetteredJobs); got != 1 {
		t.Fatalf("expected 1 dead-lettered job, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.JobAttempts.WithLabelValues("transient")); got != 1 {
		t.Fatalf("expected 1 transient attempt, got %f", got)
	}
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewMetrics(registry)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	second, err := NewMetrics(registry)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}

	first.AuthFailure("inactive")
	if got := testutil.ToFloat64(second.AuthFailures.WithLabelValues("inactive")); got != 1 {
		t.Fatalf("expected shared collector, got %f", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.AuthFailure("x")
	metrics.Dispatched(1, 1)
	metrics.DeadLettered()
	metrics.JobAttempt("success")
}
