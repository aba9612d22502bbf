package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taskboard"

// Metrics holds the domain collectors shared by use cases and queue workers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthFailures        *prometheus.CounterVec
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	DeadLetteredJobs    prometheus.Counter
	JobAttempts         *prometheus.CounterVec
}

// NewMetrics registers the domain collectors on reg, reusing ones already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	authFailures, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Failed login attempts partitioned by internal reason.",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}

	sent, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Notification emails accepted by the mail transport.",
	}))
	if err != nil {
		return nil, err
	}

	failed, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_failed_total",
		Help:      "Notification emails rejected for a single recipient.",
	}))
	if err != nil {
		return nil, err
	}

	deadLettered, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dead_lettered_total",
		Help:      "Notification jobs that exhausted their retries.",
	}))
	if err != nil {
		return nil, err
	}

	attempts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_job_attempts_total",
		Help:      "Notification job executions partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		AuthFailures:        authFailures,
		NotificationsSent:   sent,
		NotificationsFailed: failed,
		DeadLetteredJobs:    deadLettered,
		JobAttempts:         attempts,
	}, nil
}

// AuthFailure counts a failed login by reason.
func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// Dispatched records the per-recipient outcome of one job execution.
func (m *Metrics) Dispatched(sent, failed int) {
	if m == nil {
		return
	}
	m.NotificationsSent.Add(float64(sent))
	m.NotificationsFailed.Add(float64(failed))
}

// JobAttempt counts one job execution by outcome (success, transient, cancelled).
func (m *Metrics) JobAttempt(outcome string) {
	if m == nil {
		return
	}
	m.JobAttempts.WithLabelValues(outcome).Inc()
}

// DeadLettered counts a job handed to the dead-letter path.
func (m *Metrics) DeadLettered() {
	if m == nil {
		return
	}
	m.DeadLetteredJobs.Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return collector, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(C)
		if !ok {
			return collector, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}
