package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/telemetry"
)

// RetryPolicy re-runs a job with a fixed delay while it fails transiently.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Run executes h until it succeeds, fails permanently, or the retries are spent.
// job.AttemptCount is incremented before every attempt.
func (p RetryPolicy) Run(ctx context.Context, job domain.NotificationJob, h port.JobHandler) error {
	for retries := 0; ; retries++ {
		job.AttemptCount++
		err := h.Handle(ctx, job)
		if err == nil || !IsTransient(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if retries >= p.MaxRetries {
			return &RetriesExhaustedError{Attempts: job.AttemptCount, Err: err}
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// NotificationWorker runs dispatch attempts under a RetryPolicy and dead-letters exhausted jobs.
// A nil return means the job reached a terminal outcome and may be acknowledged.
type NotificationWorker struct {
	policy     RetryPolicy
	handler    port.JobHandler
	deadLetter port.DeadLetterSink
	metrics    *telemetry.Metrics
	logger     *zap.Logger
}

// NewNotificationWorker constructs a NotificationWorker instance.
func NewNotificationWorker(policy RetryPolicy, handler port.JobHandler, deadLetter port.DeadLetterSink, metrics *telemetry.Metrics, log *zap.Logger) *NotificationWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationWorker{
		policy:     policy,
		handler:    handler,
		deadLetter: deadLetter,
		metrics:    metrics,
		logger:     log,
	}
}

// Handle returns an error only when the job must stay unacknowledged, such as on shutdown
// or when the dead-letter sink itself failed.
func (w *NotificationWorker) Handle(ctx context.Context, job domain.NotificationJob) error {
	err := w.policy.Run(ctx, job, w.handler)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		w.logger.Error("notification job failed permanently", zap.String("job_id", job.JobID), zap.Error(err))
		return nil
	}

	job.AttemptCount = exhausted.Attempts
	return DeadLetter(ctx, w.deadLetter, job, err, w.metrics, w.logger)
}

// DeadLetter hands an exhausted job to sink and records it. A nil sink only logs.
func DeadLetter(ctx context.Context, sink port.DeadLetterSink, job domain.NotificationJob, cause error, metrics *telemetry.Metrics, log *zap.Logger) error {
	metrics.DeadLettered()
	log.Error("notification job abandoned after retries",
		zap.String("job_id", job.JobID),
		zap.Int("attempts", job.AttemptCount),
		zap.Int("recipients", len(job.Recipients)),
		zap.Error(cause),
	)
	if sink == nil {
		return nil
	}
	if err := sink.DeadLetter(ctx, job, cause); err != nil {
		log.Error("dead-letter publish failed", zap.String("job_id", job.JobID), zap.Error(err))
		return err
	}
	return nil
}

type deadLetterLog struct {
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// NewDeadLetterLog returns a sink that only logs and counts abandoned jobs. It serves queues
// that already persist dead letters themselves.
func NewDeadLetterLog(metrics *telemetry.Metrics, log *zap.Logger) port.DeadLetterSink {
	if log == nil {
		log = zap.NewNop()
	}
	return deadLetterLog{metrics: metrics, logger: log}
}

func (d deadLetterLog) DeadLetter(ctx context.Context, job domain.NotificationJob, cause error) error {
	return DeadLetter(ctx, nil, job, cause, d.metrics, d.logger)
}

var _ port.JobHandler = (*NotificationWorker)(nil)
