package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
	"github.com/mhmdrz22/enginner/internal/infra/telemetry"
)

// Dispatcher executes a notification job once, sending to each recipient in order.
type Dispatcher struct {
	mailer  port.Mailer
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewDispatcher constructs a Dispatcher instance.
func NewDispatcher(mailer port.Mailer, metrics *telemetry.Metrics, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		mailer:  mailer,
		metrics: metrics,
		tracer:  otel.Tracer(telemetry.TracerName),
		logger:  log,
	}
}

// Execute sends the job. A failure for one recipient is recorded and the loop continues;
// a transport-level failure aborts the attempt with *TransientDispatchError.
func (d *Dispatcher) Execute(ctx context.Context, job domain.NotificationJob) (domain.DispatchResult, error) {
	ctx, span := d.tracer.Start(ctx, "notification.dispatch", trace.WithAttributes(
		attribute.String("job.id", job.JobID),
		attribute.Int("job.attempt", job.AttemptCount),
		attribute.Int("job.recipients", len(job.Recipients)),
	))
	defer span.End()

	log := d.logger.With(zap.String("job_id", job.JobID), zap.Int("attempt", job.AttemptCount))
	log.Info("sending notification", zap.Int("recipients", len(job.Recipients)))

	result := domain.DispatchResult{
		JobID:        job.JobID,
		FailedEmails: []string{},
		Total:        len(job.Recipients),
	}

	for _, recipient := range job.Recipients {
		err := d.mailer.Send(ctx, domain.Email{To: recipient, Subject: job.Subject, Body: job.Message})
		if err == nil {
			result.SentCount++
			log.Debug("notification sent", zap.String("recipient", logger.MaskEmail(recipient)))
			continue
		}

		if isTransportFailure(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transport unavailable")
			d.metrics.JobAttempt("transient")
			log.Warn("mail transport unavailable, aborting attempt", zap.Error(err))
			return domain.DispatchResult{}, &TransientDispatchError{JobID: job.JobID, Attempt: job.AttemptCount, Err: err}
		}

		result.FailedEmails = append(result.FailedEmails, recipient)
		log.Error("notification failed for recipient", zap.String("recipient", logger.MaskEmail(recipient)), zap.Error(err))
	}
	result.FailedCount = len(result.FailedEmails)

	d.metrics.Dispatched(result.SentCount, result.FailedCount)
	d.metrics.JobAttempt("completed")
	span.SetAttributes(
		attribute.Int("job.sent", result.SentCount),
		attribute.Int("job.failed", result.FailedCount),
	)
	log.Info("notification job completed",
		zap.Int("sent_count", result.SentCount),
		zap.Int("failed_count", result.FailedCount),
		zap.Strings("failed_emails", logger.MaskEmails(result.FailedEmails)),
		zap.Int("total", result.Total),
	)

	return result, nil
}

// Handle adapts Execute to port.JobHandler.
func (d *Dispatcher) Handle(ctx context.Context, job domain.NotificationJob) error {
	_, err := d.Execute(ctx, job)
	return err
}

var _ port.JobHandler = (*Dispatcher)(nil)
