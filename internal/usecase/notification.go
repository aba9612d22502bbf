package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
)

// NotifyRequest is an admin broadcast as submitted over HTTP.
type NotifyRequest struct {
	Recipients []string
	Subject    string
	Message    string
}

// EnqueueReceipt acknowledges a queued broadcast.
type EnqueueReceipt struct {
	JobID   string `json:"job_id"`
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NotificationService turns admin broadcasts into queued jobs.
type NotificationService struct {
	queue  port.JobQueue
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService constructs a NotificationService instance.
func NewNotificationService(queue port.JobQueue, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{queue: queue, logger: log, now: time.Now}
}

// WithClock overrides the clock used for enqueue timestamps.
func (s *NotificationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Enqueue validates the request and submits it without waiting for delivery.
func (s *NotificationService) Enqueue(ctx context.Context, req NotifyRequest) (EnqueueReceipt, error) {
	if len(req.Recipients) == 0 {
		return EnqueueReceipt{}, ErrMissingRecipients
	}
	if req.Message == "" {
		return EnqueueReceipt{}, ErrMissingMessage
	}

	subject := req.Subject
	if strings.TrimSpace(subject) == "" {
		subject = domain.DefaultNotificationSubject
	}

	job := domain.NotificationJob{
		JobID:      uuid.NewString(),
		Recipients: append([]string(nil), req.Recipients...),
		Subject:    subject,
		Message:    req.Message,
		EnqueuedAt: s.now().UTC(),
	}

	taskID, err := s.queue.Submit(ctx, job)
	if err != nil {
		return EnqueueReceipt{}, fmt.Errorf("submit notification job: %w", err)
	}

	logger.WithContext(ctx, s.logger).Info("notification job queued",
		zap.String("job_id", job.JobID),
		zap.String("task_id", taskID),
		zap.Int("recipients", len(job.Recipients)),
	)

	return EnqueueReceipt{
		JobID:   job.JobID,
		TaskID:  taskID,
		Status:  "queued",
		Message: fmt.Sprintf("Email notification queued for %d recipients", len(job.Recipients)),
	}, nil
}
