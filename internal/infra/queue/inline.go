package queue

import (
	"context"

	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
)

// InlineQueue runs each job synchronously inside Submit. It exists for tests and
// single-process demos; the caller still receives only the enqueue receipt.
type InlineQueue struct {
	handler port.JobHandler
	logger  *zap.Logger
}

func NewInlineQueue(handler port.JobHandler, log *zap.Logger) *InlineQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &InlineQueue{handler: handler, logger: log}
}

func (q *InlineQueue) Submit(ctx context.Context, job domain.NotificationJob) (string, error) {
	if err := q.handler.Handle(context.WithoutCancel(ctx), job); err != nil {
		q.logger.Warn("inline notification job did not complete", zap.String("job_id", job.JobID), zap.Error(err))
	}
	return job.JobID, nil
}

var _ port.JobQueue = (*InlineQueue)(nil)
