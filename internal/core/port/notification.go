package port

import (
	"context"
	"errors"

	"github.com/mhmdrz22/enginner/internal/core/domain"
)

// ErrTransportUnavailable marks mail failures that affect every recipient, such as an
// unreachable server or an open circuit breaker. Jobs failing this way are retried.
var ErrTransportUnavailable = errors.New("mail transport unavailable")

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, email domain.Email) error
}

// JobQueue accepts notification jobs for asynchronous execution.
type JobQueue interface {
	// Submit enqueues the job and returns the queue's own task identifier.
	Submit(ctx context.Context, job domain.NotificationJob) (string, error)
}

// JobHandler executes a dequeued notification job.
type JobHandler interface {
	Handle(ctx context.Context, job domain.NotificationJob) error
}

// JobHandlerFunc adapts a function to JobHandler.
type JobHandlerFunc func(ctx context.Context, job domain.NotificationJob) error

// Handle calls f(ctx, job).
func (f JobHandlerFunc) Handle(ctx context.Context, job domain.NotificationJob) error {
	return f(ctx, job)
}

// DeadLetterSink receives jobs whose retry budget is exhausted.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, job domain.NotificationJob, cause error) error
}
