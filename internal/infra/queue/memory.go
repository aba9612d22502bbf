// Package queue provides the in-process notification job queues.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/config"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

const (
	notificationsTopic = "notifications"
	deadLetterTopic    = "notifications.dead_letter"

	// attemptKey counts handler invocations across watermill retries.
	attemptKey = "attempt_count"

	// startupTimeout bounds how long Submit waits for a router that has not started yet.
	startupTimeout = 5 * time.Second
)

// ErrQueueStopped is returned by Submit once the router has exited or the queue is closed.
var ErrQueueStopped = errors.New("notification queue stopped")

// MemoryQueue runs notification jobs on a watermill router over an in-process channel.
// Transient failures are retried with a fixed delay; exhausted jobs move to a dead-letter
// topic whose handler forwards them to the configured sink.
type MemoryQueue struct {
	pubsub      *gochannel.GoChannel
	router      *message.Router
	handler     port.JobHandler
	deadLetters port.DeadLetterSink
	logger      *zap.Logger

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewMemoryQueue wires the router and its handlers. Call Serve to start consuming.
func NewMemoryQueue(cfg config.QueueSettings, handler port.JobHandler, deadLetters port.DeadLetterSink, log *zap.Logger) (*MemoryQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	wmLogger := newZapAdapter(log)

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	q := &MemoryQueue{
		pubsub:      pubsub,
		router:      router,
		handler:     handler,
		deadLetters: deadLetters,
		logger:      log,
		stopped:     make(chan struct{}),
	}

	poisonQueue, err := middleware.PoisonQueue(pubsub, deadLetterTopic)
	if err != nil {
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	retry := middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryDelay,
		MaxInterval:     cfg.RetryDelay,
		Multiplier:      1,
		Logger:          wmLogger,
	}

	dispatch := router.AddNoPublisherHandler("notifications.dispatch", notificationsTopic, pubsub, q.dispatch)
	// Outermost first: the poison queue only sees errors the retry budget could not absorb.
	dispatch.AddMiddleware(poisonQueue, retry.Middleware, middleware.Recoverer)

	deadLetter := router.AddNoPublisherHandler("notifications.dead_letter", deadLetterTopic, pubsub, q.deadLetter)
	deadLetter.AddMiddleware(middleware.Recoverer)

	return q, nil
}

// Submit publishes the job once the router is consuming. The job id doubles as the task id.
func (q *MemoryQueue) Submit(ctx context.Context, job domain.NotificationJob) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode notification job: %w", err)
	}

	select {
	case <-q.stopped:
		return "", ErrQueueStopped
	default:
	}

	wait := time.NewTimer(startupTimeout)
	defer wait.Stop()

	select {
	case <-q.router.Running():
	case <-q.stopped:
		return "", ErrQueueStopped
	case <-wait.C:
		return "", fmt.Errorf("notification queue not running after %s", startupTimeout)
	case <-ctx.Done():
		return "", fmt.Errorf("notification queue not running: %w", ctx.Err())
	}

	msg := message.NewMessage(job.JobID, payload)
	if err := q.pubsub.Publish(notificationsTopic, msg); err != nil {
		return "", fmt.Errorf("publish notification job: %w", err)
	}
	return job.JobID, nil
}

// Serve runs the router until ctx is cancelled. A router cannot be restarted, so any
// other exit tells the supervisor not to retry.
func (q *MemoryQueue) Serve(ctx context.Context) error {
	defer q.markStopped()

	err := q.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("router stopped")
	}
	return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
}

// Running is closed once the router consumes messages.
func (q *MemoryQueue) Running() chan struct{} {
	return q.router.Running()
}

// Close stops the router and the underlying channel.
func (q *MemoryQueue) Close() error {
	q.markStopped()
	return errors.Join(q.router.Close(), q.pubsub.Close())
}

func (q *MemoryQueue) markStopped() {
	q.stopOnce.Do(func() { close(q.stopped) })
}

func (q *MemoryQueue) dispatch(msg *message.Message) error {
	job, err := decodeJob(msg)
	if err != nil {
		q.logger.Error("dropping undecodable notification job", zap.String("message_uuid", msg.UUID), zap.Error(err))
		return nil
	}

	attempt, _ := strconv.Atoi(msg.Metadata.Get(attemptKey))
	attempt++
	msg.Metadata.Set(attemptKey, strconv.Itoa(attempt))
	job.AttemptCount = attempt

	err = q.handler.Handle(msg.Context(), job)
	if err != nil && !usecase.IsTransient(err) {
		q.logger.Error("notification job failed permanently", zap.String("job_id", job.JobID), zap.Error(err))
		return nil
	}
	return err
}

func (q *MemoryQueue) deadLetter(msg *message.Message) error {
	job, err := decodeJob(msg)
	if err != nil {
		q.logger.Error("undecodable dead-lettered job", zap.String("message_uuid", msg.UUID), zap.Error(err))
		return nil
	}
	job.AttemptCount, _ = strconv.Atoi(msg.Metadata.Get(attemptKey))

	cause := errors.New(msg.Metadata.Get(middleware.ReasonForPoisonedKey))
	if err := q.deadLetters.DeadLetter(msg.Context(), job, cause); err != nil {
		q.logger.Error("dead-letter sink failed", zap.String("job_id", job.JobID), zap.Error(err))
	}
	return nil
}

func decodeJob(msg *message.Message) (domain.NotificationJob, error) {
	var job domain.NotificationJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return domain.NotificationJob{}, err
	}
	if job.JobID == "" {
		job.JobID = msg.UUID
	}
	return job, nil
}

var (
	_ port.JobQueue           = (*MemoryQueue)(nil)
	_ watermill.LoggerAdapter = zapAdapter{}
)
