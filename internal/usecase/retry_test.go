package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
)

func transientHandler(attempts *[]int, failFor int) port.JobHandler {
	return port.JobHandlerFunc(func(_ context.Context, job domain.NotificationJob) error {
		*attempts = append(*attempts, job.AttemptCount)
		if len(*attempts) <= failFor {
			return &TransientDispatchError{JobID: job.JobID, Attempt: job.AttemptCount, Err: port.ErrTransportUnavailable}
		}
		return nil
	})
}

func TestRetryPolicyRecoversAfterTransientFailures(t *testing.T) {
	var attempts []int
	policy := RetryPolicy{MaxRetries: 3, Delay: time.Millisecond}

	err := policy.Run(context.Background(), domain.NotificationJob{JobID: "j"}, transientHandler(&attempts, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestRetryPolicyGivesUpAfterMaxRetries(t *testing.T) {
	var attempts []int
	policy := RetryPolicy{MaxRetries: 3, Delay: time.Millisecond}

	err := policy.Run(context.Background(), domain.NotificationJob{JobID: "j"}, transientHandler(&attempts, 100))

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, []int{1, 2, 3, 4}, attempts)
	assert.ErrorIs(t, err, port.ErrTransportUnavailable)
}

func TestRetryPolicyDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	permanent := errors.New("bad payload")
	h := port.JobHandlerFunc(func(context.Context, domain.NotificationJob) error {
		calls++
		return permanent
	})

	err := RetryPolicy{MaxRetries: 3, Delay: time.Millisecond}.Run(context.Background(), domain.NotificationJob{}, h)
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var attempts []int
	h := port.JobHandlerFunc(func(_ context.Context, job domain.NotificationJob) error {
		attempts = append(attempts, job.AttemptCount)
		cancel()
		return &TransientDispatchError{JobID: job.JobID, Attempt: job.AttemptCount, Err: port.ErrTransportUnavailable}
	})

	err := RetryPolicy{MaxRetries: 3, Delay: time.Hour}.Run(ctx, domain.NotificationJob{}, h)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, attempts, 1)
}

func TestNotificationWorkerDeadLettersExhaustedJobs(t *testing.T) {
	var attempts []int
	sink := &recordingDeadLetters{}
	metrics := newTestMetrics(t)
	worker := NewNotificationWorker(RetryPolicy{MaxRetries: 3, Delay: time.Millisecond}, transientHandler(&attempts, 100), sink, metrics, nil)

	err := worker.Handle(context.Background(), domain.NotificationJob{JobID: "doomed", Recipients: []string{"a@example.com"}})
	require.NoError(t, err)

	require.Len(t, sink.jobs, 1)
	assert.Equal(t, "doomed", sink.jobs[0].JobID)
	assert.Equal(t, 4, sink.jobs[0].AttemptCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DeadLetteredJobs))
}

func TestNotificationWorkerEndToEndWithDispatcher(t *testing.T) {
	mailer := &scriptedMailer{failures: map[string]error{"b@example.com": errRecipientRejected}}
	sink := &recordingDeadLetters{}
	worker := NewNotificationWorker(RetryPolicy{MaxRetries: 3, Delay: time.Millisecond}, NewDispatcher(mailer, nil, nil), sink, nil, nil)

	err := worker.Handle(context.Background(), domain.NotificationJob{JobID: "j", Recipients: []string{"a@example.com", "b@example.com"}})
	require.NoError(t, err)
	assert.Empty(t, sink.jobs, "per-recipient failures are not retried")
	assert.Equal(t, []string{"a@example.com"}, mailer.sent)
}

func TestNotificationWorkerSurfacesSinkFailure(t *testing.T) {
	var attempts []int
	sinkErr := errors.New("dlq unavailable")
	worker := NewNotificationWorker(RetryPolicy{MaxRetries: 0, Delay: time.Millisecond}, transientHandler(&attempts, 100), &recordingDeadLetters{err: sinkErr}, nil, nil)

	err := worker.Handle(context.Background(), domain.NotificationJob{JobID: "j"})
	require.ErrorIs(t, err, sinkErr)
	assert.Len(t, attempts, 1)
}

func TestDeadLetterWithoutSinkOnlyRecords(t *testing.T) {
	metrics := newTestMetrics(t)
	err := DeadLetter(context.Background(), nil, domain.NotificationJob{JobID: "j"}, errors.New("boom"), metrics, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DeadLetteredJobs))
}
