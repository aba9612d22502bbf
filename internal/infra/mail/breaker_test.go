package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/config"
)

type stubMailer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubMailer) Send(context.Context, domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *stubMailer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	inner := &stubMailer{err: fmt.Errorf("dial: %w", port.ErrTransportUnavailable)}
	m := NewBreakerMailer(inner, BreakerOptions{FailureThreshold: 2, OpenTimeout: time.Hour}, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, m.Send(context.Background(), domain.Email{To: "a@example.com"}), port.ErrTransportUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, m.State())

	err := m.Send(context.Background(), domain.Email{To: "a@example.com"})
	require.ErrorIs(t, err, port.ErrTransportUnavailable)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.Calls(), "open circuit must not reach the transport")
}

func TestBreakerIgnoresRecipientFailures(t *testing.T) {
	rejected := errors.New("550 mailbox unavailable")
	inner := &stubMailer{err: rejected}
	m := NewBreakerMailer(inner, BreakerOptions{FailureThreshold: 1, OpenTimeout: time.Hour}, nil)

	for i := 0; i < 5; i++ {
		err := m.Send(context.Background(), domain.Email{To: "a@example.com"})
		require.ErrorIs(t, err, rejected)
		require.False(t, errors.Is(err, port.ErrTransportUnavailable))
	}
	assert.Equal(t, gobreaker.StateClosed, m.State())
	assert.Equal(t, 5, inner.Calls())
}

func TestBreakerRateLimitHonoursContext(t *testing.T) {
	m := NewBreakerMailer(&stubMailer{}, BreakerOptions{RatePerSecond: 0.001, Burst: 1}, nil)

	require.NoError(t, m.Send(context.Background(), domain.Email{To: "a@example.com"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Send(ctx, domain.Email{To: "b@example.com"})
	require.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	logMailer, err := New(config.MailSettings{Backend: config.MailBackendLog}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, logMailer)
	require.NoError(t, logMailer.Send(context.Background(), domain.Email{To: "a@example.com"}))

	smtpMailer, err := New(config.MailSettings{Backend: config.MailBackendSMTP, Host: "localhost", Port: 25}, nil)
	require.NoError(t, err)
	assert.IsType(t, &BreakerMailer{}, smtpMailer)

	_, err = New(config.MailSettings{Backend: "pigeon"}, nil)
	require.Error(t, err)
}
