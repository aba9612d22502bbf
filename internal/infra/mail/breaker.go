package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
)

// BreakerOptions tunes BreakerMailer.
type BreakerOptions struct {
	Name string
	// FailureThreshold is the number of consecutive transport failures that opens the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before a trial request is allowed.
	OpenTimeout time.Duration
	// RatePerSecond caps outbound sends. Zero means unlimited.
	RatePerSecond float64
	Burst         int
}

// BreakerMailer throttles sends and stops calling a failing transport until it recovers.
// Only transport failures count against the circuit; rejected recipients do not.
type BreakerMailer struct {
	next    port.Mailer
	cb      *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewBreakerMailer wraps next with a circuit breaker and a token bucket limiter.
func NewBreakerMailer(next port.Mailer, opts BreakerOptions, log *zap.Logger) *BreakerMailer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "smtp"
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	limit := rate.Inf
	burst := opts.Burst
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	m := &BreakerMailer{next: next, limiter: rate.NewLimiter(limit, burst), logger: log}
	m.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, port.ErrTransportUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("mail circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return m
}

// Send waits for the rate limiter and forwards to the wrapped mailer unless the circuit is open.
func (m *BreakerMailer) Send(ctx context.Context, email domain.Email) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail rate limiter: %w", err)
	}

	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.next.Send(ctx, email)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", port.ErrTransportUnavailable, err)
	}
	return err
}

// State reports the circuit state for health checks.
func (m *BreakerMailer) State() gobreaker.State {
	return m.cb.State()
}

var _ port.Mailer = (*BreakerMailer)(nil)
