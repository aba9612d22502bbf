// Package mail provides the outbound email transports used by the notification dispatcher.
package mail

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/config"
)

// New builds the mailer selected by cfg.Backend. SMTP delivery is always rate limited
// and guarded by a circuit breaker.
func New(cfg config.MailSettings, log *zap.Logger) (port.Mailer, error) {
	switch cfg.Backend {
	case config.MailBackendLog, "":
		return NewLogMailer(log), nil
	case config.MailBackendSMTP:
		return NewBreakerMailer(NewSMTPMailer(cfg), BreakerOptions{
			Name:             "smtp",
			FailureThreshold: cfg.BreakerThreshold,
			OpenTimeout:      cfg.BreakerTimeout,
			RatePerSecond:    cfg.RatePerSecond,
			Burst:            cfg.Burst,
		}, log), nil
	default:
		return nil, fmt.Errorf("unsupported mail backend %q", cfg.Backend)
	}
}
