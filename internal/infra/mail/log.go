package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
)

// LogMailer writes emails to the log instead of sending them. Used in development.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{logger: log}
}

func (m *LogMailer) Send(ctx context.Context, email domain.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("email (log backend)",
		zap.String("to", logger.MaskEmail(email.To)),
		zap.String("subject", email.Subject),
		zap.Int("body_bytes", len(email.Body)),
	)
	return nil
}

var _ port.Mailer = (*LogMailer)(nil)
