package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
	"github.com/mhmdrz22/enginner/internal/infra/telemetry"
	"github.com/mhmdrz22/enginner/internal/repository"
)

// AuthService verifies email and password credentials.
type AuthService struct {
	users     port.UserRepository
	hasher    port.PasswordHasher
	metrics   *telemetry.Metrics
	logger    *zap.Logger
	dummyHash string
}

// NewAuthService hashes a throwaway secret once so unknown emails cost one verification too.
func NewAuthService(users port.UserRepository, hasher port.PasswordHasher, keys port.KeyGenerator, metrics *telemetry.Metrics, log *zap.Logger) (*AuthService, error) {
	if log == nil {
		log = zap.NewNop()
	}

	secret, err := keys.NewKey()
	if err != nil {
		return nil, fmt.Errorf("generate dummy secret: %w", err)
	}
	dummyHash, err := hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash dummy secret: %w", err)
	}

	return &AuthService{
		users:     users,
		hasher:    hasher,
		metrics:   metrics,
		logger:    log,
		dummyHash: dummyHash,
	}, nil
}

// Authenticate returns the sanitized user for valid credentials of an active account.
// Every failure is an *AuthFailure matching ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, s.fail(ctx, email, AuthFailureMissingCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, fmt.Errorf("lookup user: %w", err)
		}
		// Equalise timing with the found-user path.
		_, _ = s.hasher.Verify(password, s.dummyHash)
		return domain.User{}, s.fail(ctx, email, AuthFailureNoSuchUser)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		logger.WithContext(ctx, s.logger).Warn("stored password hash is unreadable", zap.String("user_id", user.ID), zap.Error(err))
		ok = false
	}
	if !ok {
		return domain.User{}, s.fail(ctx, email, AuthFailureBadPassword)
	}

	if !user.IsActive {
		return domain.User{}, s.fail(ctx, email, AuthFailureInactive)
	}

	return user.Sanitized(), nil
}

func (s *AuthService) fail(ctx context.Context, email string, reason AuthFailureReason) error {
	s.metrics.AuthFailure(string(reason))
	logger.WithContext(ctx, s.logger).Info("login rejected",
		zap.String("email", logger.MaskEmail(strings.TrimSpace(email))),
		zap.String("reason", string(reason)),
	)
	return &AuthFailure{Reason: reason}
}
