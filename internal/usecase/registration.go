package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
	"github.com/mhmdrz22/enginner/internal/repository"
)

const (
	msgFieldRequired    = "This field is required."
	msgEmailTaken       = "A user with that email already exists."
	msgPasswordMismatch = "Passwords do not match."
)

// RegisterInput is the payload of a self-service sign-up.
type RegisterInput struct {
	Email           string
	Username        string
	Password        string
	PasswordConfirm string
}

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	policy port.PasswordPolicyValidator
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(users port.UserRepository, hasher port.PasswordHasher, policy port.PasswordPolicyValidator, log *zap.Logger) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{users: users, hasher: hasher, policy: policy, logger: log, now: time.Now}
}

// WithClock overrides the clock used for account timestamps.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Register validates the input and stores an active, non-staff user.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	switch {
	case email == "":
		return domain.User{}, newValidationError("email", msgFieldRequired)
	case username == "":
		return domain.User{}, newValidationError("username", msgFieldRequired)
	case in.Password == "":
		return domain.User{}, newValidationError("password", msgFieldRequired)
	case in.PasswordConfirm == "":
		return domain.User{}, newValidationError("password_confirm", msgFieldRequired)
	}

	taken, err := s.users.EmailTaken(ctx, email, "")
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.User{}, newValidationError("email", msgEmailTaken)
	}

	if in.Password != in.PasswordConfirm {
		return domain.User{}, newValidationError("password_confirm", msgPasswordMismatch)
	}

	if s.policy != nil {
		if err := s.policy.Validate(in.Password, domain.PasswordContext{Email: email, Username: username}); err != nil {
			return domain.User{}, newValidationError("password", err.Error())
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		DateJoined:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.User{}, newValidationError("email", msgEmailTaken)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	logger.WithContext(ctx, s.logger).Info("user registered", zap.String("user_id", user.ID), zap.String("email", logger.MaskEmail(email)))
	return user.Sanitized(), nil
}
