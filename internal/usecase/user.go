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

// SuperuserInput describes an administrator created out of band.
type SuperuserInput struct {
	Email    string
	Username string
	Password string
}

// UserService exposes profile management and account administration.
type UserService struct {
	users    port.UserRepository
	tokens   port.TokenRepository
	accounts port.AccountTransactor
	hasher   port.PasswordHasher
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(users port.UserRepository, tokens port.TokenRepository, hasher port.PasswordHasher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		users:    users,
		tokens:   tokens,
		accounts: directAccounts{users: users, tokens: tokens},
		hasher:   hasher,
		logger:   log,
		now:      time.Now,
	}
}

// WithAccountTransactor makes multi-step account changes run in one transaction.
func (s *UserService) WithAccountTransactor(accounts port.AccountTransactor) *UserService {
	if accounts != nil {
		s.accounts = accounts
	}
	return s
}

// directAccounts runs fn against the plain repositories, without rollback.
type directAccounts struct {
	users  port.UserRepository
	tokens port.TokenRepository
}

func (d directAccounts) WithinTx(_ context.Context, fn func(port.UserRepository, port.TokenRepository) error) error {
	return fn(d.users, d.tokens)
}

// WithClock overrides the clock used for account timestamps.
func (s *UserService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Profile returns the sanitized user.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("load profile: %w", err)
	}
	return user.Sanitized(), nil
}

// UpdateProfile changes email and username. Other account flags are never writable here.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.User, error) {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("load profile: %w", err)
	}

	email := current.Email
	if patch.Email != nil {
		email = domain.NormalizeEmail(*patch.Email)
		if email == "" {
			return domain.User{}, newValidationError("email", "This field may not be blank.")
		}
		if email != current.Email {
			taken, err := s.users.EmailTaken(ctx, email, userID)
			if err != nil {
				return domain.User{}, fmt.Errorf("check email: %w", err)
			}
			if taken {
				return domain.User{}, newValidationError("email", msgEmailTaken)
			}
		}
	}

	username := current.Username
	if patch.Username != nil {
		username = strings.TrimSpace(*patch.Username)
		if username == "" {
			return domain.User{}, newValidationError("username", "This field may not be blank.")
		}
	}

	now := s.now().UTC()
	if err := s.users.UpdateProfile(ctx, userID, email, username, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return domain.User{}, newValidationError("email", msgEmailTaken)
		case errors.Is(err, repository.ErrNotFound):
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}

	current.Email = email
	current.Username = username
	current.UpdatedAt = now
	return current.Sanitized(), nil
}

// CreateSuperuser stores an active, verified staff superuser.
func (s *UserService) CreateSuperuser(ctx context.Context, in SuperuserInput) (domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return domain.User{}, newValidationError("email", "Email is required")
	}
	if in.Password == "" {
		return domain.User{}, newValidationError("password", "Password is required")
	}

	taken, err := s.users.EmailTaken(ctx, email, "")
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.User{}, newValidationError("email", msgEmailTaken)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
		IsVerified:   true,
		DateJoined:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.User{}, newValidationError("email", msgEmailTaken)
		}
		return domain.User{}, fmt.Errorf("create superuser: %w", err)
	}

	logger.WithContext(ctx, s.logger).Info("superuser created", zap.String("user_id", user.ID))
	return user.Sanitized(), nil
}

// Deactivate disables the account and revokes its token in one transaction.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	now := s.now().UTC()
	err := s.accounts.WithinTx(ctx, func(users port.UserRepository, tokens port.TokenRepository) error {
		if err := users.SetActive(ctx, userID, false, now); err != nil {
			return err
		}
		return tokens.DeleteByUser(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("deactivate user: %w", err)
	}

	logger.WithContext(ctx, s.logger).Info("user deactivated", zap.String("user_id", userID))
	return nil
}

// Delete removes the user; tasks and token go with it.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	logger.WithContext(ctx, s.logger).Info("user deleted", zap.String("user_id", userID))
	return nil
}
