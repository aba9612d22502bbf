package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/repository"
)

// TokenService issues and resolves opaque per-user auth tokens.
type TokenService struct {
	tokens port.TokenRepository
	users  port.UserRepository
	keys   port.KeyGenerator
	now    func() time.Time
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(tokens port.TokenRepository, users port.UserRepository, keys port.KeyGenerator) *TokenService {
	return &TokenService{tokens: tokens, users: users, keys: keys, now: time.Now}
}

// WithClock overrides the clock used for token timestamps.
func (s *TokenService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Issue returns the user's existing token or creates the first one.
// Concurrent calls for the same user all observe a single key.
func (s *TokenService) Issue(ctx context.Context, user domain.User) (domain.AuthToken, error) {
	candidate, err := s.keys.NewKey()
	if err != nil {
		return domain.AuthToken{}, err
	}

	token, _, err := s.tokens.GetOrCreate(ctx, user.ID, candidate, s.now().UTC())
	if err != nil {
		return domain.AuthToken{}, fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Resolve maps a presented key to the identity of its active owner.
func (s *TokenService) Resolve(ctx context.Context, key string) (domain.Identity, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Identity{}, ErrNoSuchToken
	}

	token, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, ErrNoSuchToken
		}
		return domain.Identity{}, fmt.Errorf("lookup token: %w", err)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, ErrNoSuchToken
		}
		return domain.Identity{}, fmt.Errorf("lookup token owner: %w", err)
	}
	if !user.IsActive {
		return domain.Identity{}, ErrNoSuchToken
	}

	return domain.NewIdentity(*user, token.Key), nil
}

// Revoke deletes the user's token. Revoking a missing token succeeds.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	if err := s.tokens.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
