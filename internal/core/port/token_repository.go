package port

import (
	"context"
	"time"

	"github.com/mhmdrz22/enginner/internal/core/domain"
)

// TokenRepository stores the single auth token owned by each user.
type TokenRepository interface {
	// GetOrCreate returns the user's existing token, or stores candidateKey when none exists.
	// The boolean reports whether a new token was created.
	GetOrCreate(ctx context.Context, userID, candidateKey string, at time.Time) (domain.AuthToken, bool, error)
	GetByKey(ctx context.Context, key string) (*domain.AuthToken, error)
	DeleteByUser(ctx context.Context, userID string) error
}
