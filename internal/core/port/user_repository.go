package port

import (
	"context"
	"time"

	"github.com/mhmdrz22/enginner/internal/core/domain"
)

// UserRepository provides persistence operations for user records.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail matches the normalized email case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// EmailTaken reports whether another user (not excludeID) already owns the email.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UpdateProfile(ctx context.Context, id, email, username string, updatedAt time.Time) error
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	// Delete removes the user together with its tasks and token.
	Delete(ctx context.Context, id string) error
}

// AccountTransactor runs fn with user and token repositories bound to one transaction.
// An error from fn rolls back every write made through them.
type AccountTransactor interface {
	WithinTx(ctx context.Context, fn func(users UserRepository, tokens TokenRepository) error) error
}
