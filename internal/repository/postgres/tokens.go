package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/repository"
)

// getOrCreateAttempts bounds the insert/select loop when a concurrent logout deletes the
// token between the two statements.
const getOrCreateAttempts = 3

// TokenRepository implements port.TokenRepository using the auth_tokens table.
type TokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a new token repository.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	return &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// GetOrCreate inserts candidateKey unless the user already owns a token. The UNIQUE(user_id)
// constraint makes concurrent callers converge on a single row.
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID, candidateKey string, at time.Time) (domain.AuthToken, bool, error) {
	insertSQL, insertArgs, err := r.builder.Insert(tokensTable).
		Columns("key", "user_id", "created_at").
		Values(candidateKey, userID, at).
		Suffix("ON CONFLICT (user_id) DO NOTHING RETURNING key, user_id, created_at").
		ToSql()
	if err != nil {
		return domain.AuthToken{}, false, fmt.Errorf("build insert token sql: %w", err)
	}

	for attempt := 0; attempt < getOrCreateAttempts; attempt++ {
		var token domain.AuthToken
		err := r.exec.QueryRow(ctx, insertSQL, insertArgs...).Scan(&token.Key, &token.UserID, &token.CreatedAt)
		if err == nil {
			return token, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.AuthToken{}, false, mapWriteError("insert token", err)
		}

		existing, err := r.getBy(ctx, squirrel.Eq{"user_id": userID})
		if err == nil {
			return *existing, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.AuthToken{}, false, err
		}
	}

	return domain.AuthToken{}, false, fmt.Errorf("get or create token: %w", repository.ErrConflict)
}

// GetByKey looks a token up by its key.
func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*domain.AuthToken, error) {
	return r.getBy(ctx, squirrel.Eq{"key": key})
}

func (r *TokenRepository) getBy(ctx context.Context, pred squirrel.Sqlizer) (*domain.AuthToken, error) {
	stmt, args, err := r.builder.
		Select("key", "user_id", "created_at").
		From(tokensTable).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	var token domain.AuthToken
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&token.Key, &token.UserID, &token.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}
	return &token, nil
}

// DeleteByUser removes the user's token if present.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.Delete(tokensTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
