package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mhmdrz22/enginner/internal/core/port"
)

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// AccountTransactor implements port.AccountTransactor over a pgx pool.
type AccountTransactor struct {
	db     txBeginner
	users  *UserRepository
	tokens *TokenRepository
}

func NewAccountTransactor(db txBeginner, users *UserRepository, tokens *TokenRepository) *AccountTransactor {
	return &AccountTransactor{db: db, users: users, tokens: tokens}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (t *AccountTransactor) WithinTx(ctx context.Context, fn func(users port.UserRepository, tokens port.TokenRepository) error) error {
	tx, err := t.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin account tx: %w", err)
	}

	if err := fn(t.users.WithTx(tx), t.tokens.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback account tx: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit account tx: %w", err)
	}
	return nil
}

var _ port.AccountTransactor = (*AccountTransactor)(nil)
