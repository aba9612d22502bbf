package app

import (
	"context"
	"fmt"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/infra/config"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

// CreateSuperuser provisions an administrator against the configured storage.
func CreateSuperuser(ctx context.Context, cfg *config.AppConfig, in usecase.SuperuserInput) (domain.User, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return domain.User{}, fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return domain.User{}, err
	}
	defer store.Close()

	hasher, err := newHasher(cfg.Argon2)
	if err != nil {
		return domain.User{}, err
	}

	return usecase.NewUserService(store.users, store.tokens, hasher, log).CreateSuperuser(ctx, in)
}
