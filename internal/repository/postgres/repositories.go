package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users    *UserRepository
	Tokens   *TokenRepository
	Tasks    *TaskRepository
	Overview *OverviewRepository
	Accounts *AccountTransactor
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	users := NewUserRepository(pool)
	tokens := NewTokenRepository(pool)
	return &Repositories{
		Users:    users,
		Tokens:   tokens,
		Tasks:    NewTaskRepository(pool),
		Overview: NewOverviewRepository(pool),
		Accounts: NewAccountTransactor(pool, users, tokens),
	}
}
