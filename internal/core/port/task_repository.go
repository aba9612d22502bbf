package port

import (
	"context"

	"github.com/mhmdrz22/enginner/internal/core/domain"
)

// TaskRepository persists tasks. Every read and write is scoped to ownerID.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) error
	Get(ctx context.Context, ownerID, id string) (*domain.Task, error)
	List(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error)
	Update(ctx context.Context, ownerID string, task domain.Task) error
	Delete(ctx context.Context, ownerID, id string) error
}

// OverviewRepository computes admin statistics with a bounded number of queries.
type OverviewRepository interface {
	Overview(ctx context.Context) (domain.Overview, error)
}
