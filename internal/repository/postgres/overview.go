package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
)

// OverviewRepository computes admin statistics in two aggregate statements regardless of user count.
type OverviewRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOverviewRepository constructs an overview repository.
func NewOverviewRepository(exec pgExecutor) *OverviewRepository {
	return &OverviewRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Overview returns per-user task counts plus total and active user counts.
func (r *OverviewRepository) Overview(ctx context.Context) (domain.Overview, error) {
	openStatuses := make([]string, 0, 2)
	for _, status := range domain.OpenTaskStatuses() {
		openStatuses = append(openStatuses, string(status))
	}

	stmt, args, err := r.builder.
		Select("u.id", "u.email", "u.username", "u.is_active", "COUNT(t.id) AS total_tasks").
		Column(squirrel.Expr("COUNT(t.id) FILTER (WHERE t.status = ANY(?)) AS open_tasks", openStatuses)).
		From(usersTable + " u").
		LeftJoin(tasksTable + " t ON t.user_id = u.id").
		GroupBy("u.id").
		OrderBy("u.date_joined", "u.id").
		ToSql()
	if err != nil {
		return domain.Overview{}, fmt.Errorf("build overview sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return domain.Overview{}, fmt.Errorf("query overview: %w", err)
	}
	defer rows.Close()

	overview := domain.Overview{Users: make([]domain.UserTaskStats, 0)}
	for rows.Next() {
		var (
			stats       domain.UserTaskStats
			total, open int64
		)
		if err := rows.Scan(&stats.ID, &stats.Email, &stats.Username, &stats.IsActive, &total, &open); err != nil {
			return domain.Overview{}, fmt.Errorf("scan overview row: %w", err)
		}
		stats.TotalTasks = int(total)
		stats.OpenTasks = int(open)
		overview.Users = append(overview.Users, stats)
	}
	if err := rows.Err(); err != nil {
		return domain.Overview{}, fmt.Errorf("iterate overview: %w", err)
	}

	countSQL, countArgs, err := r.builder.
		Select("COUNT(*)", "COUNT(*) FILTER (WHERE is_active)").
		From(usersTable).
		ToSql()
	if err != nil {
		return domain.Overview{}, fmt.Errorf("build user count sql: %w", err)
	}

	var totalUsers, activeUsers int64
	if err := r.exec.QueryRow(ctx, countSQL, countArgs...).Scan(&totalUsers, &activeUsers); err != nil {
		return domain.Overview{}, fmt.Errorf("scan user counts: %w", err)
	}
	overview.TotalUsers = int(totalUsers)
	overview.ActiveUsers = int(activeUsers)

	return overview, nil
}

var _ port.OverviewRepository = (*OverviewRepository)(nil)
