package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/repository"
)

const priorityRankExpr = "CASE priority WHEN 'LOW' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HIGH' THEN 3 END"

var taskColumns = []string{
	"id",
	"user_id",
	"title",
	"description",
	"status",
	"priority",
	"due_date",
	"created_at",
	"updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// TaskRepository implements port.TaskRepository. Every statement carries a user_id predicate.
type TaskRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTaskRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTaskRepository(exec pgExecutor) *TaskRepository {
	return &TaskRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a task row.
func (r *TaskRepository) Create(ctx context.Context, task domain.Task) error {
	stmt, args, err := r.builder.Insert(tasksTable).
		Columns(taskColumns...).
		Values(
			task.ID,
			task.UserID,
			task.Title,
			task.Description,
			string(task.Status),
			string(task.Priority),
			task.DueDate,
			task.CreatedAt,
			task.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert task sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapWriteError("insert task", err)
	}
	return nil
}

// Get returns the task only when ownerID owns it.
func (r *TaskRepository) Get(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	stmt, args, err := r.builder.
		Select(taskColumns...).
		From(tasksTable).
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select task sql: %w", err)
	}

	task, err := scanTask(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// List returns the owner's tasks narrowed by the filter.
func (r *TaskRepository) List(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error) {
	query := r.builder.
		Select(taskColumns...).
		From(tasksTable).
		Where(squirrel.Eq{"user_id": ownerID})

	if filter.Status != nil {
		query = query.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.Priority != nil {
		query = query.Where(squirrel.Eq{"priority": string(*filter.Priority)})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"description": pattern},
		})
	}

	stmt, args, err := query.OrderBy(orderClauses(filter.Ordering)...).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tasks sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// Update overwrites the mutable task columns for a task owned by ownerID.
func (r *TaskRepository) Update(ctx context.Context, ownerID string, task domain.Task) error {
	stmt, args, err := r.builder.Update(tasksTable).
		Set("title", task.Title).
		Set("description", task.Description).
		Set("status", string(task.Status)).
		Set("priority", string(task.Priority)).
		Set("due_date", task.DueDate).
		Set("updated_at", task.UpdatedAt).
		Where(squirrel.Eq{"id": task.ID, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update task sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a task owned by ownerID.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, id string) error {
	stmt, args, err := r.builder.Delete(tasksTable).
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete task sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func orderClauses(ordering domain.TaskOrdering) []string {
	if ordering.Field == "" {
		ordering = domain.DefaultTaskOrdering
	}

	direction := "ASC"
	if ordering.Descending {
		direction = "DESC"
	}

	var primary string
	switch ordering.Field {
	case domain.TaskOrderPriority:
		primary = priorityRankExpr + " " + direction
	case domain.TaskOrderDueDate:
		primary = "due_date " + direction
	default:
		primary = "created_at " + direction
	}

	if ordering.Field == domain.TaskOrderCreatedAt {
		return []string{primary, "id"}
	}
	return []string{primary, "created_at DESC", "id"}
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		task     domain.Task
		status   string
		priority string
	)
	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return domain.Task{}, err
	}
	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	return task, nil
}

var _ port.TaskRepository = (*TaskRepository)(nil)
