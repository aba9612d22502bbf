package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/repository"
)

// TaskInput carries the fields accepted when creating a task. Nil enums take their defaults.
type TaskInput struct {
	Title       string
	Description string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
}

// TaskQuery holds the raw list parameters as received from the client.
type TaskQuery struct {
	Status   string
	Priority string
	Search   string
	Ordering string
}

// TaskService implements owner-scoped task CRUD.
type TaskService struct {
	tasks port.TaskRepository
	now   func() time.Time
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(tasks port.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks, now: time.Now}
}

// WithClock overrides the clock used for task timestamps.
func (s *TaskService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Now exposes the service clock so callers can derive is_overdue consistently.
func (s *TaskService) Now() time.Time {
	return s.now()
}

// Create stores a new task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID string, in TaskInput) (domain.Task, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return domain.Task{}, err
	}

	status := domain.TaskStatusTodo
	if in.Status != nil {
		if !in.Status.Valid() {
			return domain.Task{}, invalidChoice("status", string(*in.Status))
		}
		status = *in.Status
	}

	priority := domain.TaskPriorityMedium
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return domain.Task{}, invalidChoice("priority", string(*in.Priority))
		}
		priority = *in.Priority
	}

	now := s.now().UTC()
	owner := ownerID
	task := domain.Task{
		ID:          uuid.NewString(),
		UserID:      &owner,
		Title:       title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     dateOnly(in.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// List returns the caller's tasks after filtering, searching and ordering.
func (s *TaskService) List(ctx context.Context, ownerID string, q TaskQuery) ([]domain.Task, error) {
	filter := domain.TaskFilter{Search: strings.TrimSpace(q.Search)}

	if raw := strings.TrimSpace(q.Status); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.Valid() {
			return nil, invalidChoice("status", raw)
		}
		filter.Status = &status
	}

	if raw := strings.TrimSpace(q.Priority); raw != "" {
		priority := domain.TaskPriority(raw)
		if !priority.Valid() {
			return nil, invalidChoice("priority", raw)
		}
		filter.Priority = &priority
	}

	ordering, ok := domain.ParseTaskOrdering(q.Ordering)
	if !ok {
		return nil, newValidationError("ordering", fmt.Sprintf("Cannot order by %q.", q.Ordering))
	}
	filter.Ordering = ordering

	tasks, err := s.tasks.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get returns one of the caller's tasks.
func (s *TaskService) Get(ctx context.Context, ownerID, id string) (domain.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Task{}, ErrTaskNotFound
	}

	task, err := s.tasks.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Task{}, ErrTaskNotFound
		}
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return *task, nil
}

// Update applies patch to one of the caller's tasks. With full set, title is mandatory.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch, full bool) (domain.Task, error) {
	task, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return domain.Task{}, err
	}

	if full && patch.Title == nil {
		return domain.Task{}, newValidationError("title", msgFieldRequired)
	}
	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return domain.Task{}, err
		}
		patch.Title = &title
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.Task{}, invalidChoice("status", string(*patch.Status))
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return domain.Task{}, invalidChoice("priority", string(*patch.Priority))
	}
	patch.DueDate = dateOnly(patch.DueDate)

	previous := task.UpdatedAt
	task.Apply(patch)
	task.UpdatedAt = s.now().UTC()
	if !task.UpdatedAt.After(previous) {
		task.UpdatedAt = previous.Add(time.Microsecond)
	}

	if err := s.tasks.Update(ctx, ownerID, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Task{}, ErrTaskNotFound
		}
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes one of the caller's tasks.
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrTaskNotFound
	}

	if err := s.tasks.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", newValidationError("title", "This field may not be blank.")
	}
	if utf8.RuneCountInString(title) > domain.TaskTitleMaxLength {
		return "", newValidationError("title", fmt.Sprintf("Ensure this field has no more than %d characters.", domain.TaskTitleMaxLength))
	}
	return title, nil
}

func invalidChoice(field, value string) *ValidationError {
	return newValidationError(field, fmt.Sprintf("%q is not a valid choice.", value))
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
