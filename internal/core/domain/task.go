package domain

import (
	"strings"
	"time"
)

// TaskTitleMaxLength is the maximum number of characters accepted for a task title.
const TaskTitleMaxLength = 200

// TaskStatus enumerates the workflow states of a task.
type TaskStatus string

const (
	TaskStatusTodo  TaskStatus = "TODO"
	TaskStatusDoing TaskStatus = "DOING"
	TaskStatusDone  TaskStatus = "DONE"
)

// Valid reports whether the status is one of the known values.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusDoing, TaskStatusDone:
		return true
	}
	return false
}

// IsOpen reports whether the task still needs work.
func (s TaskStatus) IsOpen() bool {
	return s == TaskStatusTodo || s == TaskStatusDoing
}

// OpenTaskStatuses lists the statuses counted as open work.
func OpenTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusTodo, TaskStatusDoing}
}

// TaskPriority enumerates task urgency levels.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// Valid reports whether the priority is one of the known values.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities from LOW (1) to HIGH (3).
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityLow:
		return 1
	case TaskPriorityMedium:
		return 2
	case TaskPriorityHigh:
		return 3
	}
	return 0
}

// Task is a work item owned by a single user.
type Task struct {
	ID          string
	UserID      *string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOverdue reports whether the due date has passed for a task that is not done.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusDone {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	due := time.Date(t.DueDate.Year(), t.DueDate.Month(), t.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}

// OwnedBy reports whether the task belongs to the given user.
func (t Task) OwnedBy(userID string) bool {
	return t.UserID != nil && *t.UserID == userID
}

// TaskPatch describes a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	Priority     *TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// Apply copies the present patch fields onto the task.
func (t *Task) Apply(p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		due := *p.DueDate
		t.DueDate = &due
	}
}

// TaskOrderField names a column tasks may be ordered by.
type TaskOrderField string

const (
	TaskOrderCreatedAt TaskOrderField = "created_at"
	TaskOrderDueDate   TaskOrderField = "due_date"
	TaskOrderPriority  TaskOrderField = "priority"
)

// TaskOrdering is an order field plus direction.
type TaskOrdering struct {
	Field      TaskOrderField
	Descending bool
}

// DefaultTaskOrdering lists the newest tasks first.
var DefaultTaskOrdering = TaskOrdering{Field: TaskOrderCreatedAt, Descending: true}

// ParseTaskOrdering parses values such as "due_date" or "-priority".
// An empty value yields the default ordering.
func ParseTaskOrdering(raw string) (TaskOrdering, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTaskOrdering, true
	}

	ordering := TaskOrdering{}
	if strings.HasPrefix(raw, "-") {
		ordering.Descending = true
		raw = raw[1:]
	}

	switch field := TaskOrderField(raw); field {
	case TaskOrderCreatedAt, TaskOrderDueDate, TaskOrderPriority:
		ordering.Field = field
		return ordering, true
	}

	return TaskOrdering{}, false
}

func (o TaskOrdering) String() string {
	if o.Descending {
		return "-" + string(o.Field)
	}
	return string(o.Field)
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Status   *TaskStatus
	Priority *TaskPriority
	Search   string
	Ordering TaskOrdering
}
