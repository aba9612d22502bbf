package handlers

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

const dateLayout = time.DateOnly

// ErrorResponse represents a generic error payload with trace ID for debugging.
// Fields is set for validation failures and maps field names to their messages.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Fields  map[string][]string `json:"fields,omitempty"`
	TraceID string              `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary is the public view of an account. It never carries the password hash.
type UserSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	IsActive    bool   `json:"is_active"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

func newUserSummary(u domain.User) UserSummary {
	return UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	}
}

// RegistrationRequest is the self-service sign-up payload.
type RegistrationRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// RegistrationResponse is returned after a successful sign-up.
type RegistrationResponse struct {
	User    UserSummary `json:"user"`
	Message string      `json:"message"`
}

// LoginRequest carries email credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the caller's token.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// ProfileRequest updates the writable profile fields. Any other field is ignored.
type ProfileRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Username *string `json:"username" binding:"omitempty,max=150"`
}

// TaskRequest is the create and update payload. The owner is never read from the body.
type TaskRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Status      *string      `json:"status" binding:"omitempty,task_status"`
	Priority    *string      `json:"priority" binding:"omitempty,task_priority"`
	DueDate     optionalDate `json:"due_date"`
}

func (r TaskRequest) patch() (domain.TaskPatch, error) {
	patch := domain.TaskPatch{Title: r.Title, Description: r.Description}
	if r.Status != nil {
		status := domain.TaskStatus(*r.Status)
		patch.Status = &status
	}
	if r.Priority != nil {
		priority := domain.TaskPriority(*r.Priority)
		patch.Priority = &priority
	}

	due, err := r.DueDate.value()
	if err != nil {
		return domain.TaskPatch{}, err
	}
	patch.DueDate = due
	patch.ClearDueDate = r.DueDate.set && due == nil
	return patch, nil
}

// optionalDate distinguishes an absent due_date from an explicit null.
type optionalDate struct {
	set bool
	raw *string
}

func (d *optionalDate) UnmarshalJSON(data []byte) error {
	d.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.raw = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		invalid := string(data)
		d.raw = &invalid
		return nil
	}
	d.raw = &s
	return nil
}

func (d optionalDate) value() (*time.Time, error) {
	if d.raw == nil || *d.raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *d.raw)
	if err != nil {
		return nil, &usecase.ValidationError{
			Field:   "due_date",
			Message: "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.",
		}
	}
	return &t, nil
}

// TaskResponse is the serialized task, including the derived is_overdue flag.
type TaskResponse struct {
	ID          string    `json:"id"`
	User        *string   `json:"user"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DueDate     *string   `json:"due_date"`
	IsOverdue   bool      `json:"is_overdue"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTaskResponse(t domain.Task, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		User:        t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		IsOverdue:   t.IsOverdue(now),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(dateLayout)
		resp.DueDate = &due
	}
	return resp
}

// UserOverview is one row of the admin overview.
type UserOverview struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	IsActive   bool   `json:"is_active"`
	TotalTasks int    `json:"total_tasks"`
	OpenTasks  int    `json:"open_tasks"`
}

// OverviewResponse summarises every account and its task load.
type OverviewResponse struct {
	Users       []UserOverview `json:"users"`
	TotalUsers  int            `json:"total_users"`
	ActiveUsers int            `json:"active_users"`
}

func newOverviewResponse(o domain.Overview) OverviewResponse {
	users := make([]UserOverview, 0, len(o.Users))
	for _, u := range o.Users {
		users = append(users, UserOverview{
			ID:         u.ID,
			Email:      u.Email,
			Username:   u.Username,
			IsActive:   u.IsActive,
			TotalTasks: u.TotalTasks,
			OpenTasks:  u.OpenTasks,
		})
	}
	return OverviewResponse{Users: users, TotalUsers: o.TotalUsers, ActiveUsers: o.ActiveUsers}
}

// NotifyRequest is an admin email broadcast.
type NotifyRequest struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports the outcome of every dependency check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
