package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/mhmdrz22/enginner/internal/core/port"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated indicates a protected operation was attempted without an identity.
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	// ErrForbidden indicates the identity lacks the required capability.
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrInvalidCredentials is the single outcome callers see for any failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSuchToken indicates the presented token key does not resolve to an active user.
	ErrNoSuchToken = errors.New("invalid token")
	// ErrTaskNotFound covers both missing tasks and tasks owned by someone else.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUserNotFound indicates the user record does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

var (
	// ErrMissingRecipients rejects a broadcast with no recipients.
	ErrMissingRecipients = newValidationError("recipients", "Recipients list is required")
	// ErrMissingMessage rejects a broadcast with an empty body.
	ErrMissingMessage = newValidationError("message", "Message is required")
)

// AuthFailureReason is the internal cause of a failed login. It is logged, never returned to clients.
type AuthFailureReason string

const (
	AuthFailureMissingCredentials AuthFailureReason = "missing_credentials"
	AuthFailureNoSuchUser         AuthFailureReason = "no_such_user"
	AuthFailureBadPassword        AuthFailureReason = "bad_password"
	AuthFailureInactive           AuthFailureReason = "inactive"
)

// AuthFailure is returned for every failed login and matches ErrInvalidCredentials.
type AuthFailure struct {
	Reason AuthFailureReason
}

func (e *AuthFailure) Error() string { return ErrInvalidCredentials.Error() }

func (e *AuthFailure) Unwrap() error { return ErrInvalidCredentials }

// TransientDispatchError aborts a notification job so that it is retried as a whole.
type TransientDispatchError struct {
	JobID   string
	Attempt int
	Err     error
}

func (e *TransientDispatchError) Error() string {
	return fmt.Sprintf("notification job %s attempt %d: %v", e.JobID, e.Attempt, e.Err)
}

func (e *TransientDispatchError) Unwrap() error { return e.Err }

// IsTransient reports whether err should cause the whole job to be retried.
func IsTransient(err error) bool {
	var transient *TransientDispatchError
	return errors.As(err, &transient)
}

// RetriesExhaustedError is returned once a job has failed on every allowed attempt.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

func isTransportFailure(err error) bool {
	return errors.Is(err, port.ErrTransportUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
