package api

import (
	"errors"
	"net/http"

	"github.com/docsight/docsight/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Conflict errors
	case errors.Is(err, task.ErrBusy),
		errors.Is(err, task.ErrNoReviewPending),
		errors.Is(err, task.ErrNotFailed):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, task.ErrInvalidInput):
		return http.StatusBadRequest

	// Engine not available
	case errors.Is(err, task.ErrMissingDependency):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, task.ErrBusy):
		return "A task is already in progress"

	case errors.Is(err, task.ErrNoReviewPending):
		return "No review is awaiting a decision"

	case errors.Is(err, task.ErrNotFailed):
		return "No failed task to acknowledge"

	case errors.Is(err, task.ErrInvalidInput):
		return "Invalid task input"

	case errors.Is(err, task.ErrMissingDependency):
		return "A required engine is not available"

	default:
		return "An unexpected error occurred"
	}
}
