package task

import "errors"

// Common errors returned by the orchestrator.
var (
	// ErrBusy is returned by Start when a task is already Running or
	// AwaitingReview. At most one task may be active system-wide.
	ErrBusy = errors.New("another task is already active")

	// ErrInvalidInput is returned by Start when the payload is empty or
	// missing, before any worker is spawned.
	ErrInvalidInput = errors.New("invalid task input")

	// ErrMissingDependency is returned by Start when an engine adapter the
	// task type requires was not loaded at startup.
	ErrMissingDependency = errors.New("required engine adapter not loaded")

	// ErrNoReviewPending is returned by SubmitReviewDecision when no review
	// checkpoint is waiting for a decision, or a decision was already
	// submitted for the current checkpoint.
	ErrNoReviewPending = errors.New("no review decision pending")

	// ErrNotFailed is returned by Acknowledge when the pipeline is not in
	// the Failed state.
	ErrNotFailed = errors.New("pipeline is not in a failed state")
)
