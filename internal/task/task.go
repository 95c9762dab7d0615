package task

import (
	"github.com/docsight/docsight/internal/events"
	"github.com/docsight/docsight/internal/generation"
	"github.com/google/uuid"
)

// TaskType identifies which stage sequence a task runs.
type TaskType string

// Supported task types.
const (
	// TaskTypeRecognizeAndCorrect runs recognition on an image and corrects
	// the recognized text with the generation engine, then stops at the
	// review checkpoint.
	TaskTypeRecognizeAndCorrect TaskType = "recognize_and_correct"

	// TaskTypeExplain runs the generation engine once to explain an accepted
	// document text.
	TaskTypeExplain TaskType = "explain"
)

// State is the orchestrator's pipeline state. It has exactly one writer, the
// orchestrator; workers only emit events.
type State string

// Pipeline states.
const (
	StateIdle           State = "idle"
	StateRunning        State = "running"
	StateAwaitingReview State = "awaiting_review"
	StateCompleted      State = "completed"
	StateCancelled      State = "cancelled"
	StateFailed         State = "failed"
)

// Task is one attempt of a task type, created by Start and destroyed when its
// Finished event has been observed. Immutable once created.
type Task struct {
	ID      uuid.UUID
	Type    TaskType
	Payload string
	Attempt int
}

// TaskHandle is returned by Start so callers can correlate events with the
// attempt they started.
type TaskHandle struct {
	TaskID  uuid.UUID
	Type    TaskType
	Attempt int
}

// Status is a point-in-time snapshot of the orchestrator.
type Status struct {
	State    State
	Stage    events.Stage
	TaskID   uuid.UUID
	TaskType TaskType
	Attempt  int
}

// Results holds the stored products of the current or most recent attempt.
// Failed and cancelled attempts leave all fields empty.
type Results struct {
	RawText       string
	CorrectedText string
	Explanation   string

	// Err is the stored error report when the pipeline is in the Failed
	// state, nil otherwise.
	Err *events.Error
}

// DecisionKind enumerates the outcomes of the review checkpoint.
type DecisionKind string

// Review checkpoint outcomes.
const (
	// DecisionRedo discards the attempt's results and reruns recognition and
	// correction on the same image as a fresh attempt.
	DecisionRedo DecisionKind = "redo"

	// DecisionAccept takes the (possibly edited) corrected text and chains
	// directly into an Explain task.
	DecisionAccept DecisionKind = "accept"

	// DecisionCancel discards the attempt's results and returns to Idle.
	DecisionCancel DecisionKind = "cancel"
)

// ReviewDecision is the human's answer at the review checkpoint.
type ReviewDecision struct {
	Kind DecisionKind

	// EditedText is the reviewer's final version of the corrected text.
	// Only meaningful for DecisionAccept.
	EditedText string
}

// PromptBuilder supplies the prompts and sampling parameters for the two
// generation stages. Prompt construction is external to the core; the worker
// only ever calls through this interface.
type PromptBuilder interface {
	Correction(rawText string) (string, generation.Params, error)
	Explanation(text string) (string, generation.Params, error)
}
