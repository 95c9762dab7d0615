package events

import "github.com/google/uuid"

// ResultKind identifies which pipeline product a Result event carries.
type ResultKind string

// Possible result kinds.
const (
	ResultRawText       ResultKind = "raw_text"
	ResultCorrectedText ResultKind = "corrected_text"
	ResultExplanation   ResultKind = "explanation"
)

// Stage identifies the pipeline stage an event originated from.
type Stage string

// Pipeline stages.
const (
	StageRecognize Stage = "recognize"
	StageCorrect   Stage = "correct"
	StageExplain   Stage = "explain"
)

// ErrorKind classifies worker-reported failures.
type ErrorKind string

// Possible error kinds.
const (
	// ErrorKindInvalidInput means the payload could not be used: a missing
	// or unreadable image, or empty input text.
	ErrorKindInvalidInput ErrorKind = "invalid_input"

	// ErrorKindEngineFailure means a recognition or generation call failed.
	ErrorKindEngineFailure ErrorKind = "engine_failure"
)

// Event is the closed set of messages a pipeline worker emits to the
// orchestrator over the attempt's event channel.
type Event interface {
	isEvent()
}

// Progress reports how far the current attempt has advanced, as a percentage
// in [0,100]. Within one attempt the reported values are non-decreasing.
type Progress struct {
	TaskType string
	Percent  int
}

// Result carries an intermediate or final text product of the pipeline.
type Result struct {
	Kind ResultKind
	Data string
}

// Error reports a failed engine call or invalid payload. The attempt ends in
// the Failed state after the Finished event that always follows.
type Error struct {
	Stage   Stage
	Kind    ErrorKind
	Message string
}

// Finished marks the end of a task attempt. It is emitted exactly once per
// attempt, always last, regardless of how the attempt ended.
type Finished struct{}

func (Progress) isEvent() {}
func (Result) isEvent()   {}
func (Error) isEvent()    {}
func (Finished) isEvent() {}

// ReviewRequest is handed to subscribers when a RecognizeAndCorrect attempt
// reaches the human review checkpoint. It carries everything the reviewer
// needs to decide: the original image, the raw recognition output, and the
// corrected text (the editable copy).
type ReviewRequest struct {
	TaskID        uuid.UUID
	ImagePath     string
	RawText       string
	CorrectedText string
}
