package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/docsight/docsight/internal/api/shared"
	"github.com/docsight/docsight/internal/task"
)

// StartTaskRequest represents the request body for starting a new task
type StartTaskRequest struct {
	Type    string `json:"type" validate:"required,oneof=recognize_and_correct explain"`
	Payload string `json:"payload" validate:"required,min=1"`
}

// ReviewDecisionRequest represents the request body for resolving the review
// checkpoint of the current task.
type ReviewDecisionRequest struct {
	Decision   string `json:"decision" validate:"required,oneof=redo accept cancel"`
	EditedText string `json:"edited_text"`
}

// TaskHandleResponse represents the response data for a started task
type TaskHandleResponse struct {
	TaskID   string `json:"task_id"`
	TaskType string `json:"task_type"`
	Attempt  int    `json:"attempt"`
}

// StatusResponse represents the orchestrator status
type StatusResponse struct {
	State    string `json:"state"`
	Stage    string `json:"stage,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
	TaskType string `json:"task_type,omitempty"`
	Attempt  int    `json:"attempt,omitempty"`
}

// ErrorDetail represents a stored pipeline error
type ErrorDetail struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CurrentTaskResponse combines status and stored results
type CurrentTaskResponse struct {
	Status        StatusResponse `json:"status"`
	RawText       string         `json:"raw_text,omitempty"`
	CorrectedText string         `json:"corrected_text,omitempty"`
	Explanation   string         `json:"explanation,omitempty"`
	Error         *ErrorDetail   `json:"error,omitempty"`
}

// TaskHandler handles task orchestration HTTP requests
type TaskHandler struct {
	orchestrator *task.Orchestrator
	validator    *validator.Validate
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(orchestrator *task.Orchestrator) *TaskHandler {
	return &TaskHandler{
		orchestrator: orchestrator,
		validator:    validator.New(),
	}
}

// StartTask handles POST /api/tasks requests
func (h *TaskHandler) StartTask(w http.ResponseWriter, r *http.Request) {
	var req StartTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	handle, err := h.orchestrator.Start(task.TaskType(req.Type), req.Payload)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	slog.Info("task started via API",
		"task_id", handle.TaskID,
		"task_type", handle.Type)

	// Processing happens asynchronously, so respond with 202 Accepted.
	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskHandleResponse{
		TaskID:   handle.TaskID.String(),
		TaskType: string(handle.Type),
		Attempt:  handle.Attempt,
	})
}

// GetCurrentTask handles GET /api/tasks/current requests
func (h *TaskHandler) GetCurrentTask(w http.ResponseWriter, r *http.Request) {
	status := h.orchestrator.Status()
	results := h.orchestrator.Results()

	response := CurrentTaskResponse{
		Status:        statusToDTO(status),
		RawText:       results.RawText,
		CorrectedText: results.CorrectedText,
		Explanation:   results.Explanation,
	}
	if results.Err != nil {
		response.Error = &ErrorDetail{
			Stage:   string(results.Err.Stage),
			Kind:    string(results.Err.Kind),
			Message: results.Err.Message,
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// CancelCurrentTask handles DELETE /api/tasks/current requests.
// Cancellation is cooperative: the task observes it at the next stage
// boundary, so the response only confirms the request was recorded.
func (h *TaskHandler) CancelCurrentTask(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.Cancel()
	shared.RespondWithJSON(w, r, http.StatusAccepted, statusToDTO(h.orchestrator.Status()))
}

// SubmitReview handles POST /api/tasks/current/review requests
func (h *TaskHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewDecisionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	err := h.orchestrator.SubmitReviewDecision(task.ReviewDecision{
		Kind:       task.DecisionKind(req.Decision),
		EditedText: req.EditedText,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, statusToDTO(h.orchestrator.Status()))
}

// AcknowledgeFailure handles POST /api/tasks/current/ack requests
func (h *TaskHandler) AcknowledgeFailure(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Acknowledge(); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, statusToDTO(h.orchestrator.Status()))
}

// statusToDTO converts an orchestrator status snapshot to its response form
func statusToDTO(status task.Status) StatusResponse {
	dto := StatusResponse{
		State:    string(status.State),
		Stage:    string(status.Stage),
		TaskType: string(status.TaskType),
		Attempt:  status.Attempt,
	}
	if status.TaskID != uuid.Nil {
		dto.TaskID = status.TaskID.String()
	}
	return dto
}
