package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsight/docsight/internal/events"
	"github.com/docsight/docsight/internal/mocks"
	"github.com/docsight/docsight/internal/prompt"
	"github.com/docsight/docsight/internal/task"
)

func newTestHandler(t *testing.T) (*TaskHandler, *task.Orchestrator) {
	t.Helper()

	prompts, err := prompt.New()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orchestrator, err := task.NewOrchestrator(
		&mocks.MockRecognizer{Fragments: []string{"recognized text"}},
		&mocks.MockImageChecker{},
		&mocks.MockGenerator{Text: "generated text"},
		prompts,
		events.NewNotifier(logger),
		logger,
	)
	require.NoError(t, err)

	return NewTaskHandler(orchestrator), orchestrator
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func waitForState(t *testing.T, orchestrator *task.Orchestrator, want task.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return orchestrator.Status().State == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTaskHandler_StartTask(t *testing.T) {
	handler, orchestrator := newTestHandler(t)

	w := postJSON(t, handler.StartTask, "/api/tasks", StartTaskRequest{
		Type:    "explain",
		Payload: "some document text",
	})

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp TaskHandleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, "explain", resp.TaskType)
	assert.Equal(t, 1, resp.Attempt)

	waitForState(t, orchestrator, task.StateIdle)
}

func TestTaskHandler_StartTaskValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	testCases := []struct {
		name string
		body interface{}
	}{
		{name: "empty payload", body: StartTaskRequest{Type: "explain"}},
		{name: "unknown type", body: StartTaskRequest{Type: "summarize", Payload: "text"}},
		{name: "missing type", body: StartTaskRequest{Payload: "text"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, handler.StartTask, "/api/tasks", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestTaskHandler_StartTaskMalformedJSON(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	handler.StartTask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_StartTaskWhileBusy(t *testing.T) {
	handler, orchestrator := newTestHandler(t)

	// Ride through the review checkpoint to hold the busy state open.
	w := postJSON(t, handler.StartTask, "/api/tasks", StartTaskRequest{
		Type:    "recognize_and_correct",
		Payload: "page.png",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	waitForState(t, orchestrator, task.StateAwaitingReview)

	w = postJSON(t, handler.StartTask, "/api/tasks", StartTaskRequest{
		Type:    "explain",
		Payload: "other text",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unblock the checkpoint so the orchestrator can settle.
	w = postJSON(t, handler.SubmitReview, "/api/tasks/current/review", ReviewDecisionRequest{
		Decision: "cancel",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	waitForState(t, orchestrator, task.StateIdle)
}

func TestTaskHandler_GetCurrentTask(t *testing.T) {
	handler, orchestrator := newTestHandler(t)

	w := postJSON(t, handler.StartTask, "/api/tasks", StartTaskRequest{
		Type:    "recognize_and_correct",
		Payload: "page.png",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	waitForState(t, orchestrator, task.StateAwaitingReview)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/current", nil)
	rec := httptest.NewRecorder()
	handler.GetCurrentTask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CurrentTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "awaiting_review", resp.Status.State)
	assert.Equal(t, "recognized text", resp.RawText)
	assert.Equal(t, "generated text", resp.CorrectedText)
	assert.Nil(t, resp.Error)

	w = postJSON(t, handler.SubmitReview, "/api/tasks/current/review", ReviewDecisionRequest{
		Decision: "cancel",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	waitForState(t, orchestrator, task.StateIdle)
}

func TestTaskHandler_SubmitReviewWithoutCheckpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := postJSON(t, handler.SubmitReview, "/api/tasks/current/review", ReviewDecisionRequest{
		Decision:   "accept",
		EditedText: "edited",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTaskHandler_SubmitReviewValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := postJSON(t, handler.SubmitReview, "/api/tasks/current/review", ReviewDecisionRequest{
		Decision: "maybe",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_AcknowledgeWithoutFailure(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/current/ack", nil)
	w := httptest.NewRecorder()
	handler.AcknowledgeFailure(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTaskHandler_CancelIsAlwaysAccepted(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/tasks/current", nil)
	w := httptest.NewRecorder()
	handler.CancelCurrentTask(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "idle", resp.State)
}
