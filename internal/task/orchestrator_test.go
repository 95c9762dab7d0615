package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsight/docsight/internal/events"
	"github.com/docsight/docsight/internal/generation"
	"github.com/docsight/docsight/internal/mocks"
	"github.com/docsight/docsight/internal/prompt"
)

const testTimeout = 5 * time.Second

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// recorder subscribes to the orchestrator and keeps an ordered trace of every
// event it observes, plus channels to wait on attempt boundaries.
type recorder struct {
	mu       sync.Mutex
	trace    []string
	percents []int

	finished chan struct{}
	reviews  chan events.ReviewRequest
}

func newRecorder() *recorder {
	return &recorder{
		finished: make(chan struct{}, 8),
		reviews:  make(chan events.ReviewRequest, 8),
	}
}

func (r *recorder) subscriber() events.Subscriber {
	return events.Subscriber{
		OnProgress: func(ev events.Progress) {
			r.mu.Lock()
			r.trace = append(r.trace, fmt.Sprintf("progress:%d", ev.Percent))
			r.percents = append(r.percents, ev.Percent)
			r.mu.Unlock()
		},
		OnResult: func(ev events.Result) {
			r.mu.Lock()
			r.trace = append(r.trace, fmt.Sprintf("result:%s:%s", ev.Kind, ev.Data))
			r.mu.Unlock()
		},
		OnError: func(ev events.Error) {
			r.mu.Lock()
			r.trace = append(r.trace, fmt.Sprintf("error:%s:%s", ev.Stage, ev.Kind))
			r.mu.Unlock()
		},
		OnFinished: func() {
			r.mu.Lock()
			r.trace = append(r.trace, "finished")
			r.mu.Unlock()
			r.finished <- struct{}{}
		},
		OnReviewRequested: func(req events.ReviewRequest) {
			r.reviews <- req
		},
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	trace := make([]string, len(r.trace))
	copy(trace, r.trace)
	return trace
}

func (r *recorder) progressValues() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	percents := make([]int, len(r.percents))
	copy(percents, r.percents)
	return percents
}

func (r *recorder) countFinished() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.trace {
		if entry == "finished" {
			n++
		}
	}
	return n
}

func (r *recorder) waitFinished(t *testing.T) {
	t.Helper()
	select {
	case <-r.finished:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for finished event")
	}
}

func (r *recorder) waitReview(t *testing.T) events.ReviewRequest {
	t.Helper()
	select {
	case req := <-r.reviews:
		return req
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for review request")
		return events.ReviewRequest{}
	}
}

type fixture struct {
	orch       *Orchestrator
	recognizer *mocks.MockRecognizer
	checker    *mocks.MockImageChecker
	generator  *mocks.MockGenerator
	rec        *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	recognizer := &mocks.MockRecognizer{Fragments: []string{"Hello wrold"}}
	checker := &mocks.MockImageChecker{}
	generator := &mocks.MockGenerator{Text: "Hello world."}

	prompts, err := prompt.New()
	require.NoError(t, err)

	logger := newTestLogger()
	notifier := events.NewNotifier(logger)

	orch, err := NewOrchestrator(recognizer, checker, generator, prompts, notifier, logger)
	require.NoError(t, err)

	rec := newRecorder()
	orch.Subscribe(rec.subscriber())

	return &fixture{
		orch:       orch,
		recognizer: recognizer,
		checker:    checker,
		generator:  generator,
		rec:        rec,
	}
}

func waitForState(t *testing.T, orch *Orchestrator, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return orch.Status().State == want
	}, testTimeout, 5*time.Millisecond, "expected state %s, got %s", want, orch.Status().State)
}

func TestOrchestrator_ScenarioRecognizeAndCorrect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	handle, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeRecognizeAndCorrect, handle.Type)
	assert.Equal(t, 1, handle.Attempt)

	f.rec.waitFinished(t)

	assert.Equal(t, []string{
		"progress:5",
		"progress:10",
		"result:raw_text:Hello wrold",
		"progress:50",
		"progress:55",
		"result:corrected_text:Hello world.",
		"progress:100",
		"finished",
	}, f.rec.snapshot())

	waitForState(t, f.orch, StateAwaitingReview)

	results := f.orch.Results()
	assert.Equal(t, "Hello wrold", results.RawText)
	assert.Equal(t, "Hello world.", results.CorrectedText)
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	release := make(chan struct{})
	f.checker.CheckImageFn = func(imagePath string) error {
		<-release
		return nil
	}

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)

	// Second start while the first is running must fail Busy.
	_, err = f.orch.Start(TaskTypeRecognizeAndCorrect, "other.png")
	assert.ErrorIs(t, err, ErrBusy)

	_, err = f.orch.Start(TaskTypeExplain, "some text")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	f.rec.waitFinished(t)
	waitForState(t, f.orch, StateAwaitingReview)

	// AwaitingReview also counts as active.
	_, err = f.orch.Start(TaskTypeExplain, "some text")
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, f.orch.SubmitReviewDecision(ReviewDecision{Kind: DecisionCancel}))
	waitForState(t, f.orch, StateIdle)
}

func TestOrchestrator_StartValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "")
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = f.orch.Start(TaskTypeExplain, "   ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown task type", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.orch.Start(TaskType("transcribe"), "doc.png")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing recognition engine", func(t *testing.T) {
		t.Parallel()

		prompts, err := prompt.New()
		require.NoError(t, err)
		logger := newTestLogger()

		orch, err := NewOrchestrator(
			nil, nil, &mocks.MockGenerator{}, prompts, events.NewNotifier(logger), logger)
		require.NoError(t, err)

		_, err = orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
		assert.ErrorIs(t, err, ErrMissingDependency)

		// Explain only needs the generation engine.
		_, err = orch.Start(TaskTypeExplain, "some text")
		assert.NoError(t, err)
	})

	t.Run("missing generation engine", func(t *testing.T) {
		t.Parallel()

		prompts, err := prompt.New()
		require.NoError(t, err)
		logger := newTestLogger()

		orch, err := NewOrchestrator(
			&mocks.MockRecognizer{}, &mocks.MockImageChecker{}, nil,
			prompts, events.NewNotifier(logger), logger)
		require.NoError(t, err)

		_, err = orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
		assert.ErrorIs(t, err, ErrMissingDependency)

		_, err = orch.Start(TaskTypeExplain, "some text")
		assert.ErrorIs(t, err, ErrMissingDependency)
	})
}

func TestOrchestrator_ProgressMonotonic(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	f.rec.waitFinished(t)

	percents := f.rec.progressValues()
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1],
			"progress must be non-decreasing: %v", percents)
	}
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestOrchestrator_FinishedExactlyOncePerAttempt(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	f.rec.waitFinished(t)

	trace := f.rec.snapshot()
	assert.Equal(t, 1, f.rec.countFinished())
	assert.Equal(t, "finished", trace[len(trace)-1], "finished must be the last event")
}

func TestOrchestrator_ResultOrderingInvariant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	f.rec.waitFinished(t)

	rawIndex, correctedIndex := -1, -1
	for i, entry := range f.rec.snapshot() {
		switch {
		case entry == "result:raw_text:Hello wrold":
			rawIndex = i
		case entry == "result:corrected_text:Hello world.":
			correctedIndex = i
		}
	}
	require.NotEqual(t, -1, rawIndex)
	require.NotEqual(t, -1, correctedIndex)
	assert.Less(t, rawIndex, correctedIndex,
		"corrected text must never be observed before raw text")
}

func TestOrchestrator_CancelBeforeResult(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	cancelRequested := make(chan struct{})
	f.checker.CheckImageFn = func(imagePath string) error {
		// Hold the worker inside stage one until the cancel arrives, so the
		// boundary check after validation observes the token.
		<-cancelRequested
		return nil
	}

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)

	f.orch.Cancel()
	close(cancelRequested)

	f.rec.waitFinished(t)
	waitForState(t, f.orch, StateIdle)

	for _, entry := range f.rec.snapshot() {
		assert.NotContains(t, entry, "result:", "no results may be delivered after cancel")
	}
	assert.Equal(t, 0, f.recognizer.CallCount(), "recognition must not run after cancel")

	results := f.orch.Results()
	assert.Empty(t, results.RawText)
	assert.Empty(t, results.CorrectedText)
}

func TestOrchestrator_CancelIsNoopWhenIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	f.orch.Cancel()
	assert.Equal(t, StateIdle, f.orch.Status().State)
}

func TestOrchestrator_EngineFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.generator.GenerateFn = func(ctx context.Context, promptText string, params generation.Params) (string, error) {
		return "", errors.New("model exploded")
	}

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	f.rec.waitFinished(t)
	waitForState(t, f.orch, StateFailed)

	trace := f.rec.snapshot()
	assert.Contains(t, trace, "error:correct:engine_failure")

	results := f.orch.Results()
	require.NotNil(t, results.Err)
	assert.Equal(t, events.StageCorrect, results.Err.Stage)
	assert.Equal(t, events.ErrorKindEngineFailure, results.Err.Kind)
	assert.Contains(t, results.Err.Message, "model exploded")
	assert.Empty(t, results.RawText, "failed attempts must not leave stale partial results")

	// Failed persists until acknowledged.
	assert.Equal(t, StateFailed, f.orch.Status().State)
	require.NoError(t, f.orch.Acknowledge())
	assert.Equal(t, StateIdle, f.orch.Status().State)
	assert.Nil(t, f.orch.Results().Err)

	assert.ErrorIs(t, f.orch.Acknowledge(), ErrNotFailed)
}

func TestOrchestrator_UnreadableImageFailsInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.checker.Err = errors.New("cannot decode image")

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "corrupt.png")
	require.NoError(t, err)
	f.rec.waitFinished(t)
	waitForState(t, f.orch, StateFailed)

	assert.Contains(t, f.rec.snapshot(), "error:recognize:invalid_input")
	assert.Equal(t, 0, f.recognizer.CallCount())
}

func TestOrchestrator_RedoProducesFreshAttempt(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	attempts := []string{"first pass", "second pass"}
	f.recognizer.RecognizeFn = func(ctx context.Context, imagePath string) ([]string, error) {
		return []string{attempts[f.recognizer.CallCount()-1]}, nil
	}

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)

	first := f.rec.waitReview(t)
	assert.Equal(t, "first pass", first.RawText)
	f.rec.waitFinished(t)

	require.NoError(t, f.orch.SubmitReviewDecision(ReviewDecision{Kind: DecisionRedo}))

	second := f.rec.waitReview(t)
	assert.Equal(t, "second pass", second.RawText, "redo must produce fresh recognition output")
	assert.NotEqual(t, first.TaskID, second.TaskID, "redo creates a new task id")
	f.rec.waitFinished(t)

	waitForState(t, f.orch, StateAwaitingReview)
	assert.Equal(t, 2, f.recognizer.CallCount())
	assert.Equal(t, 2, f.orch.Status().Attempt)
	assert.Equal(t, []string{"doc.png", "doc.png"}, f.recognizer.ImagePaths(),
		"redo reuses the original payload")
}

func TestOrchestrator_AcceptUsesEditedText(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.generator.GenerateFn = func(ctx context.Context, promptText string, params generation.Params) (string, error) {
		if f.generator.CallCount() == 1 {
			return "Hello wrold.", nil // correction keeps the typo
		}
		return "A short greeting.", nil
	}

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)

	req := f.rec.waitReview(t)
	assert.Equal(t, "Hello wrold.", req.CorrectedText)
	f.rec.waitFinished(t)

	require.NoError(t, f.orch.SubmitReviewDecision(ReviewDecision{
		Kind:       DecisionAccept,
		EditedText: "Hello world.",
	}))

	f.rec.waitFinished(t) // explain attempt
	waitForState(t, f.orch, StateIdle)

	prompts := f.generator.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "Hello world.",
		"the explain task must receive the human-edited text")
	assert.NotContains(t, prompts[1], "Hello wrold.",
		"the original corrected text must not be used once edited")

	assert.Equal(t, "A short greeting.", f.orch.Results().Explanation)
}

func TestOrchestrator_AcceptEmptyEditedTextReturnsToIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	f.rec.waitReview(t)
	f.rec.waitFinished(t)

	require.NoError(t, f.orch.SubmitReviewDecision(ReviewDecision{
		Kind:       DecisionAccept,
		EditedText: "   ",
	}))

	waitForState(t, f.orch, StateIdle)
	assert.Equal(t, 1, f.generator.CallCount(), "no explain task may start for empty text")
}

func TestOrchestrator_ReviewCancelDiscardsResults(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	f.rec.waitReview(t)
	f.rec.waitFinished(t)

	require.NoError(t, f.orch.SubmitReviewDecision(ReviewDecision{Kind: DecisionCancel}))
	waitForState(t, f.orch, StateIdle)

	results := f.orch.Results()
	assert.Empty(t, results.RawText)
	assert.Empty(t, results.CorrectedText)
}

func TestOrchestrator_SubmitReviewDecisionWithoutCheckpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.orch.SubmitReviewDecision(ReviewDecision{Kind: DecisionCancel})
	assert.ErrorIs(t, err, ErrNoReviewPending)
}

func TestOrchestrator_DoubleReviewSubmission(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	f.rec.waitReview(t)
	f.rec.waitFinished(t)

	require.NoError(t, f.orch.SubmitReviewDecision(ReviewDecision{Kind: DecisionCancel}))
	assert.ErrorIs(t,
		f.orch.SubmitReviewDecision(ReviewDecision{Kind: DecisionRedo}),
		ErrNoReviewPending)
}

func TestOrchestrator_ExplainTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.generator.Text = "This is a memo about deadlines."

	handle, err := f.orch.Start(TaskTypeExplain, "Finish the report by Friday.")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeExplain, handle.Type)

	f.rec.waitFinished(t)
	waitForState(t, f.orch, StateIdle)

	assert.Equal(t, []string{
		"progress:10",
		"result:explanation:This is a memo about deadlines.",
		"progress:100",
		"finished",
	}, f.rec.snapshot())

	assert.Equal(t, "This is a memo about deadlines.", f.orch.Results().Explanation)
}

func TestOrchestrator_ShutdownWithNoActiveTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, f.orch.Shutdown(ctx))
}

func TestOrchestrator_ShutdownGracePeriodElapses(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	release := make(chan struct{})
	f.recognizer.RecognizeFn = func(ctx context.Context, imagePath string) ([]string, error) {
		<-release
		return []string{"late"}, nil
	}
	defer close(release)

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)

	// Give the worker time to enter the blocking engine call.
	require.Eventually(t, func() bool {
		return f.checker.CallCount() == 1
	}, testTimeout, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = f.orch.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOrchestrator_ShutdownResolvesPendingReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.orch.Start(TaskTypeRecognizeAndCorrect, "doc.png")
	require.NoError(t, err)
	f.rec.waitReview(t)
	f.rec.waitFinished(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.orch.Shutdown(ctx))

	waitForState(t, f.orch, StateIdle)
}

func TestNewOrchestrator_Validation(t *testing.T) {
	t.Parallel()

	prompts, err := prompt.New()
	require.NoError(t, err)
	logger := newTestLogger()
	notifier := events.NewNotifier(logger)

	_, err = NewOrchestrator(nil, nil, nil, nil, notifier, logger)
	assert.ErrorIs(t, err, ErrNilPromptBuilder)

	_, err = NewOrchestrator(nil, nil, nil, prompts, nil, logger)
	assert.ErrorIs(t, err, ErrNilNotifier)

	_, err = NewOrchestrator(nil, nil, nil, prompts, notifier, nil)
	assert.ErrorIs(t, err, ErrNilLogger)
}
