package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/docsight/docsight/internal/events"
	"github.com/docsight/docsight/internal/generation"
	"github.com/docsight/docsight/internal/recognition"
	"github.com/google/uuid"
)

// Construction errors.
var (
	ErrNilPromptBuilder = errors.New("prompt builder cannot be nil")
	ErrNilNotifier      = errors.New("notifier cannot be nil")
	ErrNilLogger        = errors.New("logger cannot be nil")
)

// eventChannelSize buffers the per-attempt worker channel so the worker never
// blocks on a slow consumer; the consumer drains every attempt to Finished.
const eventChannelSize = 16

// Orchestrator owns the single worker slot and the pipeline state machine.
// It starts and cancels tasks, consumes each attempt's event channel in
// arrival order, parks at the review checkpoint, and resumes or terminates
// the pipeline according to the human decision.
//
// The engine adapters are injected once at construction and shared across
// attempts. A nil recognizer, checker, or generator is allowed: Start then
// fails with ErrMissingDependency for task types that need the missing
// adapter, mirroring an engine that failed to load at startup.
type Orchestrator struct {
	recognizer recognition.Recognizer
	checker    recognition.ImageChecker
	generator  generation.Generator
	prompts    PromptBuilder
	notifier   *events.Notifier
	logger     *slog.Logger

	mu    sync.Mutex
	state State
	stage events.Stage

	// Per-attempt fields, valid while a worker is running.
	current    *Task
	token      *CancelToken
	workerDone chan struct{}

	// Review checkpoint. reviewCh is buffered so a decision submitted from
	// a subscriber callback never blocks; reviewOpen guards against a second
	// submission for the same checkpoint.
	reviewCh   chan ReviewDecision
	reviewOpen bool

	// Stored attempt products and the original image for Redo.
	imagePath     string
	rawText       string
	correctedText string
	explanation   string
	lastErr       *events.Error
}

// NewOrchestrator creates an Orchestrator with the given dependencies.
func NewOrchestrator(
	recognizer recognition.Recognizer,
	checker recognition.ImageChecker,
	generator generation.Generator,
	prompts PromptBuilder,
	notifier *events.Notifier,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if prompts == nil {
		return nil, ErrNilPromptBuilder
	}
	if notifier == nil {
		return nil, ErrNilNotifier
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &Orchestrator{
		recognizer: recognizer,
		checker:    checker,
		generator:  generator,
		prompts:    prompts,
		notifier:   notifier,
		logger:     logger.With("component", "orchestrator"),
		state:      StateIdle,
	}, nil
}

// Subscribe registers handlers for pipeline events. Handlers are invoked
// synchronously on the orchestrator's consumer goroutine, in the exact order
// the worker emitted the events.
func (o *Orchestrator) Subscribe(s events.Subscriber) {
	o.notifier.Register(s)
}

// Start begins a new task attempt. It fails with ErrBusy when a task is
// already active, ErrInvalidInput when the payload is empty, and
// ErrMissingDependency when a required engine adapter is absent. All of
// these are detected synchronously, before any worker is spawned.
func (o *Orchestrator) Start(taskType TaskType, payload string) (TaskHandle, error) {
	o.mu.Lock()
	handle, err := o.startLocked(taskType, payload, 1)
	o.mu.Unlock()

	if err == nil {
		o.notifier.PublishStateChange(string(StateRunning))
	}
	return handle, err
}

func (o *Orchestrator) startLocked(taskType TaskType, payload string, attempt int) (TaskHandle, error) {
	if o.state == StateRunning || o.state == StateAwaitingReview {
		return TaskHandle{}, fmt.Errorf("%w: state is %s", ErrBusy, o.state)
	}

	if strings.TrimSpace(payload) == "" {
		return TaskHandle{}, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}

	switch taskType {
	case TaskTypeRecognizeAndCorrect:
		if o.recognizer == nil || o.checker == nil {
			return TaskHandle{}, fmt.Errorf("%w: recognition engine", ErrMissingDependency)
		}
		if o.generator == nil {
			return TaskHandle{}, fmt.Errorf("%w: generation engine", ErrMissingDependency)
		}
	case TaskTypeExplain:
		if o.generator == nil {
			return TaskHandle{}, fmt.Errorf("%w: generation engine", ErrMissingDependency)
		}
	default:
		return TaskHandle{}, fmt.Errorf("%w: unknown task type %q", ErrInvalidInput, taskType)
	}

	t := &Task{
		ID:      uuid.New(),
		Type:    taskType,
		Payload: payload,
		Attempt: attempt,
	}

	// A fresh attempt must not expose the previous attempt's products.
	o.discardResultsLocked()
	o.lastErr = nil
	if taskType == TaskTypeRecognizeAndCorrect {
		o.imagePath = payload
	}

	token := NewCancelToken()
	ch := make(chan events.Event, eventChannelSize)
	done := make(chan struct{})

	o.current = t
	o.token = token
	o.workerDone = done
	o.state = StateRunning
	if taskType == TaskTypeRecognizeAndCorrect {
		o.stage = events.StageRecognize
	} else {
		o.stage = events.StageExplain
	}

	w := &worker{
		task:       t,
		token:      token,
		recognizer: o.recognizer,
		checker:    o.checker,
		generator:  o.generator,
		prompts:    o.prompts,
		ch:         ch,
		logger:     o.logger,
	}

	o.logger.Info("starting task",
		"task_id", t.ID,
		"task_type", t.Type,
		"attempt", t.Attempt)

	go w.run(context.Background())
	go o.consume(t, token, ch, done)

	return TaskHandle{TaskID: t.ID, Type: taskType, Attempt: attempt}, nil
}

// Cancel requests cooperative cancellation of the active attempt. It is a
// no-op when no worker is running; during AwaitingReview the checkpoint's
// Cancel decision is the way out. Cancellation is observed only at stage
// boundaries, so it is bounded by however long the current engine call takes.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	token := o.token
	current := o.current
	o.mu.Unlock()

	if token == nil {
		o.logger.Debug("cancel requested with no active task")
		return
	}

	token.Set()
	o.logger.Info("cancellation requested", "task_id", current.ID, "task_type", current.Type)
}

// SubmitReviewDecision delivers the human decision for the pending review
// checkpoint. It fails with ErrNoReviewPending when no checkpoint is waiting
// or a decision was already submitted for the current one.
func (o *Orchestrator) SubmitReviewDecision(d ReviewDecision) error {
	o.mu.Lock()
	if !o.reviewOpen || o.reviewCh == nil {
		o.mu.Unlock()
		return ErrNoReviewPending
	}
	o.reviewOpen = false
	ch := o.reviewCh
	o.mu.Unlock()

	ch <- d
	return nil
}

// Acknowledge clears a Failed state and returns the pipeline to Idle. The
// pipeline stays Failed until someone has seen the error report; there is no
// silent retry.
func (o *Orchestrator) Acknowledge() error {
	o.mu.Lock()
	if o.state != StateFailed {
		o.mu.Unlock()
		return ErrNotFailed
	}
	o.lastErr = nil
	o.state = StateIdle
	o.mu.Unlock()

	o.notifier.PublishStateChange(string(StateIdle))
	return nil
}

// Status returns a snapshot of the pipeline state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{State: o.state}
	if o.state == StateRunning {
		s.Stage = o.stage
	}
	if o.current != nil {
		s.TaskID = o.current.ID
		s.TaskType = o.current.Type
		s.Attempt = o.current.Attempt
	}
	return s
}

// Results returns the stored products of the current or most recent attempt.
func (o *Orchestrator) Results() Results {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := Results{
		RawText:       o.rawText,
		CorrectedText: o.correctedText,
		Explanation:   o.explanation,
	}
	if o.lastErr != nil {
		errCopy := *o.lastErr
		r.Err = &errCopy
	}
	return r
}

// Shutdown cancels any active attempt and waits for the worker's Finished
// event up to the context deadline. Teardown proceeds regardless; an elapsed
// grace period is logged as an unclean shutdown.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	// Unpark a waiting review checkpoint so its goroutine can exit.
	_ = o.SubmitReviewDecision(ReviewDecision{Kind: DecisionCancel})

	o.mu.Lock()
	token := o.token
	done := o.workerDone
	o.mu.Unlock()

	if token == nil || done == nil {
		return nil
	}

	token.Set()
	select {
	case <-done:
		o.logger.Info("worker finished during shutdown grace period")
		return nil
	case <-ctx.Done():
		o.logger.Warn("unclean shutdown: worker did not finish within grace period")
		return ctx.Err()
	}
}

// consume processes one attempt's events strictly in arrival order, then
// drives the terminal transition for the attempt. It runs on its own
// goroutine per attempt; a chained attempt (post-review) gets a new one.
func (o *Orchestrator) consume(t *Task, token *CancelToken, ch <-chan events.Event, done chan struct{}) {
	failed := false

	for ev := range ch {
		switch e := ev.(type) {
		case events.Progress:
			if failed {
				continue
			}
			o.notifier.PublishProgress(e)

		case events.Result:
			if failed {
				continue
			}
			o.handleResult(t, e)

		case events.Error:
			failed = true
			o.mu.Lock()
			errCopy := e
			o.lastErr = &errCopy
			o.state = StateFailed
			o.mu.Unlock()

			o.notifier.PublishError(e)
			o.notifier.PublishStateChange(string(StateFailed))

		case events.Finished:
			close(done)
			o.notifier.PublishFinished()
			o.finishAttempt(t, token)
			return
		}
	}
}

func (o *Orchestrator) handleResult(t *Task, e events.Result) {
	var review *events.ReviewRequest

	o.mu.Lock()
	switch e.Kind {
	case events.ResultRawText:
		o.rawText = e.Data
		o.stage = events.StageCorrect
	case events.ResultCorrectedText:
		o.correctedText = e.Data
		o.state = StateAwaitingReview
		o.reviewCh = make(chan ReviewDecision, 1)
		o.reviewOpen = true
		review = &events.ReviewRequest{
			TaskID:        t.ID,
			ImagePath:     o.imagePath,
			RawText:       o.rawText,
			CorrectedText: o.correctedText,
		}
	case events.ResultExplanation:
		o.explanation = e.Data
		o.state = StateCompleted
	}
	o.mu.Unlock()

	o.notifier.PublishResult(e)
	if review != nil {
		o.notifier.PublishStateChange(string(StateAwaitingReview))
		o.notifier.PublishReviewRequested(*review)
	}
	if e.Kind == events.ResultExplanation {
		o.notifier.PublishStateChange(string(StateCompleted))
	}
}

// finishAttempt releases the worker slot and completes the attempt's terminal
// transition after its Finished event has been observed.
func (o *Orchestrator) finishAttempt(t *Task, token *CancelToken) {
	o.mu.Lock()

	switch {
	case o.state == StateFailed:
		// Stays Failed until acknowledged; partial results are discarded so
		// nothing stale is visible to a subsequent task.
		o.discardResultsLocked()
		o.releaseWorkerLocked()
		o.closeReviewLocked()
		o.mu.Unlock()

	case token.IsSet():
		// A requested cancel wins even if the worker happened to complete
		// all stages before observing the flag.
		o.state = StateCancelled
		o.discardResultsLocked()
		o.releaseWorkerLocked()
		o.closeReviewLocked()
		o.state = StateIdle
		o.mu.Unlock()

		o.logger.Info("task cancelled", "task_id", t.ID, "task_type", t.Type)
		o.notifier.PublishStateChange(string(StateCancelled))
		o.notifier.PublishStateChange(string(StateIdle))

	case o.state == StateAwaitingReview:
		reviewCh := o.reviewCh
		o.releaseWorkerLocked()
		o.mu.Unlock()

		o.awaitReview(t, reviewCh)

	case o.state == StateCompleted:
		// Subscribers were handed the explanation before Finished was
		// dispatched, so presentation has happened by the time we get here.
		o.releaseWorkerLocked()
		o.state = StateIdle
		o.mu.Unlock()

		o.logger.Info("task completed", "task_id", t.ID, "task_type", t.Type)
		o.notifier.PublishStateChange(string(StateIdle))

	default:
		// The worker stopped without a result, an error, or a cancel
		// request. Nothing to keep; treat it like a cancelled attempt.
		o.state = StateCancelled
		o.discardResultsLocked()
		o.releaseWorkerLocked()
		o.closeReviewLocked()
		o.state = StateIdle
		o.mu.Unlock()

		o.logger.Warn("worker finished without terminal event",
			"task_id", t.ID, "task_type", t.Type)
		o.notifier.PublishStateChange(string(StateCancelled))
		o.notifier.PublishStateChange(string(StateIdle))
	}
}

// awaitReview parks until the human decision arrives, then resumes or
// terminates the pipeline. This is the controller flow, never the worker's:
// the worker slot is already free and no cancellation token exists here.
func (o *Orchestrator) awaitReview(t *Task, reviewCh <-chan ReviewDecision) {
	decision := <-reviewCh

	o.logger.Info("review decision received",
		"task_id", t.ID,
		"decision", decision.Kind)

	o.mu.Lock()
	o.reviewCh = nil
	o.reviewOpen = false

	switch decision.Kind {
	case DecisionRedo:
		imagePath := o.imagePath
		o.state = StateIdle
		_, err := o.startLocked(TaskTypeRecognizeAndCorrect, imagePath, t.Attempt+1)
		o.mu.Unlock()

		if err != nil {
			o.logger.Error("failed to restart after redo", "error", err)
			o.notifier.PublishStateChange(string(StateIdle))
			return
		}
		o.notifier.PublishStateChange(string(StateRunning))

	case DecisionAccept:
		edited := strings.TrimSpace(decision.EditedText)
		if edited == "" {
			// Nothing to explain; matches refusing an empty accepted text.
			o.discardResultsLocked()
			o.state = StateIdle
			o.mu.Unlock()

			o.logger.Warn("accepted text is empty, returning to idle", "task_id", t.ID)
			o.notifier.PublishStateChange(string(StateIdle))
			return
		}

		o.state = StateIdle
		_, err := o.startLocked(TaskTypeExplain, edited, 1)
		o.mu.Unlock()

		if err != nil {
			o.logger.Error("failed to chain into explain task", "error", err)
			o.notifier.PublishStateChange(string(StateIdle))
			return
		}
		o.notifier.PublishStateChange(string(StateRunning))

	case DecisionCancel:
		o.discardResultsLocked()
		o.state = StateIdle
		o.mu.Unlock()

		o.logger.Info("review cancelled, returning to idle", "task_id", t.ID)
		o.notifier.PublishStateChange(string(StateIdle))

	default:
		o.discardResultsLocked()
		o.state = StateIdle
		o.mu.Unlock()

		o.logger.Error("unknown review decision, returning to idle",
			"task_id", t.ID, "decision", decision.Kind)
		o.notifier.PublishStateChange(string(StateIdle))
	}
}

func (o *Orchestrator) discardResultsLocked() {
	o.rawText = ""
	o.correctedText = ""
	o.explanation = ""
}

func (o *Orchestrator) releaseWorkerLocked() {
	o.current = nil
	o.token = nil
	o.workerDone = nil
}

func (o *Orchestrator) closeReviewLocked() {
	o.reviewCh = nil
	o.reviewOpen = false
}
