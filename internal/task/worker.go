package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/docsight/docsight/internal/events"
	"github.com/docsight/docsight/internal/generation"
	"github.com/docsight/docsight/internal/recognition"
)

// worker executes the stage sequence for one task attempt on its own
// goroutine. It emits events over ch in the order they happen and always
// emits Finished last, whatever path the attempt takes. It reads the cancel
// token only at stage boundaries.
type worker struct {
	task       *Task
	token      *CancelToken
	recognizer recognition.Recognizer
	checker    recognition.ImageChecker
	generator  generation.Generator
	prompts    PromptBuilder
	ch         chan<- events.Event
	logger     *slog.Logger
}

// run executes the attempt. The deferred Finished emission is the attempt's
// guaranteed-run cleanup path: it fires on success, on error, and on early
// cancellation exit alike.
func (w *worker) run(ctx context.Context) {
	defer func() {
		w.ch <- events.Finished{}
		close(w.ch)
	}()

	switch w.task.Type {
	case TaskTypeRecognizeAndCorrect:
		w.runRecognizeAndCorrect(ctx)
	case TaskTypeExplain:
		w.runExplain(ctx)
	default:
		w.fail(events.StageRecognize, events.ErrorKindInvalidInput,
			errors.New("unknown task type: "+string(w.task.Type)))
	}
}

func (w *worker) runRecognizeAndCorrect(ctx context.Context) {
	w.progress(5)

	if err := w.checker.CheckImage(w.task.Payload); err != nil {
		w.fail(events.StageRecognize, events.ErrorKindInvalidInput, err)
		return
	}
	w.progress(10)

	if w.cancelled() {
		return
	}

	fragments, err := w.recognizer.Recognize(ctx, w.task.Payload)
	if err != nil {
		w.fail(events.StageRecognize, events.ErrorKindEngineFailure, err)
		return
	}
	rawText := strings.Join(fragments, "\n")
	w.result(events.ResultRawText, rawText)
	w.progress(50)

	// Stage boundary: a cancel observed here ends the attempt without any
	// correction-stage events.
	if w.cancelled() {
		return
	}
	w.progress(55)

	promptText, params, err := w.prompts.Correction(rawText)
	if err != nil {
		w.fail(events.StageCorrect, events.ErrorKindEngineFailure, err)
		return
	}

	corrected, err := w.generator.Generate(ctx, promptText, params)
	if err != nil {
		w.fail(events.StageCorrect, events.ErrorKindEngineFailure, err)
		return
	}
	w.result(events.ResultCorrectedText, strings.TrimSpace(corrected))
	w.progress(100)
}

func (w *worker) runExplain(ctx context.Context) {
	w.progress(10)

	text := strings.TrimSpace(w.task.Payload)
	if text == "" {
		w.fail(events.StageExplain, events.ErrorKindInvalidInput,
			errors.New("no text to explain"))
		return
	}

	if w.cancelled() {
		return
	}

	promptText, params, err := w.prompts.Explanation(text)
	if err != nil {
		w.fail(events.StageExplain, events.ErrorKindEngineFailure, err)
		return
	}

	explanation, err := w.generator.Generate(ctx, promptText, params)
	if err != nil {
		w.fail(events.StageExplain, events.ErrorKindEngineFailure, err)
		return
	}
	w.result(events.ResultExplanation, strings.TrimSpace(explanation))
	w.progress(100)
}

func (w *worker) cancelled() bool {
	if w.token.IsSet() {
		w.logger.Info("cancellation observed at stage boundary",
			"task_id", w.task.ID,
			"task_type", w.task.Type)
		return true
	}
	return false
}

func (w *worker) progress(percent int) {
	w.ch <- events.Progress{TaskType: string(w.task.Type), Percent: percent}
}

func (w *worker) result(kind events.ResultKind, data string) {
	w.ch <- events.Result{Kind: kind, Data: data}
}

func (w *worker) fail(stage events.Stage, kind events.ErrorKind, err error) {
	w.logger.Error("pipeline stage failed",
		"task_id", w.task.ID,
		"task_type", w.task.Type,
		"stage", stage,
		"error_kind", kind,
		"error", err)
	w.ch <- events.Error{Stage: stage, Kind: kind, Message: err.Error()}
}
