package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docsight/docsight/cmd/docsight/ui"
	"github.com/docsight/docsight/internal/events"
	"github.com/docsight/docsight/internal/task"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Recognize, correct, review, and explain the text in a document photo",
	Long: `Analyze runs the full pipeline on a document photo: text recognition,
model-based correction of recognition mistakes, an interactive review of the
corrected text, and an explanation of the accepted result.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	app, err := initializeApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.shutdown()

	// Buffered so the notifier callbacks, which run on the orchestrator's
	// consumer goroutine, never block on this command's event loop.
	reviews := make(chan events.ReviewRequest, 4)
	states := make(chan string, 64)

	bar := ui.NewProgressBar("analyzing")
	app.orchestrator.Subscribe(events.Subscriber{
		OnProgress: func(p events.Progress) {
			bar.Set(p.Percent)
		},
		OnError: func(e events.Error) {
			bar.Finish()
		},
		OnReviewRequested: func(r events.ReviewRequest) {
			reviews <- r
		},
		OnStateChange: func(state string) {
			states <- state
		},
	})

	// Ctrl+C requests cooperative cancellation; the task stops at the next
	// stage boundary.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	if _, err := app.orchestrator.Start(task.TaskTypeRecognizeAndCorrect, args[0]); err != nil {
		return err
	}

	for {
		select {
		case <-interrupts:
			ui.Warning("cancelling at the next stage boundary...")
			app.orchestrator.Cancel()

		case req := <-reviews:
			decision, err := promptReviewDecision(req)
			if err != nil {
				return err
			}
			if err := app.orchestrator.SubmitReviewDecision(decision); err != nil {
				return err
			}

		case state := <-states:
			switch task.State(state) {
			case task.StateFailed:
				results := app.orchestrator.Results()
				if results.Err != nil {
					ui.Error("%s stage failed: %s", results.Err.Stage, results.Err.Message)
				}
				if err := app.orchestrator.Acknowledge(); err != nil {
					app.logger.Warn("failed to acknowledge error", "error", err)
				}
				return fmt.Errorf("analysis failed")

			case task.StateCancelled:
				ui.Warning("analysis cancelled")

			case task.StateIdle:
				results := app.orchestrator.Results()
				if results.Explanation == "" {
					return nil
				}
				ui.Section("Explanation", results.Explanation)
				ui.Success("analysis complete")
				return nil
			}
		}
	}
}

// promptReviewDecision shows the corrected text and asks what to do with it.
func promptReviewDecision(req events.ReviewRequest) (task.ReviewDecision, error) {
	ui.Section("Corrected text", req.CorrectedText)

	choice, err := ui.PromptChoice(
		"accept, edit, redo recognition, or cancel",
		[]string{"a", "e", "r", "c"},
	)
	if err != nil {
		return task.ReviewDecision{}, err
	}

	switch choice {
	case "a":
		return task.ReviewDecision{Kind: task.DecisionAccept, EditedText: req.CorrectedText}, nil
	case "e":
		edited, err := ui.PromptMultiline("Enter the final text")
		if err != nil {
			return task.ReviewDecision{}, err
		}
		return task.ReviewDecision{Kind: task.DecisionAccept, EditedText: edited}, nil
	case "r":
		return task.ReviewDecision{Kind: task.DecisionRedo}, nil
	default:
		return task.ReviewDecision{Kind: task.DecisionCancel}, nil
	}
}
