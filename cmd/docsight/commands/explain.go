package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/docsight/docsight/cmd/docsight/ui"
	"github.com/docsight/docsight/internal/events"
	"github.com/docsight/docsight/internal/task"
)

var explainCmd = &cobra.Command{
	Use:   "explain <file>",
	Short: "Explain the contents of a text document",
	Long: `Explain runs the generation engine on already-extracted text. Pass a
text file, or "-" to read the text from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	text, err := readExplainInput(args[0])
	if err != nil {
		return err
	}

	app, err := initializeApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.shutdown()

	states := make(chan string, 16)

	spin := ui.NewSpinner("explaining text")
	app.orchestrator.Subscribe(events.Subscriber{
		OnStateChange: func(state string) {
			states <- state
		},
	})

	if _, err := app.orchestrator.Start(task.TaskTypeExplain, text); err != nil {
		return err
	}
	spin.Start()

	for state := range states {
		switch task.State(state) {
		case task.StateFailed:
			spin.Stop()
			results := app.orchestrator.Results()
			if results.Err != nil {
				ui.Error("explanation failed: %s", results.Err.Message)
			}
			if err := app.orchestrator.Acknowledge(); err != nil {
				app.logger.Warn("failed to acknowledge error", "error", err)
			}
			return fmt.Errorf("explanation failed")

		case task.StateIdle:
			spin.Stop()
			results := app.orchestrator.Results()
			if results.Explanation == "" {
				ui.Warning("no explanation produced")
				return nil
			}
			ui.Section("Explanation", results.Explanation)
			return nil
		}
	}
	return nil
}

// readExplainInput loads the text to explain from a file or stdin.
func readExplainInput(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", arg, err)
	}
	return string(data), nil
}
