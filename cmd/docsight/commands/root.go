// Package commands wires the docsight CLI. Each subcommand builds the
// application, runs one interaction against the task orchestrator, and shuts
// it down.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/docsight/docsight/cmd/docsight/ui"
)

var (
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "docsight",
	Short: "Docsight - document photo analysis with recognition and explanation",
	Long: `Docsight turns photos of documents into corrected text and explanations.
It recognizes the text in an image, lets a language model correct recognition
mistakes, pauses for your review, and then explains the accepted text.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(noColor)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
