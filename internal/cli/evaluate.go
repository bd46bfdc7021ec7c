package cli

import (
	"github.com/spf13/cobra"

	"load-forecast-alerts/internal/app"
)

var (
	evaluateResults string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate today's forecast results once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.EvaluateOptions{
			ResultsFile: evaluateResults,
		}
		return getApp().Evaluate(cmd.Context(), opts)
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateResults, "results", "", "Path to forecast results file (defaults to config)")
}
