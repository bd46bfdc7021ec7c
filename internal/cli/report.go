package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"load-forecast-alerts/internal/app"
)

var (
	reportModel string
	reportDays  int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a forecast error summary report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportDays <= 0 {
			return fmt.Errorf("--days must be greater than zero")
		}

		opts := app.ReportOptions{
			Model: reportModel,
			Days:  reportDays,
		}
		return getApp().Report(cmd.Context(), opts)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportModel, "model", "", "Restrict the report to one model")
	reportCmd.Flags().IntVar(&reportDays, "days", 30, "Number of days to analyze")
}
