package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"load-forecast-alerts/internal/app"
)

var (
	seedDays   int
	seedModels []string
	seedClear  bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate synthetic error history for testing reports and charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedDays <= 0 {
			return fmt.Errorf("--days must be greater than zero")
		}

		opts := app.SeedOptions{
			Days:   seedDays,
			Models: seedModels,
			Clear:  seedClear,
		}
		return getApp().Seed(cmd.Context(), opts)
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedDays, "days", 30, "Number of days of history to generate")
	seedCmd.Flags().StringSliceVar(&seedModels, "models", nil, "Models to seed (defaults to ARIMA, LSTM, GRU, SMA)")
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "Clear existing history before seeding")
}
