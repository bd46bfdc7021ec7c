package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"load-forecast-alerts/internal/app"
)

var (
	showModel string
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the most recent recorded forecast errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Model: showModel,
			Limit: showLimit,
		}
		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showModel, "model", "", "Restrict the listing to one model")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Maximum number of rows to display")
}
