package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"load-forecast-alerts/internal/app"
)

var (
	exportModel     string
	exportDays      int
	exportFormat    string
	exportOutput    string
	exportPNG       string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export historical forecast errors to CSV/JSON, optionally with a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportDays <= 0 {
			return fmt.Errorf("--days must be greater than zero")
		}
		if exportOutput == "" && exportPNG == "" {
			return fmt.Errorf("at least one of --output or --png is required")
		}

		opts := app.ExportOptions{
			Model:     exportModel,
			Days:      exportDays,
			Format:    exportFormat,
			Output:    exportOutput,
			PNGPath:   exportPNG,
			MaxPoints: exportMaxPoints,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportModel, "model", "", "Restrict the export to one model")
	exportCmd.Flags().IntVar(&exportDays, "days", 30, "Number of days to export")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv or json")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Path of the data file to write")
	exportCmd.Flags().StringVar(&exportPNG, "png", "", "Optional path of a PNG error chart")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Downsample the chart to at most this many points (0 = config default)")
}
