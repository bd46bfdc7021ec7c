package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"load-forecast-alerts/internal/history"
)

// Report prints the forecast error summary report for one or all models.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	tracker := a.newTracker()

	models, err := tracker.Models(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(os.Stdout, "No error history found.")
		return nil
	}

	if opts.Model != "" {
		if !containsModel(models, opts.Model) {
			return fmt.Errorf("model %q not found in history; available models: %s", opts.Model, strings.Join(models, ", "))
		}
		models = []string{opts.Model}
	}

	threshold := a.Config.Alerting.ThresholdPct
	divider := strings.Repeat("=", 60)

	out := os.Stdout
	fmt.Fprintf(out, "\n%s\n", divider)
	fmt.Fprintf(out, "FORECAST ERROR SUMMARY REPORT (%d days)\n", opts.Days)
	fmt.Fprintf(out, "Generated at: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "%s\n", divider)

	for _, model := range models {
		stats, err := tracker.Statistics(ctx, model, opts.Days)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\nMODEL: %s\n", model)
		fmt.Fprintf(out, "  - Forecasts analyzed: %d\n", stats.Count)

		if !stats.HasData() {
			fmt.Fprintln(out, "  - No error data available")
			continue
		}

		fmt.Fprintf(out, "  - Average error: %.2f%%\n", stats.Avg)
		fmt.Fprintf(out, "  - Min error: %.2f%%\n", stats.Min)
		fmt.Fprintf(out, "  - Max error: %.2f%%\n", stats.Max)
		fmt.Fprintf(out, "  - Forecasts exceeding %.1f%% threshold: %d (%.1f%%)\n",
			threshold, stats.AboveThreshold, float64(stats.AboveThreshold)/float64(stats.Count)*100)
		fmt.Fprintf(out, "  - Trend: %s\n", stats.Trend)

		recent, err := tracker.RecentErrors(ctx, model, 5)
		if err != nil {
			return err
		}
		if len(recent) > 0 {
			fmt.Fprintln(out, "\n  RECENT ERRORS (last 5 days):")
			sort.Slice(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date) })
			for _, point := range recent {
				mark := "✓"
				if point.Error > threshold {
					mark = "✗"
				}
				fmt.Fprintf(out, "    %s: %.2f%% %s\n", point.Date.Format(history.DateLayout), point.Error, mark)
			}
		}
	}

	fmt.Fprintf(out, "\n%s\n", divider)
	return nil
}

func containsModel(models []string, model string) bool {
	for _, m := range models {
		if m == model {
			return true
		}
	}
	return false
}
