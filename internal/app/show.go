package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
)

// Show prints recent error observations across models.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.Limit <= 0 {
		return errors.New("limit must be greater than zero")
	}

	tracker := a.newTracker()
	models, err := tracker.Models(ctx)
	if err != nil {
		return err
	}
	if opts.Model != "" {
		if !containsModel(models, opts.Model) {
			return fmt.Errorf("model %q not found in history", opts.Model)
		}
		models = []string{opts.Model}
	}

	rows := make([]exportRow, 0)
	for _, model := range models {
		entries, err := tracker.ModelHistory(ctx, model)
		if err != nil {
			return err
		}
		for dateKey, obs := range entries {
			rows = append(rows, exportRow{Model: model, Date: dateKey, Obs: obs})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return rows[i].Model < rows[j].Model
	})
	if len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	threshold := a.Config.Alerting.ThresholdPct

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tModel\tError%\tActual\tPredicted\tStatus")

	for _, row := range rows {
		mark := "✓"
		if row.Obs.Error > threshold {
			mark = "✗"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%.2f\t%s\t%s\t%s\n",
			row.Date,
			row.Model,
			row.Obs.Error,
			formatMetric(row.Obs.Extra, "actual"),
			formatMetric(row.Obs.Extra, "predicted"),
			mark,
		)
	}

	writer.Flush()
	return nil
}

func formatMetric(extra map[string]float64, key string) string {
	value, ok := extra[key]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", value)
}
