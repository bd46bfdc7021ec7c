package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"load-forecast-alerts/internal/history"
)

type exportRow struct {
	Model string
	Date  string
	Obs   history.Observation
}

// Export writes historical errors as CSV or JSON and/or renders a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Output == "" && opts.PNGPath == "" {
		return errors.New("at least one of --output or --png must be provided")
	}

	format := strings.ToLower(opts.Format)
	if format != "csv" && format != "json" {
		return fmt.Errorf("unsupported export format %q (csv or json)", opts.Format)
	}

	tracker := a.newTracker()
	models, err := tracker.Models(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		a.Logger.Info().Msg("no error history found for export")
		return nil
	}
	if opts.Model != "" {
		if !containsModel(models, opts.Model) {
			return fmt.Errorf("model %q not found in history", opts.Model)
		}
		models = []string{opts.Model}
	}

	cutoffKey := time.Now().AddDate(0, 0, -opts.Days).Format(history.DateLayout)
	rows := make([]exportRow, 0)
	filtered := history.History{}
	for _, model := range models {
		entries, err := tracker.ModelHistory(ctx, model)
		if err != nil {
			return err
		}
		kept := history.ModelHistory{}
		for dateKey, obs := range entries {
			if dateKey < cutoffKey {
				continue
			}
			kept[dateKey] = obs
			rows = append(rows, exportRow{Model: model, Date: dateKey, Obs: obs})
		}
		if len(kept) > 0 {
			filtered[model] = kept
		}
	}
	if len(rows) == 0 {
		a.Logger.Info().Msg("no observations found in export window")
		return nil
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Model != rows[j].Model {
			return rows[i].Model < rows[j].Model
		}
		return rows[i].Date < rows[j].Date
	})
	a.Logger.Info().Int("rows", len(rows)).Int("models", len(models)).Msg("exporting error history")

	if opts.Output != "" {
		switch format {
		case "json":
			err = writeErrorsJSON(opts.Output, filtered)
		case "csv":
			err = writeErrorsCSV(opts.Output, rows)
		}
		if err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		maxPoints := a.Config.ResolveMaxPoints(opts.MaxPoints)
		if err := a.writeErrorsPNG(opts.PNGPath, models, rows, maxPoints); err != nil {
			return err
		}
	}

	return nil
}

func writeErrorsJSON(path string, filtered history.History) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func writeErrorsCSV(path string, rows []exportRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Column set is the union of extra metric keys across the export window.
	extraKeys := make(map[string]struct{})
	for _, row := range rows {
		for key := range row.Obs.Extra {
			extraKeys[key] = struct{}{}
		}
	}
	extras := make([]string, 0, len(extraKeys))
	for key := range extraKeys {
		extras = append(extras, key)
	}
	sort.Strings(extras)

	header := append([]string{"model", "date", "error"}, extras...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{row.Model, row.Date, formatFloat(row.Obs.Error)}
		for _, key := range extras {
			value, ok := row.Obs.Extra[key]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, formatFloat(value))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func (a *App) writeErrorsPNG(path string, models []string, rows []exportRow, maxPoints int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	byModel := make(map[string][]exportRow, len(models))
	for _, row := range rows {
		byModel[row.Model] = append(byModel[row.Model], row)
	}

	var minX, maxX time.Time
	series := make([]chart.Series, 0, len(models)+1)
	for _, model := range models {
		points := downsampleRows(byModel[model], maxPoints)
		if len(points) == 0 {
			continue
		}

		x := make([]time.Time, len(points))
		y := make([]float64, len(points))
		for i, row := range points {
			ts, err := time.Parse(history.DateLayout, row.Date)
			if err != nil {
				continue
			}
			x[i] = ts
			y[i] = row.Obs.Error
			if minX.IsZero() || ts.Before(minX) {
				minX = ts
			}
			if ts.After(maxX) {
				maxX = ts
			}
		}

		series = append(series, chart.TimeSeries{
			Name:    model,
			XValues: x,
			YValues: y,
		})
	}
	if len(series) == 0 {
		return errors.New("no plottable data in export window")
	}

	threshold := a.Config.Alerting.ThresholdPct
	series = append(series, chart.TimeSeries{
		Name:    fmt.Sprintf("%.0f%% Threshold", threshold),
		XValues: []time.Time{minX, maxX},
		YValues: []float64{threshold, threshold},
		Style: chart.Style{
			StrokeColor:     drawing.ColorRed,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	})

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Error (%)",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func downsampleRows(rows []exportRow, max int) []exportRow {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]exportRow, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
