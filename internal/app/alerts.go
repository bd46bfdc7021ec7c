package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"load-forecast-alerts/internal/history"
)

// Alerts lists recently dispatched alerts from the audit trail.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	audit, closeAudit, err := a.openAudit(ctx)
	if err != nil {
		return err
	}
	if audit == nil {
		return errors.New("database not configured; cannot list alerts")
	}
	defer closeAudit()

	records, err := audit.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts recorded")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Dispatched (UTC)\tModel\tDate\tError%\tThreshold%\tSeverity")

	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.Model,
			rec.ForecastDate.Format(history.DateLayout),
			rec.ErrorPct.StringFixed(2),
			rec.ThresholdPct.StringFixed(2),
			rec.Severity,
		)
	}

	writer.Flush()
	return nil
}
