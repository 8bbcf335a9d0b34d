package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Alerts prints recently emitted anomaly alerts.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tPoint\tName\tPrice\tDeviation%\tThreshold%\tChannels")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.Bucket.UTC().Format(time.RFC3339),
			alert.PointID,
			sanitizeInline(alert.PointName),
			formatDecimal(alert.Price, 2),
			formatDecimal(alert.DeviationPct, 1),
			formatDecimal(alert.ThresholdPct, 1),
			strings.Join(alert.Channels, ","),
		)
	}

	writer.Flush()
	return nil
}
