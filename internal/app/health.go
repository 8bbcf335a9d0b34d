package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"price-insight/internal/analytics"
)

// Health prints the continuity report cards, worst first.
func (a *App) Health(ctx context.Context, opts HealthOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot score health")
	}
	if closeStore != nil {
		defer closeStore()
	}

	params := analytics.Params{
		Window: opts.window(a.Config.Analytics.WindowDays),
		Filter: analytics.SeriesFilter{
			PointIDs:     opts.PointIDs,
			RegionPrefix: opts.RegionPrefix,
			PointType:    analytics.ParsePointType(opts.PointType),
		},
		Thresholds: opts.thresholds(),
	}

	report, err := a.newAnalyzer(store).Report(ctx, params, opts.scope())
	if err != nil {
		return err
	}
	rows := report.Health
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Point\tName\tScore\tGrade\tCoverage%\tAnomaly%\tLate%\tMissing\tLatest")
	for _, row := range rows {
		latest := "-"
		if !row.LatestDate.IsZero() {
			latest = row.LatestDate.Format("2006-01-02")
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\t%.1f\t%.1f\t%.1f\t%d\t%s\n",
			row.PointID,
			sanitizeInline(row.PointName),
			row.Score,
			row.Grade,
			row.CoverageRate,
			row.AnomalyRate,
			row.LateRate,
			row.MissingDays,
			latest,
		)
	}
	writer.Flush()
	return nil
}
