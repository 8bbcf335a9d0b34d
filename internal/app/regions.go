package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"price-insight/internal/analytics"
)

// Regions prints the administrative-region comparison cards.
func (a *App) Regions(ctx context.Context, opts RegionsOptions) error {
	level, err := analytics.ParseRegionLevel(opts.Level)
	if err != nil {
		return err
	}
	sortKey, err := analytics.ParseRegionSort(opts.Sort)
	if err != nil {
		return err
	}
	view, err := analytics.ParseRegionView(opts.View)
	if err != nil {
		return err
	}
	compare, err := analytics.ParseCompareMode(opts.Compare)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot compare regions")
	}
	if closeStore != nil {
		defer closeStore()
	}

	windowDays := opts.WindowDays
	if windowDays < 0 {
		windowDays = 0
	}
	window := opts.window(a.Config.Analytics.WindowDays)
	if windowDays == 0 {
		// The full-span view needs the whole history loaded.
		window.Start = window.End.AddDate(-10, 0, 0)
	}
	params := analytics.Params{
		Window: window,
		Filter: analytics.SeriesFilter{
			PointIDs:     opts.PointIDs,
			RegionPrefix: opts.RegionPrefix,
			PointType:    analytics.ParsePointType(opts.PointType),
		},
		Thresholds: opts.thresholds(),
		Region: analytics.RegionParams{
			Level:      level,
			WindowDays: windowDays,
			End:        opts.End,
			Sort:       sortKey,
			View:       view,
			Keyword:    opts.Keyword,
			Compare:    compare,
		},
	}

	report, err := a.newAnalyzer(store).Report(ctx, params, opts.scope())
	if err != nil {
		return err
	}
	if len(report.Regions) == 0 {
		fmt.Fprintln(os.Stdout, "no regions matched")
		return nil
	}

	fmt.Fprintf(os.Stdout, "overall average: %.2f\n", report.OverallAvg)
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Region\tLabel\tAvg\tDelta\tDelta%\tVol\tQ1\tMedian\tQ3\tCount\tMissing%\tPrev")
	for _, s := range report.Regions {
		prev := "-"
		if s.HasPrev {
			prev = "yes"
		}
		fmt.Fprintf(writer, "%s\t%s\t%.2f\t%+.2f\t%+.2f\t%.4f\t%.2f\t%.2f\t%.2f\t%d\t%.1f\t%s\n",
			s.Region,
			sanitizeInline(s.Label),
			s.AvgPrice,
			s.Delta,
			s.DeltaPct,
			s.Volatility,
			s.Q1,
			s.Median,
			s.Q3,
			s.Count,
			s.MissingRate*100,
			prev,
		)
	}
	writer.Flush()
	return nil
}
