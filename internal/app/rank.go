package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"price-insight/internal/analytics"
	"price-insight/internal/storage"
)

func (o AnalysisOptions) window(defaultDays int) analytics.Window {
	end := o.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	days := o.WindowDays
	if days <= 0 {
		days = defaultDays
	}
	return analytics.LastDays(days, end)
}

// scope builds the SQL filter. Storage holds canonical spellings, so
// user-supplied flags are normalised through the same parsers before they
// become predicates.
func (o AnalysisOptions) scope() storage.ObservationFilter {
	pointType := o.PointType
	if pointType != "" {
		pointType = string(analytics.ParsePointType(pointType))
	}
	sourceType := o.SourceType
	if sourceType != "" {
		sourceType = string(analytics.ParseSourceType(sourceType))
	}
	return storage.ObservationFilter{
		PointIDs:     o.PointIDs,
		RegionPrefix: o.RegionPrefix,
		PointType:    pointType,
		ApprovedOnly: o.ApprovedOnly,
		SourceType:   sourceType,
	}
}

func (o AnalysisOptions) thresholds() analytics.Thresholds {
	return analytics.Thresholds{DeviationPct: o.DeviationPct, ChangeAbs: o.ChangeAbs}
}

// Rank prints the ranked comparison of the selected collection points.
func (a *App) Rank(ctx context.Context, opts RankOptions) error {
	metric, err := analytics.ParseSortMetric(opts.Metric)
	if err != nil {
		return err
	}
	group, err := analytics.ParseGroupMode(opts.Group)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot rank")
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
		Metric:     metric,
		Group:      group,
		Thresholds: opts.thresholds(),
		Baseline:   analytics.ParseBaseline(opts.Baseline),
	}

	report, err := a.newAnalyzer(store).Report(ctx, params, opts.scope())
	if err != nil {
		return err
	}
	if len(report.Items) == 0 {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, g := range report.Groups {
		if len(report.Groups) > 1 || g.Key != "all" {
			fmt.Fprintf(writer, "== %s (%d)\n", g.Label, len(g.Items))
		}
		printRankingHeader(writer, opts.IndexMode)
		for i, item := range g.Items {
			printRankingItem(writer, i+1, item, opts.IndexMode)
		}
	}
	writer.Flush()

	if opts.ShowDistribution {
		printDistribution(report.Distribution)
	}
	return nil
}

func printRankingHeader(writer *tabwriter.Writer, indexMode bool) {
	if indexMode {
		fmt.Fprintln(writer, "#\tName\tIndex\tIdxChg\tChange%\tPeriod%\tVol%\tSamples\tMissing\tAnomaly\tBaseline")
		return
	}
	fmt.Fprintln(writer, "#\tName\tPrice\tChange\tChange%\tPeriod%\tVol%\tSamples\tMissing\tAnomaly\tBaseline")
}

func printRankingItem(writer *tabwriter.Writer, rank int, item analytics.RankingItem, indexMode bool) {
	price, change := item.Price, item.Change
	if indexMode {
		price, change = item.IndexPrice, item.IndexChange
	}
	anomaly := ""
	if item.IsAnomaly {
		anomaly = "!"
	}
	baseline := "-"
	if item.BaselineDiff != nil && item.BaselineDiffPct != nil {
		baseline = fmt.Sprintf("%+.2f (%+.1f%%)", *item.BaselineDiff, *item.BaselineDiffPct)
	}
	fmt.Fprintf(writer, "%d\t%s\t%.2f\t%+.2f\t%+.2f\t%+.2f\t%.2f\t%d\t%d\t%s\t%s\n",
		rank,
		sanitizeInline(item.Name),
		price,
		change,
		item.ChangePct,
		item.PeriodChangePct,
		item.Volatility,
		item.Samples,
		item.MissingDays,
		anomaly,
		baseline,
	)
}

func printDistribution(items []analytics.DistributionItem) {
	if len(items) == 0 {
		return
	}
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "\nName\tMin\tQ1\tMedian\tQ3\tMax\tAvg")
	for _, item := range items {
		fmt.Fprintf(writer, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			sanitizeInline(item.Name), item.Min, item.Q1, item.Median, item.Q3, item.Max, item.Avg)
	}
	writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
