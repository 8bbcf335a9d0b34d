package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"price-insight/internal/app"
)

var (
	rankWindowDays   int
	rankEnd          string
	rankPoints       []string
	rankRegion       string
	rankPointType    string
	rankApprovedOnly bool
	rankSource       string
	rankDeviation    float64
	rankChangeAbs    float64
	rankMetric       string
	rankGroup        string
	rankBaseline     string
	rankIndex        bool
	rankDistribution bool
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank collection points by a comparison metric",
	RunE: func(cmd *cobra.Command, args []string) error {
		end, err := parseDayFlag(rankEnd)
		if err != nil {
			return err
		}

		opts := app.RankOptions{
			AnalysisOptions: app.AnalysisOptions{
				WindowDays:   rankWindowDays,
				End:          end,
				PointIDs:     rankPoints,
				RegionPrefix: rankRegion,
				PointType:    rankPointType,
				ApprovedOnly: rankApprovedOnly,
				SourceType:   rankSource,
				DeviationPct: rankDeviation,
				ChangeAbs:    rankChangeAbs,
			},
			Metric:           rankMetric,
			Group:            rankGroup,
			Baseline:         rankBaseline,
			IndexMode:        rankIndex,
			ShowDistribution: rankDistribution,
		}

		return getApp().Rank(cmd.Context(), opts)
	},
}

func init() {
	rankCmd.Flags().IntVar(&rankWindowDays, "window", 0, "Window size in days (defaults to config)")
	rankCmd.Flags().StringVar(&rankEnd, "end", "", "Window end date (YYYY-MM-DD, defaults to today)")
	rankCmd.Flags().StringSliceVar(&rankPoints, "points", nil, "Restrict to the given point IDs")
	rankCmd.Flags().StringVar(&rankRegion, "region", "", "Restrict to region codes with this prefix")
	rankCmd.Flags().StringVar(&rankPointType, "type", "", "Restrict to a point type (port/enterprise)")
	rankCmd.Flags().BoolVar(&rankApprovedOnly, "approved-only", false, "Only include approved observations")
	rankCmd.Flags().StringVar(&rankSource, "source", "", "Restrict to a source type")
	rankCmd.Flags().Float64Var(&rankDeviation, "deviation", 0, "Anomaly deviation threshold percent (defaults to config)")
	rankCmd.Flags().Float64Var(&rankChangeAbs, "change-abs", 0, "Anomaly absolute day-change threshold (defaults to config)")
	rankCmd.Flags().StringVar(&rankMetric, "metric", "change_pct", "Sort metric: change_pct, volatility, period_change_pct")
	rankCmd.Flags().StringVar(&rankGroup, "group", "all", "Grouping: all, by-type, by-region")
	rankCmd.Flags().StringVar(&rankBaseline, "baseline", "none", "Baseline comparison: none, region, or a point ID")
	rankCmd.Flags().BoolVar(&rankIndex, "index", false, "Show indexed values (first observation = 100)")
	rankCmd.Flags().BoolVar(&rankDistribution, "distribution", false, "Also print per-point quantile distributions")
}

func parseDayFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t.UTC(), nil
}
