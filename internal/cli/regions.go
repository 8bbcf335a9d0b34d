package cli

import (
	"github.com/spf13/cobra"

	"price-insight/internal/app"
)

var (
	regionsWindowDays   int
	regionsEnd          string
	regionsPointType    string
	regionsApprovedOnly bool
	regionsSource       string
	regionsLevel        string
	regionsSort         string
	regionsView         string
	regionsKeyword      string
	regionsCompare      string
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Compare administrative regions over a window",
	RunE: func(cmd *cobra.Command, args []string) error {
		end, err := parseDayFlag(regionsEnd)
		if err != nil {
			return err
		}

		opts := app.RegionsOptions{
			AnalysisOptions: app.AnalysisOptions{
				WindowDays:   regionsWindowDays,
				End:          end,
				PointType:    regionsPointType,
				ApprovedOnly: regionsApprovedOnly,
				SourceType:   regionsSource,
			},
			Level:   regionsLevel,
			Sort:    regionsSort,
			View:    regionsView,
			Keyword: regionsKeyword,
			Compare: regionsCompare,
		}

		return getApp().Regions(cmd.Context(), opts)
	},
}

func init() {
	regionsCmd.Flags().IntVar(&regionsWindowDays, "window", 30, "Window size in days: 7, 30, 90, or 0 for the full span")
	regionsCmd.Flags().StringVar(&regionsEnd, "end", "", "Window end date (YYYY-MM-DD, defaults to latest observation)")
	regionsCmd.Flags().StringVar(&regionsPointType, "type", "", "Restrict to a point type (port/enterprise)")
	regionsCmd.Flags().BoolVar(&regionsApprovedOnly, "approved-only", false, "Only include approved observations")
	regionsCmd.Flags().StringVar(&regionsSource, "source", "", "Restrict to a source type")
	regionsCmd.Flags().StringVar(&regionsLevel, "level", "province", "Grouping level: province, city, district")
	regionsCmd.Flags().StringVar(&regionsSort, "sort", "avg", "Sort key: avg, count, delta, volatility")
	regionsCmd.Flags().StringVar(&regionsView, "view", "all", "View: all, top, bottom")
	regionsCmd.Flags().StringVar(&regionsKeyword, "keyword", "", "Filter region labels by substring")
	regionsCmd.Flags().StringVar(&regionsCompare, "compare", "global", "Delta baseline: global or previous")
}
