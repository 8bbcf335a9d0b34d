package cli

import (
	"github.com/spf13/cobra"

	"price-insight/internal/app"
)

var (
	healthWindowDays   int
	healthEnd          string
	healthPoints       []string
	healthRegion       string
	healthPointType    string
	healthApprovedOnly bool
	healthLimit        int
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Score reporting continuity per collection point",
	RunE: func(cmd *cobra.Command, args []string) error {
		end, err := parseDayFlag(healthEnd)
		if err != nil {
			return err
		}

		opts := app.HealthOptions{
			AnalysisOptions: app.AnalysisOptions{
				WindowDays:   healthWindowDays,
				End:          end,
				PointIDs:     healthPoints,
				RegionPrefix: healthRegion,
				PointType:    healthPointType,
				ApprovedOnly: healthApprovedOnly,
			},
			Limit: healthLimit,
		}

		return getApp().Health(cmd.Context(), opts)
	},
}

func init() {
	healthCmd.Flags().IntVar(&healthWindowDays, "window", 0, "Window size in days (defaults to config)")
	healthCmd.Flags().StringVar(&healthEnd, "end", "", "Window end date (YYYY-MM-DD, defaults to today)")
	healthCmd.Flags().StringSliceVar(&healthPoints, "points", nil, "Restrict to the given point IDs")
	healthCmd.Flags().StringVar(&healthRegion, "region", "", "Restrict to region codes with this prefix")
	healthCmd.Flags().StringVar(&healthPointType, "type", "", "Restrict to a point type (port/enterprise)")
	healthCmd.Flags().BoolVar(&healthApprovedOnly, "approved-only", false, "Only include approved observations")
	healthCmd.Flags().IntVar(&healthLimit, "limit", 0, "Show only the N worst points (0 = all)")
}
