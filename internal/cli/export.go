package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"price-insight/internal/app"
)

var (
	exportFrom      string
	exportTo        string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
	exportPoints    []string
	exportRegion    string
	exportPointType string
	exportApproved  bool
	exportIndex     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export observation series as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			AnalysisOptions: app.AnalysisOptions{
				PointIDs:     exportPoints,
				RegionPrefix: exportRegion,
				PointType:    exportPointType,
				ApprovedOnly: exportApproved,
			},
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
			IndexMode: exportIndex,
		}

		if exportFrom != "" {
			from, err := time.Parse(time.RFC3339, exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if exportTo != "" {
			to, err := time.Parse(time.RFC3339, exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End timestamp (RFC3339, exclusive)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points per series (defaults to config)")
	exportCmd.Flags().StringSliceVar(&exportPoints, "points", nil, "Restrict to the given point IDs")
	exportCmd.Flags().StringVar(&exportRegion, "region", "", "Restrict to region codes with this prefix")
	exportCmd.Flags().StringVar(&exportPointType, "type", "", "Restrict to a point type (port/enterprise)")
	exportCmd.Flags().BoolVar(&exportApproved, "approved-only", false, "Only include approved observations")
	exportCmd.Flags().BoolVar(&exportIndex, "index", false, "Chart indexed values (first observation = 100)")
}
