package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"price-insight/internal/analytics"
	"price-insight/internal/storage"
)

// Export renders historical observation series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.AddDate(0, 0, -a.Config.Analytics.WindowDays)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListObservationsBetween(ctx, from, to, opts.scope())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no observations found for export window")
		return nil
	}

	filter := analytics.SeriesFilter{
		PointIDs:     opts.PointIDs,
		RegionPrefix: opts.RegionPrefix,
		PointType:    analytics.ParsePointType(opts.PointType),
	}
	series := analytics.BuildSeries(storage.ToObservations(records), analytics.Window{Start: from, End: to}, filter)

	a.Logger.Info().
		Int("observations", len(records)).
		Int("series", len(series)).
		Msg("exporting observation series")

	if opts.CSVPath != "" {
		if err := writeObservationsCSV(opts.CSVPath, records); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSeriesPNG(opts.PNGPath, series, opts.MaxPoints, opts.IndexMode); err != nil {
			return err
		}
	}

	return nil
}

func downsampleObservations(obs []analytics.Observation, max int) []analytics.Observation {
	if max <= 0 || len(obs) <= max {
		return obs
	}

	result := make([]analytics.Observation, 0, max)
	step := float64(len(obs)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(obs) {
			idx = len(obs) - 1
		}
		result = append(result, obs[idx])
	}
	return result
}

func writeObservationsCSV(path string, records []storage.ObservationRecord) error {
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

	header := []string{"point_id", "point_name", "point_type", "region", "region_name", "obs_date", "price", "day_change", "quality_tag", "review_status", "source_type", "reported_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		reported := ""
		if !r.ReportedAt.IsZero() {
			reported = r.ReportedAt.Format(time.RFC3339)
		}
		record := []string{
			r.PointID,
			r.PointName,
			r.PointType,
			r.RegionCode,
			r.RegionLabel,
			r.Date.Format("2006-01-02"),
			formatDecimal(r.Price, 2),
			formatDecimal(r.DayChange, 2),
			r.QualityTag,
			r.ReviewStatus,
			r.SourceType,
			reported,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path string, series []analytics.Series, maxPoints int, indexMode bool) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	yAxisName := "Price"
	if indexMode {
		yAxisName = "Index (first obs = 100)"
	}

	chartSeries := make([]chart.Series, 0, len(series))
	for _, s := range series {
		if s.Empty() {
			continue
		}
		obs := downsampleObservations(s.Obs, maxPoints)

		x := make([]time.Time, len(obs))
		y := make([]float64, len(obs))
		base := s.Obs[0].Price
		for i, o := range obs {
			x[i] = o.Date
			y[i] = o.Price
			if indexMode && base != 0 {
				y[i] = o.Price / base * 100
			}
		}
		chartSeries = append(chartSeries, chart.TimeSeries{
			Name:    s.PointName,
			XValues: x,
			YValues: y,
		})
	}
	if len(chartSeries) == 0 {
		return errors.New("no non-empty series to chart")
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           yAxisName,
			ValueFormatter: priceFormatter,
		},
		Series: chartSeries,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
