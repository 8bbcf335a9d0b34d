package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"price-insight/internal/analytics"
	"price-insight/internal/config"
	"price-insight/internal/storage"
)

// Analyzer is the façade between storage and the analytics engine: it loads
// an observation window, converts rows to engine form, and runs one report.
// The engine itself stays pure; every request passes the full parameter
// object through here.
type Analyzer struct {
	store    storage.ObservationStore
	defaults config.AnalyticsConfig
	logger   zerolog.Logger
}

// NewAnalyzer wires an observation store into the engine.
func NewAnalyzer(store storage.ObservationStore, defaults config.AnalyticsConfig, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		store:    store,
		defaults: defaults,
		logger:   logger.With().Str("component", "analyzer").Logger(),
	}
}

// Report loads the window named by params and runs the whole engine over it.
// The scope filter is passed to SQL untouched; the engine never interprets
// review or source spellings.
func (a *Analyzer) Report(ctx context.Context, params analytics.Params, scope storage.ObservationFilter) (*analytics.Report, error) {
	if !params.Window.Valid() {
		return nil, fmt.Errorf("invalid window: end before start")
	}
	if params.Thresholds == (analytics.Thresholds{}) {
		params.Thresholds = a.defaults.Thresholds()
	}
	if params.Weights == (analytics.HealthWeights{}) {
		params.Weights = a.defaults.Weights()
	}

	from, to := params.Window.Start, params.Window.End
	// The region panel may look further back than the ranking window.
	if params.Region.WindowDays > 0 {
		regionFrom := analytics.LastDays(params.Region.WindowDays*2, params.Window.End).Start
		if regionFrom.Before(from) {
			from = regionFrom
		}
	}

	records, err := a.store.ListObservationsBetween(ctx, from, to, scope)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}

	report, err := analytics.BuildReport(storage.ToObservations(records), params)
	if err != nil {
		return nil, err
	}

	a.logger.Debug().
		Str("report_id", report.ID).
		Int("observations", len(records)).
		Int("points", len(report.Items)).
		Msg("analytics report built")
	return report, nil
}
