package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Params is the full parameter object for one analytics request. No ambient
// state exists inside the engine: everything the dashboards can tune travels
// here.
type Params struct {
	Window     Window
	Filter     SeriesFilter
	Metric     SortMetric
	Group      GroupMode
	Thresholds Thresholds
	Baseline   Baseline
	Weights    HealthWeights
	Region     RegionParams
}

// Validate rejects invalid parameter combinations before any computation.
func (p Params) Validate() error {
	if !p.Window.Valid() {
		return fmt.Errorf("invalid window: end %s before start %s",
			p.Window.End.Format("2006-01-02"), p.Window.Start.Format("2006-01-02"))
	}
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	return p.Weights.Validate()
}

// Report aggregates every derived shape for one request: plain serialisable
// data with no behaviour attached, consumable by any renderer.
type Report struct {
	ID          string
	GeneratedAt time.Time
	Params      Params

	MeanLatest   float64
	Items        []RankingItem
	Groups       []RankingGroup
	Distribution []DistributionItem
	Regions      []RegionSummary
	OverallAvg   float64
	Health       []HealthRow
}

// BuildReport runs the whole engine over one observation set: normalise,
// rank, flag anomalies, apply the baseline, and derive distribution, region,
// and health summaries. It is a pure function of (observations, params);
// repeated calls with the same inputs yield the same derived values.
func BuildReport(obs []Observation, p Params) (*Report, error) {
	if p.Metric == "" {
		p.Metric = SortByChangePct
	}
	if p.Group == "" {
		p.Group = GroupAll
	}
	if p.Thresholds == (Thresholds{}) {
		p.Thresholds = DefaultThresholds()
	}
	if p.Weights == (HealthWeights{}) {
		p.Weights = DefaultHealthWeights()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	series := BuildSeries(obs, p.Window, p.Filter)

	items := BuildRanking(series, p.Window)
	meanLatest := FlagAnomalies(items, p.Thresholds)
	p.Baseline = ApplyBaseline(items, p.Baseline)
	SortRanking(items, p.Metric)

	report := &Report{
		ID:           uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		Params:       p,
		MeanLatest:   meanLatest,
		Items:        items,
		Groups:       GroupRanking(items, p.Group),
		Distribution: Distributions(series),
		Health:       ScoreHealth(series, p.Window, p.Thresholds, p.Weights),
	}
	report.Regions, report.OverallAvg = SummarizeRegions(obs, p.Region)
	return report, nil
}
