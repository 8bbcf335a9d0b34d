package analytics

import (
	"fmt"
	"math"
	"strings"
)

// Thresholds tune the anomaly disjunction: a point is anomalous when its
// latest price deviates from the cross-point mean by at least DeviationPct
// percent, or its day change reaches ChangeAbs in absolute units. Either
// condition alone is sufficient.
type Thresholds struct {
	DeviationPct float64
	ChangeAbs    float64
}

// DefaultThresholds returns the dashboard defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{DeviationPct: 5, ChangeAbs: 20}
}

// MeanLatest is the arithmetic mean of latest prices across points that have
// data. Points with empty series contribute nothing.
func MeanLatest(items []RankingItem) float64 {
	sum, n := 0.0, 0
	for _, it := range items {
		if it.Samples == 0 {
			continue
		}
		sum += it.Price
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// FlagAnomalies sets IsAnomaly in place against the cross-point mean and
// returns that mean. Empty-series items are never flagged.
func FlagAnomalies(items []RankingItem, th Thresholds) float64 {
	meanLatest := MeanLatest(items)
	for i := range items {
		it := &items[i]
		if it.Samples == 0 {
			continue
		}
		if meanLatest != 0 && pct(math.Abs(it.Price-meanLatest), meanLatest) >= th.DeviationPct {
			it.IsAnomaly = true
			continue
		}
		if math.Abs(it.Change) >= th.ChangeAbs {
			it.IsAnomaly = true
		}
	}
	return meanLatest
}

// BaselineMode selects what deltas are computed against.
type BaselineMode string

const (
	BaselineNone   BaselineMode = "none"
	BaselineRegion BaselineMode = "region"
	BaselinePoint  BaselineMode = "point"
)

// Baseline is the caller-selected reference for delta columns.
type Baseline struct {
	Mode    BaselineMode
	PointID string
}

// ParseBaseline interprets the CLI/request spelling: "none", "region", or a
// point id.
func ParseBaseline(s string) Baseline {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return Baseline{Mode: BaselineNone}
	case "region":
		return Baseline{Mode: BaselineRegion}
	default:
		return Baseline{Mode: BaselinePoint, PointID: strings.TrimSpace(s)}
	}
}

// ApplyBaseline fills BaselineDiff/BaselineDiffPct in place and returns the
// baseline actually used. When the selected baseline is unavailable (the
// point left the selection, has no data, or the reference price is zero) the
// evaluator resets to none instead of failing, and the delta columns stay
// null.
func ApplyBaseline(items []RankingItem, b Baseline) Baseline {
	price, ok := baselinePrice(items, b)
	if !ok || price == 0 {
		for i := range items {
			items[i].BaselineDiff = nil
			items[i].BaselineDiffPct = nil
		}
		return Baseline{Mode: BaselineNone}
	}
	for i := range items {
		it := &items[i]
		if it.Samples == 0 {
			it.BaselineDiff = nil
			it.BaselineDiffPct = nil
			continue
		}
		diff := it.Price - price
		diffPct := pct(diff, price)
		it.BaselineDiff = &diff
		it.BaselineDiffPct = &diffPct
	}
	return b
}

func baselinePrice(items []RankingItem, b Baseline) (float64, bool) {
	switch b.Mode {
	case BaselineRegion:
		return MeanLatest(items), true
	case BaselinePoint:
		for _, it := range items {
			if it.ID == b.PointID && it.Samples > 0 {
				return it.Price, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// Validate rejects nonsensical thresholds before the engine runs.
func (t Thresholds) Validate() error {
	if t.DeviationPct < 0 {
		return fmt.Errorf("deviation threshold cannot be negative")
	}
	if t.ChangeAbs < 0 {
		return fmt.Errorf("change threshold cannot be negative")
	}
	return nil
}
