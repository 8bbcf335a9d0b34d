package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// HealthWeights combine coverage, anomaly, and lateness into the composite
// score. The weights must sum to 1; the shipped defaults are stable across
// releases so scores stay comparable over time.
type HealthWeights struct {
	Coverage float64
	Anomaly  float64
	Late     float64
}

// DefaultHealthWeights returns the fixed default weighting: coverage 0.5,
// anomaly 0.3, lateness 0.2.
func DefaultHealthWeights() HealthWeights {
	return HealthWeights{Coverage: 0.5, Anomaly: 0.3, Late: 0.2}
}

// Validate rejects weights that do not sum to 1.
func (w HealthWeights) Validate() error {
	if w.Coverage < 0 || w.Anomaly < 0 || w.Late < 0 {
		return fmt.Errorf("health weights cannot be negative")
	}
	if sum := w.Coverage + w.Anomaly + w.Late; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("health weights must sum to 1, got %v", sum)
	}
	return nil
}

// HealthRow is the continuity report card for one collection point.
type HealthRow struct {
	PointID      string
	PointName    string
	Score        int
	Grade        string
	CoverageRate float64
	AnomalyRate  float64
	LateRate     float64
	LatestDate   time.Time
	MissingDays  int
}

// ScoreHealth computes the continuity health of every series over the window
// and returns the rows sorted ascending by score, worst first, so top-risk
// views can take a prefix.
//
// Coverage is observed days over expected days, capped at 100%. The anomaly
// rate counts observed days whose value trips the anomaly disjunction against
// that day's cross-point mean. The late rate aggregates the upstream late
// classification.
func ScoreHealth(series []Series, w Window, th Thresholds, weights HealthWeights) []HealthRow {
	dayMeans := crossPointDayMeans(series)
	expected := w.Days()

	rows := make([]HealthRow, 0, len(series))
	for _, s := range series {
		rows = append(rows, scorePoint(s, expected, dayMeans, th, weights))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score < rows[j].Score
	})
	return rows
}

func scorePoint(s Series, expectedDays int, dayMeans map[time.Time]float64, th Thresholds, weights HealthWeights) HealthRow {
	row := HealthRow{PointID: s.PointID, PointName: s.PointName}

	observed := len(s.Obs)
	anomalous := 0
	late := 0
	for _, o := range s.Obs {
		if dayAnomalous(o, dayMeans[dayOf(o.Date)], th) {
			anomalous++
		}
		if o.Late {
			late++
		}
		if o.Date.After(row.LatestDate) {
			row.LatestDate = o.Date
		}
	}

	if expectedDays > 0 {
		row.CoverageRate = pct(float64(observed), float64(expectedDays))
		if row.CoverageRate > 100 {
			row.CoverageRate = 100
		}
		if missing := expectedDays - observed; missing > 0 {
			row.MissingDays = missing
		}
	}
	if observed > 0 {
		row.AnomalyRate = pct(float64(anomalous), float64(observed))
		row.LateRate = pct(float64(late), float64(observed))
	}

	raw := weights.Coverage*row.CoverageRate +
		weights.Anomaly*(100-row.AnomalyRate) +
		weights.Late*(100-row.LateRate)
	row.Score = clampScore(int(math.Round(raw)))
	row.Grade = GradeFor(row.Score)
	return row
}

// crossPointDayMeans averages prices per calendar day across all series, the
// peer reference for per-day anomaly checks.
func crossPointDayMeans(series []Series) map[time.Time]float64 {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, s := range series {
		for _, o := range s.Obs {
			day := dayOf(o.Date)
			sums[day] += o.Price
			counts[day]++
		}
	}
	out := make(map[time.Time]float64, len(sums))
	for day, sum := range sums {
		out[day] = sum / float64(counts[day])
	}
	return out
}

func dayAnomalous(o Observation, dayMean float64, th Thresholds) bool {
	if dayMean != 0 && pct(math.Abs(o.Price-dayMean), dayMean) >= th.DeviationPct {
		return true
	}
	return math.Abs(o.DayChange) >= th.ChangeAbs
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// GradeFor maps a score onto the letter ladder. The mapping is monotonic in
// the score.
func GradeFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	default:
		return "D"
	}
}
