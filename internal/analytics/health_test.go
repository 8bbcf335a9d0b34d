package analytics

import (
	"testing"
)

func TestScoreHealthCoverageScenario(t *testing.T) {
	// Window 2024-01-01..2024-01-10 (10 expected days), 7 observed days.
	w := Window{Start: day(1), End: day(10)}
	s := Series{PointID: "p1", PointName: "p1"}
	for d := 1; d <= 7; d++ {
		s.Obs = append(s.Obs, obs("p1", d, 100))
	}

	rows := ScoreHealth([]Series{s}, w, DefaultThresholds(), DefaultHealthWeights())
	row := rows[0]
	if row.MissingDays != 3 {
		t.Fatalf("missing days expected 3, got %d", row.MissingDays)
	}
	if !almostEqual(row.CoverageRate, 70) {
		t.Fatalf("coverage expected 70, got %v", row.CoverageRate)
	}
	// 0.5*70 + 0.3*100 + 0.2*100 = 85 -> B.
	if row.Score != 85 || row.Grade != "B" {
		t.Fatalf("score/grade expected 85/B, got %d/%s", row.Score, row.Grade)
	}
}

func TestScoreHealthBounded(t *testing.T) {
	w := Window{Start: day(1), End: day(5)}
	cases := []Series{
		{PointID: "empty"},
		seriesOf("full", 100, 100, 100, 100, 100),
	}
	// A point with wild day changes on every observation.
	wild := seriesOf("wild", 100, 100, 100, 100, 100)
	for i := range wild.Obs {
		wild.Obs[i].DayChange = 999
		wild.Obs[i].Late = true
	}
	cases = append(cases, wild)

	rows := ScoreHealth(cases, w, DefaultThresholds(), DefaultHealthWeights())
	for _, row := range rows {
		if row.Score < 0 || row.Score > 100 {
			t.Fatalf("score out of bounds: %+v", row)
		}
	}
}

func TestScoreHealthLateRate(t *testing.T) {
	w := Window{Start: day(1), End: day(4)}
	s := seriesOf("p", 100, 100, 100, 100)
	s.Obs[0].Late = true
	s.Obs[1].Late = true

	rows := ScoreHealth([]Series{s}, w, DefaultThresholds(), DefaultHealthWeights())
	if !almostEqual(rows[0].LateRate, 50) {
		t.Fatalf("late rate expected 50, got %v", rows[0].LateRate)
	}
}

func TestScoreHealthAnomalyRatePerDay(t *testing.T) {
	w := Window{Start: day(1), End: day(2)}
	outlier := seriesOf("outlier", 100, 200)
	quiet1 := seriesOf("q1", 100, 100)
	quiet2 := seriesOf("q2", 100, 100)

	// Day 2 mean = (200+100+100)/3 = 133.3; outlier deviates 50% -> one of
	// its two observed days is anomalous.
	rows := ScoreHealth([]Series{outlier, quiet1, quiet2}, w, Thresholds{DeviationPct: 30, ChangeAbs: 1e9}, DefaultHealthWeights())
	var got HealthRow
	for _, r := range rows {
		if r.PointID == "outlier" {
			got = r
		}
	}
	if !almostEqual(got.AnomalyRate, 50) {
		t.Fatalf("anomaly rate expected 50, got %v", got.AnomalyRate)
	}
}

func TestScoreHealthWorstFirst(t *testing.T) {
	w := Window{Start: day(1), End: day(10)}
	good := seriesOf("good", 100, 100, 100, 100, 100, 100, 100, 100, 100, 100)
	sparse := seriesOf("sparse", 100)

	rows := ScoreHealth([]Series{good, sparse}, w, DefaultThresholds(), DefaultHealthWeights())
	if rows[0].PointID != "sparse" {
		t.Fatalf("worst point must come first: %+v", rows)
	}
	if rows[0].Score > rows[1].Score {
		t.Fatal("rows must be ascending by score")
	}
}

func TestGradeLadder(t *testing.T) {
	cases := map[int]string{100: "A", 90: "A", 89: "B", 75: "B", 74: "C", 60: "C", 59: "D", 0: "D"}
	for score, want := range cases {
		if got := GradeFor(score); got != want {
			t.Fatalf("grade(%d) expected %s, got %s", score, want, got)
		}
	}
}

func TestHealthWeightsValidate(t *testing.T) {
	if err := DefaultHealthWeights().Validate(); err != nil {
		t.Fatalf("default weights 必须合法: %v", err)
	}
	if err := (HealthWeights{Coverage: 0.5, Anomaly: 0.5, Late: 0.5}).Validate(); err == nil {
		t.Fatal("weights not summing to 1 must be rejected")
	}
	if err := (HealthWeights{Coverage: 1.5, Anomaly: -0.3, Late: -0.2}).Validate(); err == nil {
		t.Fatal("negative weights must be rejected")
	}
}
