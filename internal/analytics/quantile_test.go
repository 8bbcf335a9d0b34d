package analytics

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuantileEndpoints(t *testing.T) {
	cases := [][]float64{
		{1},
		{1, 2},
		{3, 7, 9},
		{1, 2, 3, 4, 5, 6, 7},
	}
	for _, sorted := range cases {
		if got := Quantile(sorted, 0); !almostEqual(got, sorted[0]) {
			t.Fatalf("q=0 应返回首元素, got %v for %v", got, sorted)
		}
		if got := Quantile(sorted, 1); !almostEqual(got, sorted[len(sorted)-1]) {
			t.Fatalf("q=1 应返回末元素, got %v for %v", got, sorted)
		}
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	// pos = 3*0.5 = 1.5 -> 20 + 0.5*(30-20) = 25
	if got := Quantile(sorted, 0.5); !almostEqual(got, 25) {
		t.Fatalf("median expected 25, got %v", got)
	}
	// pos = 3*0.25 = 0.75 -> 10 + 0.75*10 = 17.5
	if got := Quantile(sorted, 0.25); !almostEqual(got, 17.5) {
		t.Fatalf("q1 expected 17.5, got %v", got)
	}
	// pos = 3*0.75 = 2.25 -> 30 + 0.25*10 = 32.5
	if got := Quantile(sorted, 0.75); !almostEqual(got, 32.5) {
		t.Fatalf("q3 expected 32.5, got %v", got)
	}
}

func TestQuantileEmpty(t *testing.T) {
	if got := Quantile(nil, 0.5); got != 0 {
		t.Fatalf("empty input should degrade to 0, got %v", got)
	}
}

func TestDistributionExcludesEmptySeries(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := []Series{
		{PointID: "p1", Obs: []Observation{
			{PointID: "p1", Date: day, Price: 100},
			{PointID: "p1", Date: day.AddDate(0, 0, 1), Price: 110},
			{PointID: "p1", Date: day.AddDate(0, 0, 2), Price: 90},
		}},
		{PointID: "p2"},
	}

	items := Distributions(series)
	if len(items) != 1 {
		t.Fatalf("empty series must not render, got %d items", len(items))
	}
	item := items[0]
	if item.Min != 90 || item.Max != 110 || !almostEqual(item.Avg, 100) {
		t.Fatalf("unexpected distribution: %+v", item)
	}
	if !almostEqual(item.Median, 100) {
		t.Fatalf("median expected 100, got %v", item.Median)
	}
}

func TestDistributionEmptySeriesAllZero(t *testing.T) {
	item, ok := Distribution(Series{PointID: "p"})
	if ok {
		t.Fatal("empty series should report ok=false")
	}
	if item.Min != 0 || item.Max != 0 || item.Q1 != 0 || item.Median != 0 || item.Q3 != 0 || item.Avg != 0 {
		t.Fatalf("empty series quantile fields must be 0: %+v", item)
	}
}
