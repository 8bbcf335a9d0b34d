package analytics

import (
	"reflect"
	"testing"
)

func seriesOf(id string, prices ...float64) Series {
	s := Series{PointID: id, PointName: id}
	for i, p := range prices {
		o := obs(id, i+1, p)
		s.Obs = append(s.Obs, o)
	}
	return s
}

func TestRankingMetricsScenario(t *testing.T) {
	// Series [{d1,100},{d2,110},{d3,90}] -> min=90 max=110 avg=100 vol=20%.
	w := Window{Start: day(1), End: day(3)}
	items := BuildRanking([]Series{seriesOf("p1", 100, 110, 90)}, w)
	it := items[0]

	if it.MinPrice != 90 || it.MaxPrice != 110 || !almostEqual(it.AvgPrice, 100) {
		t.Fatalf("min/max/avg wrong: %+v", it)
	}
	if !almostEqual(it.Volatility, 20) {
		t.Fatalf("volatility expected 20, got %v", it.Volatility)
	}
	if !almostEqual(it.PeriodChange, -10) || !almostEqual(it.PeriodChangePct, -10) {
		t.Fatalf("period change wrong: %+v", it)
	}
	if it.Samples != 3 || it.MissingDays != 0 {
		t.Fatalf("samples/missing wrong: %+v", it)
	}
}

func TestRankingIndexBaseHundred(t *testing.T) {
	w := Window{Start: day(1), End: day(2)}
	items := BuildRanking([]Series{seriesOf("p1", 50, 60)}, w)
	it := items[0]
	if !almostEqual(it.BasePrice, 50) {
		t.Fatalf("base price expected 50, got %v", it.BasePrice)
	}
	if !almostEqual(it.IndexPrice, 120) {
		t.Fatalf("index price expected 120, got %v", it.IndexPrice)
	}
	// A one-element window indexes the first observation at exactly 100.
	items = BuildRanking([]Series{seriesOf("p2", 50)}, Window{Start: day(1), End: day(1)})
	if !almostEqual(items[0].IndexPrice, 100) {
		t.Fatalf("first observation must index at 100, got %v", items[0].IndexPrice)
	}
}

func TestRankingVolatilityNonNegativeAndZeroWhenFlat(t *testing.T) {
	w := Window{Start: day(1), End: day(3)}
	items := BuildRanking([]Series{seriesOf("flat", 80, 80, 80)}, w)
	if items[0].Volatility != 0 {
		t.Fatalf("equal prices must yield volatility 0, got %v", items[0].Volatility)
	}
	items = BuildRanking([]Series{seriesOf("p", 80, 120, 100)}, w)
	if items[0].Volatility < 0 {
		t.Fatalf("volatility 不应为负: %v", items[0].Volatility)
	}
}

func TestRankingEmptySeriesDegradesToZero(t *testing.T) {
	w := Window{Start: day(1), End: day(10)}
	items := BuildRanking([]Series{{PointID: "p"}}, w)
	it := items[0]
	if it.Price != 0 || it.ChangePct != 0 || it.Volatility != 0 || it.IndexPrice != 0 {
		t.Fatalf("empty series must degrade to zero: %+v", it)
	}
	if it.IsAnomaly {
		t.Fatal("empty series must not be anomalous")
	}
	if it.BaselineDiff != nil {
		t.Fatal("empty series baseline diff must be null")
	}
	if it.MissingDays != 0 || it.Samples != 0 {
		t.Fatalf("empty series counters must be zero: %+v", it)
	}
}

func TestRankingZeroDenominators(t *testing.T) {
	w := Window{Start: day(1), End: day(2)}
	s := seriesOf("p1", 0, 0)
	s.Obs[1].DayChange = 5
	items := BuildRanking([]Series{s}, w)
	it := items[0]
	if it.ChangePct != 0 || it.PeriodChangePct != 0 || it.IndexPrice != 0 || it.IndexChange != 0 || it.Volatility != 0 {
		t.Fatalf("zero denominators must degrade to 0, not NaN: %+v", it)
	}
}

func TestSortRankingStableAndIdempotent(t *testing.T) {
	w := Window{Start: day(1), End: day(2)}
	series := []Series{
		seriesOf("a", 100, 110),
		seriesOf("b", 200, 220),
		seriesOf("c", 50, 40),
	}
	// a and b tie on period change pct (+10%), input order must survive.
	items := BuildRanking(series, w)
	SortRanking(items, SortByPeriodChangePct)

	first := make([]string, len(items))
	for i, it := range items {
		first[i] = it.ID
	}
	if !reflect.DeepEqual(first, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order: %v", first)
	}

	again := BuildRanking(series, w)
	SortRanking(again, SortByPeriodChangePct)
	second := make([]string, len(again))
	for i, it := range again {
		second[i] = it.ID
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ranking must be idempotent: %v vs %v", first, second)
	}
}

func TestGroupRankingBucketsByCountDescending(t *testing.T) {
	items := []RankingItem{
		{ID: "a", RegionCode: "37", RegionLabel: "山东"},
		{ID: "b", RegionCode: "11", RegionLabel: "北京"},
		{ID: "c", RegionCode: "37", RegionLabel: "山东"},
	}
	groups := GroupRanking(items, GroupByRegion)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Key != "37" || len(groups[0].Items) != 2 {
		t.Fatalf("largest bucket must lead: %+v", groups[0])
	}
	if groups[0].Items[0].ID != "a" || groups[0].Items[1].ID != "c" {
		t.Fatal("bucket must keep incoming item order")
	}
}

func TestParseSortMetricAndGroupMode(t *testing.T) {
	if _, err := ParseSortMetric("volatility"); err != nil {
		t.Fatalf("volatility should parse: %v", err)
	}
	if _, err := ParseSortMetric("bogus"); err == nil {
		t.Fatal("bogus metric 应返回错误")
	}
	if mode, err := ParseGroupMode(""); err != nil || mode != GroupAll {
		t.Fatalf("empty group mode should default to all: %v %v", mode, err)
	}
}
