package analytics

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func obs(point string, d int, price float64) Observation {
	return Observation{
		PointID:   point,
		PointName: point,
		Date:      day(d),
		Price:     price,
	}
}

func TestWindowDays(t *testing.T) {
	w := Window{Start: day(1), End: day(10)}
	if got := w.Days(); got != 10 {
		t.Fatalf("expected 10 days, got %d", got)
	}
	if (Window{Start: day(5), End: day(5)}).Days() != 1 {
		t.Fatal("single-day window should count 1 day")
	}
	if (Window{Start: day(5), End: day(1)}).Valid() {
		t.Fatal("end before start 不应合法")
	}
}

func TestBuildSeriesSortsAndFilters(t *testing.T) {
	w := Window{Start: day(1), End: day(5)}
	in := []Observation{
		obs("p1", 3, 103),
		obs("p1", 1, 101),
		obs("p1", 9, 999), // outside window
		obs("p2", 2, 202),
	}

	series := BuildSeries(in, w, SeriesFilter{})
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].PointID != "p1" || series[1].PointID != "p2" {
		t.Fatalf("series should be ordered by point id: %v, %v", series[0].PointID, series[1].PointID)
	}
	p1 := series[0]
	if len(p1.Obs) != 2 {
		t.Fatalf("out-of-window observation must be dropped, got %d", len(p1.Obs))
	}
	if !p1.Obs[0].Date.Before(p1.Obs[1].Date) {
		t.Fatal("series must be ascending by date")
	}
}

func TestBuildSeriesLaterLoadWinsOnDuplicateDay(t *testing.T) {
	w := Window{Start: day(1), End: day(5)}
	in := []Observation{
		obs("p1", 2, 100),
		obs("p1", 2, 150),
	}
	series := BuildSeries(in, w, SeriesFilter{})
	if len(series) != 1 || len(series[0].Obs) != 1 {
		t.Fatalf("duplicate day must collapse to one observation: %+v", series)
	}
	if series[0].Obs[0].Price != 150 {
		t.Fatalf("later-loaded observation should win, got %v", series[0].Obs[0].Price)
	}
}

func TestBuildSeriesIncludesSelectedEmptyPoints(t *testing.T) {
	w := Window{Start: day(1), End: day(5)}
	in := []Observation{obs("p1", 2, 100)}

	series := BuildSeries(in, w, SeriesFilter{PointIDs: []string{"p2", "p1"}})
	if len(series) != 2 {
		t.Fatalf("explicitly selected points must appear, got %d", len(series))
	}
	if series[0].PointID != "p2" || !series[0].Empty() {
		t.Fatalf("selected point without data should yield an empty series: %+v", series[0])
	}
	if series[0].PointName != "p2" {
		t.Fatalf("empty series must stay identifiable by name: %+v", series[0])
	}
	if series[1].PointID != "p1" || series[1].Empty() {
		t.Fatalf("selection order must be kept: %+v", series[1])
	}
}

func TestBuildSeriesRegionAndTypeFilter(t *testing.T) {
	w := Window{Start: day(1), End: day(5)}
	a := obs("p1", 1, 10)
	a.RegionCode = "370100"
	a.PointType = PointTypePort
	b := obs("p2", 1, 20)
	b.RegionCode = "110100"
	b.PointType = PointTypeMarket

	series := BuildSeries([]Observation{a, b}, w, SeriesFilter{RegionPrefix: "37"})
	if len(series) != 1 || series[0].PointID != "p1" {
		t.Fatalf("region prefix filter failed: %+v", series)
	}

	series = BuildSeries([]Observation{a, b}, w, SeriesFilter{PointType: PointTypeMarket})
	if len(series) != 1 || series[0].PointID != "p2" {
		t.Fatalf("point type filter failed: %+v", series)
	}
}

func TestParseVariants(t *testing.T) {
	if ParseReviewStatus("APPROVED") != ReviewApproved {
		t.Fatal("APPROVED 应归一为 approved")
	}
	if ParseReviewStatus("通过") != ReviewApproved {
		t.Fatal("通过 应归一为 approved")
	}
	if ParseReviewStatus("whatever") != ReviewPending {
		t.Fatal("unknown review spellings default to pending")
	}
	if ParseSourceType("AI_extracted") != SourceAI {
		t.Fatal("ai spellings should normalise to ai")
	}
	if ParseSourceType("hand") != SourceManual {
		t.Fatal("unknown source spellings default to manual")
	}
	if ParsePointType("港口") != PointTypePort {
		t.Fatal("港口 应归一为 port")
	}
	if ParseQualityTag("异常") != QualitySuspect {
		t.Fatal("异常 应归一为 suspect")
	}
}
