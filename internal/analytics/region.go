package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RegionLevel is the administrative grouping granularity. Region codes are
// six-digit administrative codes: the first two digits identify the province,
// the first four the city, all six the district.
type RegionLevel string

const (
	LevelProvince RegionLevel = "province"
	LevelCity     RegionLevel = "city"
	LevelDistrict RegionLevel = "district"
)

// ParseRegionLevel validates a caller-supplied level.
func ParseRegionLevel(s string) (RegionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "province":
		return LevelProvince, nil
	case "city":
		return LevelCity, nil
	case "district":
		return LevelDistrict, nil
	default:
		return "", fmt.Errorf("unknown region level %q", s)
	}
}

func (l RegionLevel) truncate(code string) string {
	n := 6
	switch l {
	case LevelProvince:
		n = 2
	case LevelCity:
		n = 4
	}
	if len(code) < n {
		return code
	}
	return code[:n]
}

// RegionSort selects the summary ordering.
type RegionSort string

const (
	RegionSortAvg        RegionSort = "avg"
	RegionSortCount      RegionSort = "count"
	RegionSortDelta      RegionSort = "delta"
	RegionSortVolatility RegionSort = "volatility"
)

// ParseRegionSort validates a caller-supplied sort key.
func ParseRegionSort(s string) (RegionSort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "avg":
		return RegionSortAvg, nil
	case "count":
		return RegionSortCount, nil
	case "delta":
		return RegionSortDelta, nil
	case "volatility":
		return RegionSortVolatility, nil
	default:
		return "", fmt.Errorf("unknown region sort %q", s)
	}
}

// RegionView filters the sorted summaries.
type RegionView string

const (
	RegionViewAll    RegionView = "all"
	RegionViewTop    RegionView = "top"
	RegionViewBottom RegionView = "bottom"
)

// regionViewN is the prefix size of the top/bottom views.
const regionViewN = 8

// ParseRegionView validates a caller-supplied view filter.
func ParseRegionView(s string) (RegionView, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return RegionViewAll, nil
	case "top":
		return RegionViewTop, nil
	case "bottom":
		return RegionViewBottom, nil
	default:
		return "", fmt.Errorf("unknown region view %q", s)
	}
}

// CompareMode selects the delta baseline: the global average over the same
// window, or the group's own previous window when computable.
type CompareMode string

const (
	CompareGlobal   CompareMode = "global"
	ComparePrevious CompareMode = "previous"
)

// ParseCompareMode validates a caller-supplied compare mode.
func ParseCompareMode(s string) (CompareMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global":
		return CompareGlobal, nil
	case "previous", "prev":
		return ComparePrevious, nil
	default:
		return "", fmt.Errorf("unknown compare mode %q", s)
	}
}

// RegionParams tune one region aggregation request.
type RegionParams struct {
	Level RegionLevel
	// WindowDays is 7, 30, or 90; 0 means the full observation span.
	WindowDays int
	// End anchors the window; the zero value means "latest observation".
	End     time.Time
	Sort    RegionSort
	View    RegionView
	Keyword string
	Compare CompareMode
}

// RegionSummary is the derived card for one administrative region.
type RegionSummary struct {
	Region      string
	Label       string
	AvgPrice    float64
	Count       int
	Delta       float64
	DeltaPct    float64
	Volatility  float64
	Q1          float64
	Median      float64
	Q3          float64
	MinPrice    float64
	MaxPrice    float64
	MissingRate float64
	HasPrev     bool
	LatestTs    time.Time
}

// SummarizeRegions groups raw observations by administrative region and
// derives one summary per group, plus the global average over the same
// window. The keyword filters region labels by case-insensitive substring.
func SummarizeRegions(obs []Observation, p RegionParams) ([]RegionSummary, float64) {
	if p.Level == "" {
		p.Level = LevelProvince
	}

	window, expectedDays, ok := resolveRegionWindow(obs, p)
	if !ok {
		return nil, 0
	}

	var current, previous []Observation
	prevWindow := Window{}
	if p.WindowDays > 0 {
		prevWindow = Window{
			Start: dayOf(window.Start).AddDate(0, 0, -p.WindowDays),
			End:   dayOf(window.Start).AddDate(0, 0, -1),
		}
	}
	for _, o := range obs {
		if o.RegionCode == "" {
			continue
		}
		switch {
		case window.Contains(o.Date):
			current = append(current, o)
		case p.WindowDays > 0 && prevWindow.Contains(o.Date):
			previous = append(previous, o)
		}
	}
	if len(current) == 0 {
		return nil, 0
	}

	allPrices := make([]float64, len(current))
	for i, o := range current {
		allPrices[i] = o.Price
	}
	overallAvg := mean(allPrices)

	groups := groupByRegion(current, p.Level)
	prevAvg := regionAverages(previous, p.Level)

	keyword := strings.ToLower(strings.TrimSpace(p.Keyword))
	summaries := make([]RegionSummary, 0, len(groups))
	for _, g := range groups {
		if keyword != "" && !strings.Contains(strings.ToLower(g.label), keyword) {
			continue
		}
		summaries = append(summaries, summarizeGroup(g, expectedDays, overallAvg, prevAvg, p.Compare))
	}

	sortRegionSummaries(summaries, p.Sort)
	return applyRegionView(summaries, p.View), overallAvg
}

// resolveRegionWindow turns the named window into a concrete day range. For
// the full-span window the expected-day denominator is the span between the
// earliest and latest observation dates, inclusive.
func resolveRegionWindow(obs []Observation, p RegionParams) (Window, int, bool) {
	if len(obs) == 0 {
		return Window{}, 0, false
	}
	if p.WindowDays > 0 {
		end := p.End
		if end.IsZero() {
			end = latestDate(obs)
		}
		w := LastDays(p.WindowDays, end)
		return w, p.WindowDays, true
	}
	w := Window{Start: earliestDate(obs), End: latestDate(obs)}
	return w, w.Days(), true
}

type regionGroup struct {
	code  string
	label string
	obs   []Observation
}

func groupByRegion(obs []Observation, level RegionLevel) []regionGroup {
	index := make(map[string]int)
	groups := make([]regionGroup, 0)
	for _, o := range obs {
		code := level.truncate(o.RegionCode)
		i, ok := index[code]
		if !ok {
			i = len(groups)
			index[code] = i
			groups = append(groups, regionGroup{code: code, label: o.RegionLabel})
		}
		groups[i].obs = append(groups[i].obs, o)
	}
	return groups
}

func regionAverages(obs []Observation, level RegionLevel) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range obs {
		code := level.truncate(o.RegionCode)
		sums[code] += o.Price
		counts[code]++
	}
	out := make(map[string]float64, len(sums))
	for code, sum := range sums {
		out[code] = sum / float64(counts[code])
	}
	return out
}

func summarizeGroup(g regionGroup, expectedDays int, overallAvg float64, prevAvg map[string]float64, compare CompareMode) RegionSummary {
	prices := make([]float64, len(g.obs))
	days := make(map[time.Time]bool)
	latest := time.Time{}
	for i, o := range g.obs {
		prices[i] = o.Price
		days[dayOf(o.Date)] = true
		if o.Date.After(latest) {
			latest = o.Date
		}
	}
	sort.Float64s(prices)

	avg := mean(prices)
	minPrice := prices[0]
	maxPrice := prices[len(prices)-1]

	volatility := 0.0
	if avg != 0 {
		volatility = (maxPrice - minPrice) / avg
	}

	missing := expectedDays - len(days)
	if missing < 0 {
		missing = 0
	}
	missingRate := 0.0
	if expectedDays > 0 {
		missingRate = float64(missing) / float64(expectedDays)
	}

	prev, hasPrev := prevAvg[g.code]
	baseline := overallAvg
	if compare == ComparePrevious && hasPrev {
		baseline = prev
	}

	return RegionSummary{
		Region:      g.code,
		Label:       g.label,
		AvgPrice:    avg,
		Count:       len(g.obs),
		Delta:       avg - baseline,
		DeltaPct:    pct(avg-baseline, baseline),
		Volatility:  volatility,
		Q1:          Quantile(prices, 0.25),
		Median:      Quantile(prices, 0.5),
		Q3:          Quantile(prices, 0.75),
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		MissingRate: missingRate,
		HasPrev:     hasPrev,
		LatestTs:    latest,
	}
}

func sortRegionSummaries(summaries []RegionSummary, by RegionSort) {
	key := func(s RegionSummary) float64 {
		switch by {
		case RegionSortCount:
			return float64(s.Count)
		case RegionSortDelta:
			return s.Delta
		case RegionSortVolatility:
			return s.Volatility
		default:
			return s.AvgPrice
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return key(summaries[i]) > key(summaries[j])
	})
}

// applyRegionView keeps the N highest or lowest summaries of the sorted
// slice; the bottom view is re-ordered ascending so the worst region leads.
func applyRegionView(summaries []RegionSummary, view RegionView) []RegionSummary {
	switch view {
	case RegionViewTop:
		if len(summaries) > regionViewN {
			return summaries[:regionViewN]
		}
	case RegionViewBottom:
		n := regionViewN
		if len(summaries) < n {
			n = len(summaries)
		}
		out := make([]RegionSummary, 0, n)
		for i := len(summaries) - 1; i >= len(summaries)-n; i-- {
			out = append(out, summaries[i])
		}
		return out
	}
	return summaries
}

func earliestDate(obs []Observation) time.Time {
	t := obs[0].Date
	for _, o := range obs[1:] {
		if o.Date.Before(t) {
			t = o.Date
		}
	}
	return t
}

func latestDate(obs []Observation) time.Time {
	t := obs[0].Date
	for _, o := range obs[1:] {
		if o.Date.After(t) {
			t = o.Date
		}
	}
	return t
}
