package analytics

import (
	"fmt"
	"sort"
	"strings"
)

// SortMetric selects the ranking order.
type SortMetric string

const (
	SortByChangePct       SortMetric = "change_pct"
	SortByVolatility      SortMetric = "volatility"
	SortByPeriodChangePct SortMetric = "period_change_pct"
)

// ParseSortMetric validates a caller-supplied metric name.
func ParseSortMetric(s string) (SortMetric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "change_pct", "change":
		return SortByChangePct, nil
	case "volatility":
		return SortByVolatility, nil
	case "period_change_pct", "period":
		return SortByPeriodChangePct, nil
	default:
		return "", fmt.Errorf("unknown sort metric %q", s)
	}
}

// GroupMode partitions the ranked list.
type GroupMode string

const (
	GroupAll      GroupMode = "all"
	GroupByType   GroupMode = "by-type"
	GroupByRegion GroupMode = "by-region"
)

// ParseGroupMode validates a caller-supplied group mode.
func ParseGroupMode(s string) (GroupMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return GroupAll, nil
	case "by-type", "type":
		return GroupByType, nil
	case "by-region", "region":
		return GroupByRegion, nil
	default:
		return "", fmt.Errorf("unknown group mode %q", s)
	}
}

// RankingItem is the per-point derived row of the ranking dashboards. It is
// recomputed per request and never persisted.
type RankingItem struct {
	ID          string
	Name        string
	Type        PointType
	RegionCode  string
	RegionLabel string

	Price           float64
	Change          float64
	ChangePct       float64
	PeriodChange    float64
	PeriodChangePct float64
	Volatility      float64
	MinPrice        float64
	MaxPrice        float64
	AvgPrice        float64
	BasePrice       float64
	IndexPrice      float64
	IndexChange     float64

	Samples     int
	MissingDays int

	IsAnomaly       bool
	BaselineDiff    *float64
	BaselineDiffPct *float64
}

// BuildRanking derives one RankingItem per series. An empty series degrades
// to an all-zero row rather than an error. Items keep series order; sorting
// is a separate, stable step so re-runs are reproducible.
func BuildRanking(series []Series, w Window) []RankingItem {
	items := make([]RankingItem, 0, len(series))
	for _, s := range series {
		items = append(items, buildItem(s, w))
	}
	return items
}

func buildItem(s Series, w Window) RankingItem {
	item := RankingItem{
		ID:          s.PointID,
		Name:        s.PointName,
		Type:        s.PointType,
		RegionCode:  s.RegionCode,
		RegionLabel: s.RegionLabel,
	}
	if s.Empty() {
		return item
	}

	first := s.First()
	latest := s.Latest()
	prices := s.Prices()

	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}
	avg := mean(prices)

	item.Price = latest.Price
	item.Change = latest.DayChange
	item.ChangePct = pct(item.Change, latest.Price)
	item.PeriodChange = latest.Price - first.Price
	item.PeriodChangePct = pct(item.PeriodChange, first.Price)
	item.Volatility = pct(maxPrice-minPrice, avg)
	item.MinPrice = minPrice
	item.MaxPrice = maxPrice
	item.AvgPrice = avg
	item.BasePrice = first.Price
	item.IndexPrice = pct(item.Price, item.BasePrice)
	item.IndexChange = pct(item.Change, item.BasePrice)
	item.Samples = len(prices)

	missing := w.Days() - len(prices)
	if missing > 0 {
		item.MissingDays = missing
	}
	return item
}

// SortRanking orders items by the chosen metric, descending. The sort is
// stable: ties keep input order.
func SortRanking(items []RankingItem, metric SortMetric) {
	key := func(it RankingItem) float64 {
		switch metric {
		case SortByVolatility:
			return it.Volatility
		case SortByPeriodChangePct:
			return it.PeriodChangePct
		default:
			return it.ChangePct
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return key(items[i]) > key(items[j])
	})
}

// RankingGroup is one named bucket of the grouped ranking view.
type RankingGroup struct {
	Key   string
	Label string
	Items []RankingItem
}

// GroupRanking partitions an already-sorted ranking into buckets by the given
// mode. Each bucket keeps the incoming (sorted) item order; buckets are
// ordered by descending member count, stable on first appearance.
func GroupRanking(items []RankingItem, mode GroupMode) []RankingGroup {
	if mode == GroupAll {
		return []RankingGroup{{Key: "all", Label: "全部", Items: items}}
	}

	index := make(map[string]int)
	groups := make([]RankingGroup, 0)
	for _, it := range items {
		key, label := groupKey(it, mode)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, RankingGroup{Key: key, Label: label})
		}
		groups[i].Items = append(groups[i].Items, it)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Items) > len(groups[j].Items)
	})
	return groups
}

func groupKey(it RankingItem, mode GroupMode) (key, label string) {
	if mode == GroupByType {
		key = string(it.Type)
		if key == "" {
			key = "other"
		}
		return key, key
	}
	key = it.RegionCode
	label = it.RegionLabel
	if key == "" {
		key, label = "unknown", "未知区域"
	}
	return key, label
}
