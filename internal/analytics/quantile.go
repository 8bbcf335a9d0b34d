package analytics

import (
	"math"
	"sort"
)

// Quantile computes the q-quantile of an ascending-sorted slice by linear
// interpolation between closest ranks (NumPy's default): pos = (n−1)×q, the
// result interpolates between sorted[floor(pos)] and its successor. Empty
// input yields 0.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := float64(n-1) * q
	base := int(math.Floor(pos))
	rest := pos - float64(base)
	if base+1 < n {
		return sorted[base] + rest*(sorted[base+1]-sorted[base])
	}
	return sorted[base]
}

// DistributionItem carries the box-plot statistics for one point.
type DistributionItem struct {
	ID     string
	Name   string
	Min    float64
	Max    float64
	Q1     float64
	Median float64
	Q3     float64
	Avg    float64
}

// Distribution computes the box-plot statistics of a series. ok is false for
// an empty series, which is excluded from distribution rendering.
func Distribution(s Series) (DistributionItem, bool) {
	if s.Empty() {
		return DistributionItem{ID: s.PointID, Name: s.PointName}, false
	}
	prices := s.Prices()
	sort.Float64s(prices)
	return DistributionItem{
		ID:     s.PointID,
		Name:   s.PointName,
		Min:    prices[0],
		Max:    prices[len(prices)-1],
		Q1:     Quantile(prices, 0.25),
		Median: Quantile(prices, 0.5),
		Q3:     Quantile(prices, 0.75),
		Avg:    mean(prices),
	}, true
}

// Distributions maps Distribution over a series set, skipping empty series.
func Distributions(series []Series) []DistributionItem {
	out := make([]DistributionItem, 0, len(series))
	for _, s := range series {
		if item, ok := Distribution(s); ok {
			out = append(out, item)
		}
	}
	return out
}
