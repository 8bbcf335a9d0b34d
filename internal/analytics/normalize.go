package analytics

import (
	"sort"
)

// SeriesFilter narrows the observation set before series are built.
type SeriesFilter struct {
	// PointIDs is the explicit selection. When non-empty, only these points
	// survive, in this order, and each appears in the result even with zero
	// observations in the window.
	PointIDs []string
	// RegionPrefix keeps points whose region code starts with the prefix.
	RegionPrefix string
	// PointType keeps a single point type when set.
	PointType PointType
}

func (f SeriesFilter) matches(o Observation) bool {
	if f.RegionPrefix != "" && !hasPrefix(o.RegionCode, f.RegionPrefix) {
		return false
	}
	if f.PointType != PointTypeUnknown && o.PointType != f.PointType {
		return false
	}
	return true
}

// BuildSeries groups observations per point, drops everything outside the
// window or filter, deduplicates per calendar day (the later-loaded
// observation wins), and sorts ascending by date. With an explicit selection
// the result follows selection order and includes empty series for selected
// points that yielded nothing; otherwise points are ordered by id.
func BuildSeries(obs []Observation, w Window, f SeriesFilter) []Series {
	selected := make(map[string]bool, len(f.PointIDs))
	for _, id := range f.PointIDs {
		selected[id] = true
	}

	byPoint := make(map[string]*Series)
	for _, o := range obs {
		if !w.Contains(o.Date) || !f.matches(o) {
			continue
		}
		if len(f.PointIDs) > 0 && !selected[o.PointID] {
			continue
		}
		s, ok := byPoint[o.PointID]
		if !ok {
			s = &Series{
				PointID:     o.PointID,
				PointName:   o.PointName,
				PointType:   o.PointType,
				RegionCode:  o.RegionCode,
				RegionLabel: o.RegionLabel,
			}
			byPoint[o.PointID] = s
		}
		appendObservation(s, o)
	}

	for _, s := range byPoint {
		sort.SliceStable(s.Obs, func(i, j int) bool {
			return s.Obs[i].Date.Before(s.Obs[j].Date)
		})
	}

	if len(f.PointIDs) > 0 {
		out := make([]Series, 0, len(f.PointIDs))
		seen := make(map[string]bool, len(f.PointIDs))
		for _, id := range f.PointIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if s, ok := byPoint[id]; ok {
				out = append(out, *s)
			} else {
				// No data in the window; the id doubles as the display name
				// so the degraded row stays identifiable.
				out = append(out, Series{PointID: id, PointName: id})
			}
		}
		return out
	}

	ids := make([]string, 0, len(byPoint))
	for id := range byPoint {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Series, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byPoint[id])
	}
	return out
}

// appendObservation inserts o keeping at most one observation per day; a
// repeated day replaces the earlier load.
func appendObservation(s *Series, o Observation) {
	day := dayOf(o.Date)
	for i := range s.Obs {
		if dayOf(s.Obs[i].Date).Equal(day) {
			s.Obs[i] = o
			return
		}
	}
	s.Obs = append(s.Obs, o)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
