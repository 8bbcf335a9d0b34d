// Package analytics implements the price comparison and data-quality engine:
// pure, synchronous transformations from raw price observations to the derived
// ranking, distribution, region, and health shapes consumed by the dashboards.
// The package holds no state and performs no I/O; callers fetch observations
// and re-invoke on every parameter change.
package analytics

import (
	"strings"
	"time"
)

// PointType classifies a collection point.
type PointType string

const (
	PointTypeUnknown    PointType = ""
	PointTypePort       PointType = "port"
	PointTypeEnterprise PointType = "enterprise"
	PointTypeMarket     PointType = "market"
	PointTypeRegion     PointType = "region"
	PointTypeStation    PointType = "station"
)

// ParsePointType maps source spellings onto the closed set. Unknown spellings
// collapse to PointTypeUnknown rather than leaking through as free text.
func ParsePointType(s string) PointType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "port", "港口":
		return PointTypePort
	case "enterprise", "company", "企业":
		return PointTypeEnterprise
	case "market", "市场":
		return PointTypeMarket
	case "region", "区域":
		return PointTypeRegion
	case "station", "站点":
		return PointTypeStation
	default:
		return PointTypeUnknown
	}
}

// ReviewStatus is the moderation state of an observation.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ParseReviewStatus normalises the review spellings seen in upstream payloads.
func ParseReviewStatus(s string) ReviewStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved", "passed", "pass", "通过", "已通过":
		return ReviewApproved
	case "rejected", "denied", "驳回":
		return ReviewRejected
	default:
		return ReviewPending
	}
}

// SourceType distinguishes manual submissions from AI-extracted ones.
type SourceType string

const (
	SourceManual SourceType = "manual"
	SourceAI     SourceType = "ai"
)

// ParseSourceType normalises source spellings; anything not recognisably
// AI-extracted counts as manual.
func ParseSourceType(s string) SourceType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ai", "ocr", "ai_extracted", "ai-extracted":
		return SourceAI
	default:
		return SourceManual
	}
}

// QualityTag is the data-quality label attached by the review pipeline.
type QualityTag string

const (
	QualityNormal  QualityTag = "normal"
	QualitySuspect QualityTag = "suspect"
	QualityUnknown QualityTag = ""
)

// ParseQualityTag normalises quality spellings.
func ParseQualityTag(s string) QualityTag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "ok", "正常":
		return QualityNormal
	case "suspect", "abnormal", "可疑", "异常":
		return QualitySuspect
	default:
		return QualityUnknown
	}
}

// Observation is one price reading from one collection point on one calendar
// day. Observations are owned by the query layer and read-only here.
type Observation struct {
	PointID     string
	PointName   string
	PointType   PointType
	RegionCode  string
	RegionLabel string
	Date        time.Time
	Price       float64
	DayChange   float64
	Quality     QualityTag
	Review      ReviewStatus
	Source      SourceType
	// Late is classified upstream: the report timestamp postdates the
	// effective date by more than one day.
	Late bool
}

// Series is the chronologically ordered observations for one point within a
// window: ascending by date, at most one per calendar day.
type Series struct {
	PointID     string
	PointName   string
	PointType   PointType
	RegionCode  string
	RegionLabel string
	Obs         []Observation
}

// Empty reports whether the series carries no observations. Downstream
// consumers treat an empty series as "no data", never as an error.
func (s Series) Empty() bool {
	return len(s.Obs) == 0
}

// First returns the earliest observation. Callers must check Empty first.
func (s Series) First() Observation {
	return s.Obs[0]
}

// Latest returns the most recent observation. Callers must check Empty first.
func (s Series) Latest() Observation {
	return s.Obs[len(s.Obs)-1]
}

// Prices returns the price values in date order.
func (s Series) Prices() []float64 {
	out := make([]float64, len(s.Obs))
	for i, o := range s.Obs {
		out[i] = o.Price
	}
	return out
}

// Window is an inclusive calendar-day range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the window is non-empty. Invalid windows are rejected
// before the engine runs.
func (w Window) Valid() bool {
	return !dayOf(w.End).Before(dayOf(w.Start))
}

// Days is the expected-day count: end − start + 1 in calendar days. It is the
// denominator for coverage and missing-day calculations.
func (w Window) Days() int {
	if !w.Valid() {
		return 0
	}
	return int(dayOf(w.End).Sub(dayOf(w.Start))/(24*time.Hour)) + 1
}

// Contains reports whether t falls inside the window, by calendar day.
func (w Window) Contains(t time.Time) bool {
	d := dayOf(t)
	return !d.Before(dayOf(w.Start)) && !d.After(dayOf(w.End))
}

// LastDays builds the window ending at end covering the last n calendar days.
func LastDays(n int, end time.Time) Window {
	e := dayOf(end)
	return Window{Start: e.AddDate(0, 0, -(n - 1)), End: e}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pct(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
