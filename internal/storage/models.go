package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"price-insight/internal/analytics"
)

// ObservationRecord is a persisted price observation as it exists in
// Postgres: one row per collection point per calendar day. The tagged
// dimensions (point type, review status, source type, quality) are stored in
// canonical spelling; the ingest boundary collapses the platform's loose
// spellings before any row is written, so SQL scope predicates can compare
// against the canonical literals directly.
type ObservationRecord struct {
	PointID      string
	PointName    string
	PointType    string
	RegionCode   string
	RegionLabel  string
	Date         time.Time
	Price        decimal.Decimal
	DayChange    decimal.Decimal
	QualityTag   string
	ReviewStatus string
	SourceType   string
	ReportedAt   time.Time
	CreatedAt    time.Time
}

// ToObservation converts the row into engine form. Rows written by this
// version already carry canonical spellings; parsing again is idempotent and
// keeps rows loaded before the ingest normalisation readable. Lateness is
// classified from the report timestamp (more than one calendar day after the
// effective date).
func (r ObservationRecord) ToObservation() analytics.Observation {
	late := false
	if !r.ReportedAt.IsZero() {
		late = dayStart(r.ReportedAt).Sub(dayStart(r.Date)) > 24*time.Hour
	}
	return analytics.Observation{
		PointID:     r.PointID,
		PointName:   r.PointName,
		PointType:   analytics.ParsePointType(r.PointType),
		RegionCode:  r.RegionCode,
		RegionLabel: r.RegionLabel,
		Date:        dayStart(r.Date),
		Price:       r.Price.InexactFloat64(),
		DayChange:   r.DayChange.InexactFloat64(),
		Quality:     analytics.ParseQualityTag(r.QualityTag),
		Review:      analytics.ParseReviewStatus(r.ReviewStatus),
		Source:      analytics.ParseSourceType(r.SourceType),
		Late:        late,
	}
}

// ToObservations maps a result set into engine form.
func ToObservations(records []ObservationRecord) []analytics.Observation {
	out := make([]analytics.Observation, len(records))
	for i, r := range records {
		out[i] = r.ToObservation()
	}
	return out
}

// AnomalyAlertRecord captures an emitted anomaly digest line for
// de-duplication and auditing.
type AnomalyAlertRecord struct {
	ID           int64
	ReportID     string
	Bucket       time.Time
	PointID      string
	PointName    string
	Price        decimal.Decimal
	DeviationPct decimal.Decimal
	ThresholdPct decimal.Decimal
	Channels     []string
	CreatedAt    time.Time
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
