package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-insight/internal/alerting"
	"price-insight/internal/analytics"
	"price-insight/internal/config"
	"price-insight/internal/storage"
)

type fakeStore struct {
	records      []storage.ObservationRecord
	alerts       []storage.AnomalyAlertRecord
	lastAlert    time.Time
	hasAlerted   bool
	prunedBefore time.Time
}

func (f *fakeStore) UpsertObservation(ctx context.Context, record storage.ObservationRecord) error {
	for i, existing := range f.records {
		if existing.PointID == record.PointID && existing.Date.Equal(record.Date) {
			f.records[i] = record
			return nil
		}
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeStore) ListObservationsBetween(ctx context.Context, from, to time.Time, filter storage.ObservationFilter) ([]storage.ObservationRecord, error) {
	out := make([]storage.ObservationRecord, 0)
	for _, r := range f.records {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		if filter.ApprovedOnly && r.ReviewStatus != "approved" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) LatestObservationDate(ctx context.Context) (time.Time, bool, error) {
	if len(f.records) == 0 {
		return time.Time{}, false, nil
	}
	latest := f.records[0].Date
	for _, r := range f.records[1:] {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest, true, nil
}

func (f *fakeStore) CountObservations(ctx context.Context) (int64, error) {
	return int64(len(f.records)), nil
}

func (f *fakeStore) InsertAnomalyAlert(ctx context.Context, alert storage.AnomalyAlertRecord) (storage.AnomalyAlertRecord, error) {
	f.alerts = append(f.alerts, alert)
	return alert, nil
}

func (f *fakeStore) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AnomalyAlertRecord, error) {
	return f.alerts, nil
}

func (f *fakeStore) LastAlertTime(ctx context.Context) (time.Time, bool, error) {
	return f.lastAlert, f.hasAlerted, nil
}

func (f *fakeStore) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	f.prunedBefore = olderThan
	return nil
}

type fakeSource struct {
	records []storage.ObservationRecord
	since   time.Time
}

func (f *fakeSource) FetchSince(ctx context.Context, since time.Time) ([]storage.ObservationRecord, error) {
	f.since = since
	return f.records, nil
}

type fakeNotifier struct {
	notes []alerting.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	f.notes = append(f.notes, note)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Interval: time.Hour},
		Ingest:    config.IngestConfig{LookbackDays: 7},
		Analytics: config.AnalyticsConfig{
			DeviationThresholdPct: 5,
			ChangeThreshold:       20,
			WindowDays:            30,
			HealthWeights:         config.HealthWeightsConfig{Coverage: 0.5, Anomaly: 0.3, Late: 0.2},
		},
		Alerting: config.AlertingConfig{Enabled: true, Channels: []string{"telegram"}},
	}
}

func record(point string, d time.Time, price float64) storage.ObservationRecord {
	return storage.ObservationRecord{
		PointID:      point,
		PointName:    point,
		Date:         d,
		Price:        decimal.NewFromFloat(price),
		DayChange:    decimal.Zero,
		ReviewStatus: "approved",
	}
}

func TestProcessCycleStoresAndAlerts(t *testing.T) {
	cycle := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{}
	// Latest prices 100 vs 200 deviate 33% from the mean of 150.
	source := &fakeSource{records: []storage.ObservationRecord{
		record("low", day, 100),
		record("high", day, 200),
	}}
	notifier := &fakeNotifier{}

	svc := NewSync(testConfig(), nil, source, store, store, notifier, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), cycle); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if len(store.records) != 2 {
		t.Fatalf("expected 2 stored observations, got %d", len(store.records))
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.notes))
	}
	if len(notifier.notes[0].Lines) != 2 {
		t.Fatalf("both points should be in the digest: %+v", notifier.notes[0])
	}
	if len(store.alerts) != 2 {
		t.Fatalf("alerts must be persisted for auditing, got %d", len(store.alerts))
	}
	if notifier.notes[0].ReportID == "" {
		t.Fatal("digest must carry a correlation id")
	}
	for _, alert := range store.alerts {
		if alert.ReportID != notifier.notes[0].ReportID {
			t.Fatalf("persisted alert must share the digest correlation id: %+v", alert)
		}
	}
}

func TestProcessCycleQuietMarketNoDigest(t *testing.T) {
	cycle := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{}
	source := &fakeSource{records: []storage.ObservationRecord{
		record("a", day, 100),
		record("b", day, 101),
	}}
	notifier := &fakeNotifier{}

	svc := NewSync(testConfig(), nil, source, store, store, notifier, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), cycle); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("quiet market 不应触发告警: %+v", notifier.notes)
	}
}

func TestProcessCycleRespectsCooldown(t *testing.T) {
	cycle := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{lastAlert: cycle.Add(-time.Hour), hasAlerted: true}
	source := &fakeSource{records: []storage.ObservationRecord{
		record("low", day, 100),
		record("high", day, 200),
	}}
	notifier := &fakeNotifier{}

	cfg := testConfig()
	cfg.Alerting.Cooldown = 6 * time.Hour
	svc := NewSync(cfg, nil, source, store, store, notifier, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), cycle); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatal("cooldown 内不应重复告警")
	}
}

func TestProcessCyclePrunesOldAlerts(t *testing.T) {
	cycle := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	store := &fakeStore{}
	cfg := testConfig()
	cfg.Alerting.Retention = 90 * 24 * time.Hour
	svc := NewSync(cfg, nil, &fakeSource{}, store, store, &fakeNotifier{}, zerolog.Nop())

	if err := svc.ProcessCycle(context.Background(), cycle); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	want := cycle.Add(-cfg.Alerting.Retention)
	if !store.prunedBefore.Equal(want) {
		t.Fatalf("retention cutoff mismatch: got %v want %v", store.prunedBefore, want)
	}
}

func TestProcessCycleAdvancesCheckpoint(t *testing.T) {
	cycle := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	existing := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{records: []storage.ObservationRecord{record("a", existing, 100)}}
	source := &fakeSource{}
	svc := NewSync(testConfig(), nil, source, store, store, &fakeNotifier{}, zerolog.Nop())

	if err := svc.ProcessCycle(context.Background(), cycle); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	want := existing.AddDate(0, 0, -1)
	if !source.since.Equal(want) {
		t.Fatalf("checkpoint should re-read the newest stored day: got %v want %v", source.since, want)
	}
}

func TestAnalyzerReport(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	store := &fakeStore{records: []storage.ObservationRecord{
		record("p1", day(1), 100),
		record("p1", day(2), 110),
		record("p2", day(1), 200),
	}}

	analyzer := NewAnalyzer(store, testConfig().Analytics, zerolog.Nop())
	params := analytics.Params{
		Window: analytics.Window{Start: day(1), End: day(2)},
	}
	report, err := analyzer.Report(context.Background(), params, storage.ObservationFilter{})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(report.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(report.Items))
	}
	if report.Params.Thresholds.DeviationPct != 5 {
		t.Fatalf("config defaults should flow into params: %+v", report.Params.Thresholds)
	}

	params.Window = analytics.Window{Start: day(5), End: day(1)}
	if _, err := analyzer.Report(context.Background(), params, storage.ObservationFilter{}); err == nil {
		t.Fatal("invalid window 必须被拒绝")
	}
}
