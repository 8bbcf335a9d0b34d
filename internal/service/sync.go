package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-insight/internal/alerting"
	"price-insight/internal/analytics"
	"price-insight/internal/config"
	"price-insight/internal/ingest"
	"price-insight/internal/scheduler"
	"price-insight/internal/storage"
)

// SyncService orchestrates fetching, persistence, and anomaly alerting.
type SyncService struct {
	scheduler  *scheduler.Scheduler
	source     ingest.Source
	store      storage.ObservationStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	thresholds   analytics.Thresholds
	windowDays   int
	lookbackDays int
	channels     []string
	alertsOn     bool
	cooldown     time.Duration
	retention    time.Duration
	locker       storage.AdvisoryLocker
	lockKey      int64
}

// NewSync constructs the sync service.
func NewSync(cfg *config.Config, sched *scheduler.Scheduler, source ingest.Source, store storage.ObservationStore, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *SyncService {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &SyncService{
		scheduler:    sched,
		source:       source,
		store:        store,
		alertStore:   alertStore,
		notifier:     notifier,
		logger:       logger.With().Str("component", "sync").Logger(),
		thresholds:   cfg.Analytics.Thresholds(),
		windowDays:   cfg.Analytics.WindowDays,
		lookbackDays: cfg.Ingest.LookbackDays,
		channels:     cfg.Alerting.Channels,
		alertsOn:     cfg.Alerting.Enabled,
		cooldown:     cfg.Alerting.Cooldown,
		retention:    cfg.Alerting.Retention,
		locker:       locker,
		lockKey:      cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the scheduled sync loop.
func (s *SyncService) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle 执行单个同步周期：拉取增量、入库、评估异常。
func (s *SyncService) ProcessCycle(ctx context.Context, cycle time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", cycle).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	if err := s.pull(ctx, cycle); err != nil {
		return err
	}

	if s.alertsOn && s.notifier != nil {
		if err := s.evaluateAnomalies(ctx, cycle); err != nil {
			s.logger.Error().Err(err).Time("cycle", cycle).Msg("anomaly evaluation failed")
		}
	}

	if s.alertStore != nil && s.retention > 0 {
		if err := s.alertStore.DeleteAlertsBefore(ctx, cycle.Add(-s.retention)); err != nil {
			s.logger.Error().Err(err).Time("cycle", cycle).Msg("alert retention cleanup failed")
		}
	}
	return nil
}

// pull fetches everything newer than the stored checkpoint and upserts it.
func (s *SyncService) pull(ctx context.Context, cycle time.Time) error {
	since := cycle.AddDate(0, 0, -s.lookbackDays)
	if latest, ok, err := s.store.LatestObservationDate(ctx); err != nil {
		return fmt.Errorf("resolve sync checkpoint: %w", err)
	} else if ok && latest.After(since) {
		// Re-read the newest stored day so late edits are picked up.
		since = latest.AddDate(0, 0, -1)
	}

	records, err := s.source.FetchSince(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch observations: %w", err)
	}

	stored, failed := 0, 0
	for _, record := range records {
		if err := s.store.UpsertObservation(ctx, record); err != nil {
			failed++
			s.logger.Error().Err(err).Str("point_id", record.PointID).Msg("failed to upsert observation")
			continue
		}
		stored++
	}

	s.logger.Info().Time("cycle", cycle).
		Time("since", since).
		Int("stored", stored).
		Int("failed", failed).
		Msg("observations synced")

	if failed > 0 && stored == 0 {
		return fmt.Errorf("all %d observation upserts failed", failed)
	}
	return nil
}

// evaluateAnomalies runs the anomaly disjunction over the configured window
// and pushes a digest for flagged points, honouring the alert cooldown.
func (s *SyncService) evaluateAnomalies(ctx context.Context, cycle time.Time) error {
	if s.alertStore != nil && s.cooldown > 0 {
		last, ok, err := s.alertStore.LastAlertTime(ctx)
		if err != nil {
			return err
		}
		if ok && cycle.Sub(last) < s.cooldown {
			s.logger.Debug().Time("cycle", cycle).Msg("alert cooldown active")
			return nil
		}
	}

	window := analytics.LastDays(s.windowDays, cycle)
	records, err := s.store.ListObservationsBetween(ctx, window.Start, window.End, storage.ObservationFilter{ApprovedOnly: true})
	if err != nil {
		return fmt.Errorf("load window for anomaly evaluation: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	series := analytics.BuildSeries(storage.ToObservations(records), window, analytics.SeriesFilter{})
	items := analytics.BuildRanking(series, window)
	meanLatest := analytics.FlagAnomalies(items, s.thresholds)

	note := alerting.Notification{
		Bucket:       cycle,
		ReportID:     uuid.NewString(),
		MeanLatest:   decimal.NewFromFloat(meanLatest),
		ThresholdPct: decimal.NewFromFloat(s.thresholds.DeviationPct),
		ChangeAbs:    decimal.NewFromFloat(s.thresholds.ChangeAbs),
		Channels:     s.channels,
	}
	for _, it := range items {
		if !it.IsAnomaly {
			continue
		}
		deviation := 0.0
		if meanLatest != 0 {
			deviation = math.Abs(it.Price-meanLatest) / meanLatest * 100
		}
		note.Lines = append(note.Lines, alerting.AnomalyLine{
			PointID:      it.ID,
			PointName:    it.Name,
			Price:        decimal.NewFromFloat(it.Price),
			DayChange:    decimal.NewFromFloat(it.Change),
			DeviationPct: decimal.NewFromFloat(deviation),
		})
	}
	if len(note.Lines) == 0 {
		return nil
	}

	if s.alertStore != nil {
		for _, line := range note.Lines {
			record := storage.AnomalyAlertRecord{
				ReportID:     note.ReportID,
				Bucket:       cycle,
				PointID:      line.PointID,
				PointName:    line.PointName,
				Price:        line.Price,
				DeviationPct: line.DeviationPct,
				ThresholdPct: note.ThresholdPct,
				Channels:     s.channels,
			}
			if _, err := s.alertStore.InsertAnomalyAlert(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("point_id", line.PointID).Msg("failed to persist anomaly alert")
			}
		}
	}

	if err := s.notifier.Notify(ctx, note); err != nil {
		return fmt.Errorf("dispatch anomaly digest: %w", err)
	}
	s.logger.Info().Time("cycle", cycle).Int("points", len(note.Lines)).Msg("anomaly digest dispatched")
	return nil
}

func (s *SyncService) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
