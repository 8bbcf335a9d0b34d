package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertObservationSQL = `INSERT INTO observations (
        point_id,
        point_name,
        point_type,
        region_code,
        region_label,
        obs_date,
        price,
        day_change,
        quality_tag,
        review_status,
        source_type,
        reported_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
    )
    ON CONFLICT (point_id, obs_date) DO UPDATE
    SET
        point_name    = EXCLUDED.point_name,
        point_type    = EXCLUDED.point_type,
        region_code   = EXCLUDED.region_code,
        region_label  = EXCLUDED.region_label,
        price         = EXCLUDED.price,
        day_change    = EXCLUDED.day_change,
        quality_tag   = EXCLUDED.quality_tag,
        review_status = EXCLUDED.review_status,
        source_type   = EXCLUDED.source_type,
        reported_at   = EXCLUDED.reported_at;`

	selectObservationColumns = `SELECT
        point_id,
        point_name,
        point_type,
        region_code,
        region_label,
        obs_date,
        price,
        day_change,
        quality_tag,
        review_status,
        source_type,
        reported_at,
        created_at
    FROM observations`

	latestObservationDateSQL = `SELECT MAX(obs_date) FROM observations;`

	countObservationsSQL = `SELECT COUNT(*) FROM observations;`

	insertAnomalyAlertSQL = `INSERT INTO anomaly_alerts (
        report_id,
        bucket_ts,
        point_id,
        point_name,
        price,
        deviation_pct,
        threshold_pct,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (point_id, bucket_ts) DO UPDATE
    SET report_id     = EXCLUDED.report_id,
        price         = EXCLUDED.price,
        deviation_pct = EXCLUDED.deviation_pct,
        threshold_pct = EXCLUDED.threshold_pct,
        channels      = EXCLUDED.channels
    RETURNING id, report_id, bucket_ts, point_id, point_name, price, deviation_pct, threshold_pct, channels, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        report_id,
        bucket_ts,
        point_id,
        point_name,
        price,
        deviation_pct,
        threshold_pct,
        channels,
        created_at
    FROM anomaly_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	lastAlertTimeSQL = `SELECT MAX(created_at) FROM anomaly_alerts;`

	deleteAlertsBeforeSQL = `DELETE FROM anomaly_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ObservationFilter narrows observation queries. Review and source scopes are
// passed through to SQL untouched; the engine never interprets them.
type ObservationFilter struct {
	PointIDs     []string
	RegionPrefix string
	PointType    string
	ApprovedOnly bool
	SourceType   string
}

// ObservationStore defines operations for observation persistence.
type ObservationStore interface {
	UpsertObservation(ctx context.Context, record ObservationRecord) error
	ListObservationsBetween(ctx context.Context, from, to time.Time, filter ObservationFilter) ([]ObservationRecord, error)
	LatestObservationDate(ctx context.Context) (time.Time, bool, error)
	CountObservations(ctx context.Context) (int64, error)
}

// AlertStore defines operations for anomaly alert auditing.
type AlertStore interface {
	InsertAnomalyAlert(ctx context.Context, alert AnomalyAlertRecord) (AnomalyAlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AnomalyAlertRecord, error)
	LastAlertTime(ctx context.Context) (time.Time, bool, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to observations and anomaly alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

// UpsertObservation persists or updates one observation row; a repeated
// point/day pair overwrites the earlier load.
func (s *Store) UpsertObservation(ctx context.Context, record ObservationRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertObservationSQL,
		record.PointID,
		record.PointName,
		record.PointType,
		record.RegionCode,
		record.RegionLabel,
		record.Date,
		record.Price.String(),
		record.DayChange.String(),
		record.QualityTag,
		record.ReviewStatus,
		record.SourceType,
		record.ReportedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert observation: %w", execErr)
	}
	return nil
}

// ListObservationsBetween lists observations in [from, to] matching the
// filter, ordered by point and date.
func (s *Store) ListObservationsBetween(ctx context.Context, from, to time.Time, filter ObservationFilter) ([]ObservationRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	query, args := buildObservationQuery(from, to, filter)
	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list observations: %w", queryErr)
	}
	defer rows.Close()

	records := make([]ObservationRecord, 0)
	for rows.Next() {
		record, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func buildObservationQuery(from, to time.Time, filter ObservationFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(selectObservationColumns)

	args := []interface{}{from, to}
	sb.WriteString("\n    WHERE obs_date >= $1 AND obs_date <= $2")

	if len(filter.PointIDs) > 0 {
		args = append(args, filter.PointIDs)
		fmt.Fprintf(&sb, " AND point_id = ANY($%d)", len(args))
	}
	if filter.RegionPrefix != "" {
		args = append(args, filter.RegionPrefix+"%")
		fmt.Fprintf(&sb, " AND region_code LIKE $%d", len(args))
	}
	if filter.PointType != "" {
		args = append(args, filter.PointType)
		fmt.Fprintf(&sb, " AND point_type = $%d", len(args))
	}
	if filter.ApprovedOnly {
		sb.WriteString(" AND review_status = 'approved'")
	}
	if filter.SourceType != "" {
		args = append(args, filter.SourceType)
		fmt.Fprintf(&sb, " AND source_type = $%d", len(args))
	}

	sb.WriteString("\n    ORDER BY point_id, obs_date;")
	return sb.String(), args
}

// LatestObservationDate returns the newest effective date in storage; ok is
// false when the table is empty.
func (s *Store) LatestObservationDate(ctx context.Context) (time.Time, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return time.Time{}, false, err
	}
	var latest *time.Time
	if scanErr := pool.QueryRow(ctx, latestObservationDateSQL).Scan(&latest); scanErr != nil {
		return time.Time{}, false, fmt.Errorf("latest observation date: %w", scanErr)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

// CountObservations counts stored observations.
func (s *Store) CountObservations(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countObservationsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count observations: %w", scanErr)
	}
	return count, nil
}

// InsertAnomalyAlert persists an anomaly digest line.
func (s *Store) InsertAnomalyAlert(ctx context.Context, alert AnomalyAlertRecord) (AnomalyAlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AnomalyAlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAnomalyAlertSQL,
		alert.ReportID,
		alert.Bucket,
		alert.PointID,
		alert.PointName,
		alert.Price.String(),
		alert.DeviationPct.String(),
		alert.ThresholdPct.String(),
		alert.Channels,
	)
	return scanAnomalyAlert(row)
}

// ListRecentAlerts lists most recent anomaly alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AnomalyAlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AnomalyAlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAnomalyAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// LastAlertTime returns the creation time of the newest alert; ok is false
// when no alert was ever emitted. The sync service uses it for cooldown.
func (s *Store) LastAlertTime(ctx context.Context) (time.Time, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return time.Time{}, false, err
	}
	var last *time.Time
	if scanErr := pool.QueryRow(ctx, lastAlertTimeSQL).Scan(&last); scanErr != nil {
		return time.Time{}, false, fmt.Errorf("last alert time: %w", scanErr)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanObservation(rows pgx.Rows) (ObservationRecord, error) {
	var (
		record       ObservationRecord
		priceStr     string
		dayChangeStr string
	)

	if err := rows.Scan(
		&record.PointID,
		&record.PointName,
		&record.PointType,
		&record.RegionCode,
		&record.RegionLabel,
		&record.Date,
		&priceStr,
		&dayChangeStr,
		&record.QualityTag,
		&record.ReviewStatus,
		&record.SourceType,
		&record.ReportedAt,
		&record.CreatedAt,
	); err != nil {
		return ObservationRecord{}, err
	}

	var convErr error
	record.Price, convErr = decimal.NewFromString(priceStr)
	if convErr != nil {
		return ObservationRecord{}, fmt.Errorf("parse price: %w", convErr)
	}
	record.DayChange, convErr = decimal.NewFromString(dayChangeStr)
	if convErr != nil {
		return ObservationRecord{}, fmt.Errorf("parse day change: %w", convErr)
	}
	return record, nil
}

func scanAnomalyAlert(row pgx.Row) (AnomalyAlertRecord, error) {
	var (
		rec          AnomalyAlertRecord
		priceStr     string
		deviationStr string
		thresholdStr string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.ReportID,
		&rec.Bucket,
		&rec.PointID,
		&rec.PointName,
		&priceStr,
		&deviationStr,
		&thresholdStr,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return AnomalyAlertRecord{}, fmt.Errorf("scan anomaly alert: %w", err)
	}

	var convErr error
	rec.Price, convErr = decimal.NewFromString(priceStr)
	if convErr != nil {
		return AnomalyAlertRecord{}, fmt.Errorf("parse alert price: %w", convErr)
	}
	rec.DeviationPct, convErr = decimal.NewFromString(deviationStr)
	if convErr != nil {
		return AnomalyAlertRecord{}, fmt.Errorf("parse deviation pct: %w", convErr)
	}
	rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr)
	if convErr != nil {
		return AnomalyAlertRecord{}, fmt.Errorf("parse threshold pct: %w", convErr)
	}
	return rec, nil
}
