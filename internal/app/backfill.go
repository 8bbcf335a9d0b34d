package app

import (
	"context"
	"errors"

	"price-insight/internal/storage"
)

// Backfill 重新拉取一段历史窗口并入库。
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	from := opts.From.UTC()
	to := opts.To.UTC()
	if !from.Before(to) {
		return errors.New("回填范围为空，请检查 --from/--to")
	}

	var store *storage.Store
	if opts.DryRun {
		a.Logger.Warn().Msg("回填 dry-run：不会写入数据库")
	} else {
		var closeStore func()
		var err error
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn 未配置，无法回填")
		}
		if closeStore != nil {
			defer closeStore()
		}
	}

	records, err := a.newSource().FetchSince(ctx, from)
	if err != nil {
		return err
	}

	processed := 0
	failed := 0
	skipped := 0
	for _, record := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if record.Date.After(to) {
			skipped++
			continue
		}
		if opts.DryRun {
			processed++
			continue
		}
		if err := store.UpsertObservation(ctx, record); err != nil {
			failed++
			a.Logger.Error().Err(err).Str("point_id", record.PointID).Msg("回填失败")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Int("skipped", skipped).Msg("回填完成")
	if failed > 0 {
		return errors.New("部分观测回填失败，请检查日志")
	}
	return nil
}
