package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"price-insight/internal/scheduler"
	"price-insight/internal/service"
	"price-insight/internal/storage"
)

// Run executes the long-running sync service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; the sync service needs persistence")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if count, countErr := store.CountObservations(ctx); countErr == nil {
		a.Logger.Info().Int64("observations", count).Msg("storage ready")
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToCycle: a.Config.Scheduler.AlignToCycle,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	var alertStore storage.AlertStore = store
	svc := service.NewSync(a.Config, sched, a.newSource(), store, alertStore, a.newNotifier(), a.Logger)

	a.Logger.Info().Msg("starting sync service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("sync service terminated with error")
		return err
	}

	a.Logger.Info().Msg("sync service stopped")
	return nil
}
