package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"price-insight/internal/alerting"
	"price-insight/internal/config"
	"price-insight/internal/ingest"
	"price-insight/internal/service"
	"price-insight/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSource() ingest.Source {
	return ingest.NewClient(ingest.Options{
		BaseURL:   a.Config.Ingest.BaseURL,
		PageSize:  a.Config.Ingest.PageSize,
		Timeout:   a.Config.Ingest.RequestTimeout,
		UserAgent: a.Config.Ingest.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newAnalyzer(store storage.ObservationStore) *service.Analyzer {
	return service.NewAnalyzer(store, a.Config.Analytics, a.Logger)
}

// AnalysisOptions hold the shared dashboard tunables of the analytics
// commands: window, selection, scope, and thresholds.
type AnalysisOptions struct {
	WindowDays   int
	End          time.Time
	PointIDs     []string
	RegionPrefix string
	PointType    string
	ApprovedOnly bool
	SourceType   string
	DeviationPct float64
	ChangeAbs    float64
}

// RankOptions configure the ranking command.
type RankOptions struct {
	AnalysisOptions
	Metric           string
	Group            string
	Baseline         string
	IndexMode        bool
	ShowDistribution bool
}

// RegionsOptions configure the region comparison command.
type RegionsOptions struct {
	AnalysisOptions
	Level   string
	Sort    string
	View    string
	Keyword string
	Compare string
}

// HealthOptions configure the continuity health command.
type HealthOptions struct {
	AnalysisOptions
	Limit int
}

// ExportOptions hold parameters for exporting point series.
type ExportOptions struct {
	AnalysisOptions
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
	IndexMode bool
}

// AlertsOptions configure the recent-alert listing.
type AlertsOptions struct {
	Limit int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}
