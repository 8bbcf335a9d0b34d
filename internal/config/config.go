package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"price-insight/internal/analytics"
	"price-insight/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the sync cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToCycle    bool          `mapstructure:"align_to_cycle"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// IngestConfig captures platform API connectivity.
type IngestConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	PageSize       int           `mapstructure:"page_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	// LookbackDays bounds how far back an incremental sync re-reads when no
	// checkpoint exists yet.
	LookbackDays int `mapstructure:"lookback_days"`
}

// AnalyticsConfig holds the engine tunables and their dashboard defaults.
type AnalyticsConfig struct {
	DeviationThresholdPct float64             `mapstructure:"deviation_threshold_pct"`
	ChangeThreshold       float64             `mapstructure:"change_threshold"`
	WindowDays            int                 `mapstructure:"window_days"`
	HealthWeights         HealthWeightsConfig `mapstructure:"health_weights"`
}

// HealthWeightsConfig mirrors analytics.HealthWeights for config decoding.
type HealthWeightsConfig struct {
	Coverage float64 `mapstructure:"coverage"`
	Anomaly  float64 `mapstructure:"anomaly"`
	Late     float64 `mapstructure:"late"`
}

// Thresholds converts the configured anomaly thresholds into engine form.
func (a AnalyticsConfig) Thresholds() analytics.Thresholds {
	return analytics.Thresholds{
		DeviationPct: a.DeviationThresholdPct,
		ChangeAbs:    a.ChangeThreshold,
	}
}

// Weights converts the configured health weights into engine form.
func (a AnalyticsConfig) Weights() analytics.HealthWeights {
	return analytics.HealthWeights{
		Coverage: a.HealthWeights.Coverage,
		Anomaly:  a.HealthWeights.Anomaly,
		Late:     a.HealthWeights.Late,
	}
}

// AlertingConfig defines anomaly digest routing.
type AlertingConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	// Retention bounds how long emitted alerts are kept for auditing.
	Retention time.Duration  `mapstructure:"retention"`
	Channels  []string       `mapstructure:"channels"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "priceinsight")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_cycle", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x70726963))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("ingest.page_size", 500)
	v.SetDefault("ingest.request_timeout", "15s")
	v.SetDefault("ingest.user_agent", "priceinsight/1.0")
	v.SetDefault("ingest.lookback_days", 7)

	v.SetDefault("analytics.deviation_threshold_pct", 5.0)
	v.SetDefault("analytics.change_threshold", 20.0)
	v.SetDefault("analytics.window_days", 30)
	v.SetDefault("analytics.health_weights.coverage", 0.5)
	v.SetDefault("analytics.health_weights.anomaly", 0.3)
	v.SetDefault("analytics.health_weights.late", 0.2)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "6h")
	v.SetDefault("alerting.retention", "2160h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Ingest.PageSize <= 0 {
		return fmt.Errorf("ingest.page_size must be greater than zero")
	}
	if c.Ingest.LookbackDays <= 0 {
		return fmt.Errorf("ingest.lookback_days must be greater than zero")
	}
	if c.Analytics.WindowDays <= 0 {
		return fmt.Errorf("analytics.window_days must be greater than zero")
	}
	if err := c.Analytics.Thresholds().Validate(); err != nil {
		return fmt.Errorf("analytics thresholds: %w", err)
	}
	if err := c.Analytics.Weights().Validate(); err != nil {
		return fmt.Errorf("analytics.health_weights: %w", err)
	}
	if c.Alerting.Retention < 0 {
		return fmt.Errorf("alerting.retention cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
