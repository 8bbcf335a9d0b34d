package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"price-insight/internal/alerting"
)

// SimulateAlert 发送一条示例异常摘要，用于验证告警通道配置。
func (a *App) SimulateAlert(ctx context.Context) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	note := alerting.Notification{
		Bucket:       time.Now().UTC().Truncate(a.Config.Scheduler.Interval),
		ReportID:     "simulated",
		MeanLatest:   decimal.NewFromInt(150),
		ThresholdPct: decimal.NewFromFloat(a.Config.Analytics.DeviationThresholdPct),
		ChangeAbs:    decimal.NewFromFloat(a.Config.Analytics.ChangeThreshold),
		Lines: []alerting.AnomalyLine{
			{
				PointID:      "sim-low",
				PointName:    "模拟采集点 A",
				Price:        decimal.NewFromInt(100),
				DayChange:    decimal.NewFromInt(-25),
				DeviationPct: decimal.NewFromFloat(33.3),
			},
			{
				PointID:      "sim-high",
				PointName:    "模拟采集点 B",
				Price:        decimal.NewFromInt(200),
				DayChange:    decimal.NewFromInt(30),
				DeviationPct: decimal.NewFromFloat(33.3),
			},
		},
		Channels:      a.Config.Alerting.Channels,
		AdditionalMsg: "此为模拟消息，无需处理。",
	}

	return notifier.Notify(ctx, note)
}
