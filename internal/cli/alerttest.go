package cli

import (
	"github.com/spf13/cobra"
)

var alertTestCmd = &cobra.Command{
	Use:   "alert-test",
	Short: "发送一条模拟异常摘要，验证告警通道",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context())
	},
}
