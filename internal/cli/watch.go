package cli

import (
	"time"

	"github.com/spf13/cobra"

	"cauciones-alerts/internal/app"
)

var (
	watchAlerts   string
	watchStartup  bool
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repeat the check on a fixed interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context(), app.WatchOptions{
			CheckOptions: app.CheckOptions{
				AlertsPath:     watchAlerts,
				StartupMessage: watchStartup,
			},
			Interval: watchInterval,
		})
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAlerts, "alerts", "", "Alert rule file (defaults to alerts.path)")
	watchCmd.Flags().BoolVar(&watchStartup, "startup-message", true, "Announce monitoring start in the chat")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Check interval (defaults to scheduler.interval)")
}
