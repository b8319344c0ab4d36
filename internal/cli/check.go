package cli

import (
	"github.com/spf13/cobra"

	"cauciones-alerts/internal/app"
)

var (
	checkAlerts  string
	checkStartup bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch caución rates once and send alerts for matching rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := getApp().Check(cmd.Context(), app.CheckOptions{
			AlertsPath:     checkAlerts,
			StartupMessage: checkStartup,
		})
		return err
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkAlerts, "alerts", "", "Alert rule file (defaults to alerts.path)")
	checkCmd.Flags().BoolVar(&checkStartup, "startup-message", false, "Announce the run in the chat before checking")
}
