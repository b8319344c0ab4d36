package cli

import (
	"github.com/spf13/cobra"

	"cauciones-alerts/internal/app"
)

var rulesAlerts string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Validate and print the alert rule file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Rules(app.RulesOptions{
			AlertsPath: rulesAlerts,
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	rulesCmd.Flags().StringVar(&rulesAlerts, "alerts", "", "Alert rule file (defaults to alerts.path)")
}
