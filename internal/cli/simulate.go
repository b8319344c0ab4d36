package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"cauciones-alerts/internal/alerting"
	"cauciones-alerts/internal/caucion"
	"cauciones-alerts/internal/rules"
)

var (
	simulateTenor       int
	simulateSide        string
	simulateCurrent     float64
	simulateTarget      float64
	simulateComparison  string
	simulateDescription string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic price alert to the chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateTenor <= 0 {
			return errors.New("--tenor must be greater than 0")
		}
		if simulateCurrent < 0 || simulateTarget < 0 {
			return errors.New("--current and --target cannot be negative")
		}
		side, err := caucion.ParseSide(simulateSide)
		if err != nil {
			return err
		}
		comparison, err := rules.ParseComparison(simulateComparison)
		if err != nil {
			return err
		}

		return getApp().SimulateAlert(cmd.Context(), alerting.PriceAlert{
			Tenor:       simulateTenor,
			Side:        side,
			CurrentRate: decimal.NewFromFloat(simulateCurrent),
			TargetRate:  decimal.NewFromFloat(simulateTarget),
			Comparison:  comparison,
			Description: simulateDescription,
		})
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simulateTenor, "tenor", 1, "Tenor in days")
	simulateCmd.Flags().StringVar(&simulateSide, "side", string(caucion.SideLender), "lender or borrower")
	simulateCmd.Flags().Float64Var(&simulateCurrent, "current", 0, "Current rate (%)")
	simulateCmd.Flags().Float64Var(&simulateTarget, "target", 0, "Target rate (%)")
	simulateCmd.Flags().StringVar(&simulateComparison, "comparison", string(rules.GreaterOrEqual), "Comparison operator")
	simulateCmd.Flags().StringVar(&simulateDescription, "description", "Simulated alert", "Note attached to the alert")
}
