package app

import (
	"context"

	"cauciones-alerts/internal/alerting"
)

// SimulateAlert sends a synthetic price alert so the chat setup can be verified
// without waiting for a real match.
func (a *App) SimulateAlert(ctx context.Context, alert alerting.PriceAlert) error {
	if err := a.Config.RequireTelegram(); err != nil {
		return err
	}

	notifier := a.newNotifier(a.Logger)
	if err := notifier.SendPriceAlert(ctx, alert); err != nil {
		return err
	}

	a.Logger.Info().
		Int("tenor", alert.Tenor).
		Str("side", string(alert.Side)).
		Str("current_rate", alert.CurrentRate.String()).
		Msg("simulated alert sent")
	return nil
}
