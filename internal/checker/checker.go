package checker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"cauciones-alerts/internal/alerting"
	"cauciones-alerts/internal/caucion"
	"cauciones-alerts/internal/fetcher"
	"cauciones-alerts/internal/rules"
)

// ErrNoQuotes means the quote fetch came back empty. It is a run failure, unlike
// a run where no rule matched.
var ErrNoQuotes = errors.New("no caución quotes fetched")

// Result summarises a run.
type Result struct {
	Rules          int
	Evaluated      int
	Skipped        int
	Triggered      int
	NotifyFailures int
}

// Checker evaluates alert rules against the current quote set.
type Checker struct {
	quotes   fetcher.QuoteFetcher
	notifier alerting.Notifier
	logger   zerolog.Logger
}

// New constructs a Checker.
func New(quotes fetcher.QuoteFetcher, notifier alerting.Notifier, logger zerolog.Logger) *Checker {
	return &Checker{
		quotes:   quotes,
		notifier: notifier,
		logger:   logger.With().Str("component", "checker").Logger(),
	}
}

// Run executes one pass: load rules, fetch quotes, evaluate, notify.
// It returns an error only for hard failures; notification problems are counted.
func (c *Checker) Run(ctx context.Context, source rules.Source) (Result, error) {
	list, err := source.Load()
	if err != nil {
		c.notifyError(ctx, fmt.Sprintf("Could not load alert rules: %v", err))
		return Result{}, fmt.Errorf("load alert rules: %w", err)
	}

	result := Result{Rules: len(list)}
	if len(list) == 0 {
		c.logger.Info().Msg("no alerts configured")
		return result, nil
	}

	quotes := c.quotes.Quotes(ctx)
	if len(quotes) == 0 {
		c.notifyError(ctx, "Failed to fetch cauciones data from IOL API")
		return result, ErrNoQuotes
	}

	byTenor := caucion.IndexByTenor(quotes)
	if len(byTenor) == 0 {
		c.logger.Warn().Str("sample", quotes[0].Raw()).Msg("could not read a tenor from any quote")
	}
	for _, tenor := range byTenor.Tenors() {
		c.logger.Debug().Int("tenor", tenor).Str("quote", byTenor[tenor].Raw()).Msg("caución found")
	}

	enabled := lo.Filter(list, func(r rules.Rule, _ int) bool { return r.Enabled })
	for _, rule := range enabled {
		c.evaluate(ctx, rule, byTenor, &result)
	}

	c.logger.Info().
		Int("rules", result.Rules).
		Int("evaluated", result.Evaluated).
		Int("skipped", result.Skipped).
		Int("triggered", result.Triggered).
		Int("notify_failures", result.NotifyFailures).
		Msgf("price check complete, %d alert(s) triggered", result.Triggered)
	return result, nil
}

func (c *Checker) evaluate(ctx context.Context, rule rules.Rule, byTenor caucion.Set, result *Result) {
	logger := c.logger.With().Int("tenor", rule.Tenor).Str("side", string(rule.Side)).Logger()

	quote, ok := byTenor[rule.Tenor]
	if !ok {
		result.Skipped++
		logger.Info().Msg("no caución data for tenor")
		return
	}

	current, ok := quote.Rate(rule.Side)
	if !ok {
		result.Skipped++
		logger.Info().Msg("could not read rate for side")
		return
	}

	result.Evaluated++
	if !rule.Comparison.Holds(current, rule.TargetRate) {
		logger.Info().
			Str("current_rate", current.StringFixed(2)).
			Str("target", string(rule.Comparison)+" "+rule.TargetRate.StringFixed(2)).
			Msg("no alert")
		return
	}

	result.Triggered++
	logger.Info().
		Str("current_rate", current.StringFixed(2)).
		Str("target", string(rule.Comparison)+" "+rule.TargetRate.StringFixed(2)).
		Msg("alert triggered")

	alert := alerting.PriceAlert{
		Tenor:       rule.Tenor,
		Side:        rule.Side,
		CurrentRate: current,
		TargetRate:  rule.TargetRate,
		Comparison:  rule.Comparison,
		Description: rule.Description,
	}
	if err := c.notifier.SendPriceAlert(ctx, alert); err != nil {
		result.NotifyFailures++
	}
}

func (c *Checker) notifyError(ctx context.Context, text string) {
	c.logger.Error().Msg(text)
	if err := c.notifier.SendErrorMessage(ctx, text); err != nil {
		c.logger.Warn().Err(err).Msg("failed to deliver error notification")
	}
}
