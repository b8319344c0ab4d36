package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cauciones-alerts/internal/alerting"
	"cauciones-alerts/internal/checker"
	"cauciones-alerts/internal/config"
	"cauciones-alerts/internal/fetcher"
	"cauciones-alerts/internal/rules"
	"cauciones-alerts/internal/scheduler"
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

// CheckOptions configure a single price check.
type CheckOptions struct {
	AlertsPath     string
	StartupMessage bool
}

// WatchOptions configure the repeating check loop.
type WatchOptions struct {
	CheckOptions
	Interval time.Duration
}

// newQuoteClient builds a fresh client, so no session outlives a run.
func (a *App) newQuoteClient(logger zerolog.Logger) *fetcher.IOL {
	cfg := a.Config.IOL
	return fetcher.NewIOL(fetcher.IOLOptions{
		BaseURL:    cfg.BaseURL,
		TokenPath:  cfg.TokenPath,
		QuotesPath: cfg.QuotesPath,
		Username:   cfg.Username,
		Password:   cfg.Password,
		Timeout:    cfg.RequestTimeout,
		UserAgent:  cfg.UserAgent,
	}, logger)
}

func (a *App) newNotifier(logger zerolog.Logger) *alerting.TelegramNotifier {
	cfg := a.Config.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.RequestTimeout, logger)
}

func (a *App) alertsPath(override string) string {
	if override != "" {
		return override
	}
	return a.Config.Alerts.Path
}

// Check runs one price check. Missing credentials fail before any network call.
func (a *App) Check(ctx context.Context, opts CheckOptions) (checker.Result, error) {
	if err := a.Config.RequireCredentials(); err != nil {
		return checker.Result{}, err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.StartupMessage {
		a.sendStartup(ctx, a.Logger)
	}
	return a.check(ctx, opts.AlertsPath)
}

// Watch repeats Check on the scheduler cadence until interrupted. Every run
// builds its own client and notifier.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	if err := a.Config.RequireCredentials(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interval := opts.Interval
	if interval <= 0 {
		interval = a.Config.Scheduler.Interval
	}

	sched := scheduler.New(scheduler.Options{
		Interval:       interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	if opts.StartupMessage {
		a.sendStartup(ctx, a.Logger)
	}

	a.Logger.Info().Dur("interval", interval).Msg("starting watch loop")
	err := sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		_, err := a.check(ctx, opts.AlertsPath)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

func (a *App) check(ctx context.Context, alertsPath string) (checker.Result, error) {
	logger := a.Logger.With().Str("run_id", uuid.NewString()).Logger()

	chk := checker.New(a.newQuoteClient(logger), a.newNotifier(logger), logger)
	return chk.Run(ctx, rules.File{Path: a.alertsPath(alertsPath)})
}

func (a *App) sendStartup(ctx context.Context, logger zerolog.Logger) {
	if err := a.newNotifier(logger).SendStartupMessage(ctx); err != nil {
		logger.Warn().Err(err).Msg("startup message not delivered")
	}
}
