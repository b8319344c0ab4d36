package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"cauciones-alerts/internal/logging"
)

// Environment variables holding the credentials. They are read without the
// CAUCIONES_ prefix so existing deployments keep working.
const (
	EnvIOLUsername      = "IOL_USERNAME"
	EnvIOLPassword      = "IOL_PASSWORD"
	EnvTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID   = "TELEGRAM_CHAT_ID"
)

// ErrMissingCredentials is returned when a required credential is not set.
var ErrMissingCredentials = errors.New("missing required environment variables")

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	IOL       IOLConfig       `mapstructure:"iol"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// IOLConfig covers InvertirOnline connectivity.
type IOLConfig struct {
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	BaseURL        string        `mapstructure:"base_url"`
	TokenPath      string        `mapstructure:"token_path"`
	QuotesPath     string        `mapstructure:"quotes_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// TelegramConfig covers Telegram bot delivery.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AlertsConfig locates the alert rule file.
type AlertsConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulerConfig governs the optional watch loop.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAUCIONES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindCredentials(v); err != nil {
		return nil, err
	}
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

func bindCredentials(v *viper.Viper) error {
	bindings := map[string]string{
		"iol.username":       EnvIOLUsername,
		"iol.password":       EnvIOLPassword,
		"telegram.bot_token": EnvTelegramBotToken,
		"telegram.chat_id":   EnvTelegramChatID,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
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
	v.SetDefault("app.name", "cauciones-alerts")
	v.SetDefault("app.environment", "production")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.max_size_mb", 10)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age_days", 30)

	v.SetDefault("iol.base_url", "https://api.invertironline.com")
	v.SetDefault("iol.token_path", "/token")
	v.SetDefault("iol.quotes_path", "/api/v2/Cotizaciones/Cauciones/argentina")
	v.SetDefault("iol.request_timeout", "15s")
	v.SetDefault("iol.user_agent", "cauciones-alerts/1.0")

	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.request_timeout", "10s")

	v.SetDefault("alerts.path", "alerts_config.json")

	v.SetDefault("scheduler.interval", "15m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")
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

// Validate performs basic sanity checks on the configuration values. Credentials
// are checked separately since not every command needs them.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.IOL.RequestTimeout < 0 {
		return fmt.Errorf("iol.request_timeout cannot be negative")
	}
	if c.Telegram.RequestTimeout < 0 {
		return fmt.Errorf("telegram.request_timeout cannot be negative")
	}
	if strings.TrimSpace(c.Alerts.Path) == "" {
		return fmt.Errorf("alerts.path must be configured")
	}
	return nil
}

// RequireIOL checks the brokerage credentials.
func (c *Config) RequireIOL() error {
	return missing(map[string]string{
		EnvIOLUsername: c.IOL.Username,
		EnvIOLPassword: c.IOL.Password,
	})
}

// RequireTelegram checks the bot credentials.
func (c *Config) RequireTelegram() error {
	return missing(map[string]string{
		EnvTelegramBotToken: c.Telegram.BotToken,
		EnvTelegramChatID:   c.Telegram.ChatID,
	})
}

// RequireCredentials checks all four credentials needed by a price check.
func (c *Config) RequireCredentials() error {
	return missing(map[string]string{
		EnvIOLUsername:      c.IOL.Username,
		EnvIOLPassword:      c.IOL.Password,
		EnvTelegramBotToken: c.Telegram.BotToken,
		EnvTelegramChatID:   c.Telegram.ChatID,
	})
}

func missing(values map[string]string) error {
	var names []string
	for _, env := range []string{EnvIOLUsername, EnvIOLPassword, EnvTelegramBotToken, EnvTelegramChatID} {
		if v, ok := values[env]; ok && strings.TrimSpace(v) == "" {
			names = append(names, env)
		}
	}
	if len(names) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(names, ", "))
	}
	return nil
}
