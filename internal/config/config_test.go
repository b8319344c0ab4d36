package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Setenv(EnvIOLUsername, "user")
	t.Setenv(EnvIOLPassword, "secret")
	t.Setenv(EnvTelegramBotToken, "bot-token")
	t.Setenv(EnvTelegramChatID, "42")
}

func TestLoadDefaultsAndCredentials(t *testing.T) {
	setCredentials(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "user", cfg.IOL.Username)
	assert.Equal(t, "secret", cfg.IOL.Password)
	assert.Equal(t, "bot-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)

	assert.Equal(t, "https://api.invertironline.com", cfg.IOL.BaseURL)
	assert.Equal(t, "/api/v2/Cotizaciones/Cauciones/argentina", cfg.IOL.QuotesPath)
	assert.Equal(t, 15*time.Second, cfg.IOL.RequestTimeout)
	assert.Equal(t, "alerts_config.json", cfg.Alerts.Path)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.RequireCredentials())
}

func TestLoadFileAndPrefixedEnv(t *testing.T) {
	setCredentials(t)
	t.Setenv("CAUCIONES_IOL_BASE_URL", "http://iol.local")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
iol:
  quotes_path: /api/v2/Cotizaciones/cauciones/argentina/Todos
  request_timeout: 3s
alerts:
  path: /etc/cauciones/alerts.yaml
logging:
  level: debug
  format: console
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://iol.local", cfg.IOL.BaseURL)
	assert.Equal(t, "/api/v2/Cotizaciones/cauciones/argentina/Todos", cfg.IOL.QuotesPath)
	assert.Equal(t, 3*time.Second, cfg.IOL.RequestTimeout)
	assert.Equal(t, "/etc/cauciones/alerts.yaml", cfg.Alerts.Path)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestRequireCredentialsReportsEachMissingVariable(t *testing.T) {
	for _, env := range []string{EnvIOLUsername, EnvIOLPassword, EnvTelegramBotToken, EnvTelegramChatID} {
		t.Run(env, func(t *testing.T) {
			setCredentials(t)
			t.Setenv(env, "")

			cfg, err := Load("")
			require.NoError(t, err)

			err = cfg.RequireCredentials()
			require.ErrorIs(t, err, ErrMissingCredentials)
			assert.Contains(t, err.Error(), env)
		})
	}
}

func TestRequireSubsets(t *testing.T) {
	cfg := &Config{
		IOL:      IOLConfig{Username: "user", Password: "secret"},
		Telegram: TelegramConfig{BotToken: "token"},
	}

	assert.NoError(t, cfg.RequireIOL())

	err := cfg.RequireTelegram()
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Contains(t, err.Error(), EnvTelegramChatID)
	assert.NotContains(t, err.Error(), EnvTelegramBotToken)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Config{Alerts: AlertsConfig{Path: "a.json"}}
	assert.Error(t, cfg.Validate())

	cfg.Scheduler.Interval = time.Minute
	assert.NoError(t, cfg.Validate())

	cfg.IOL.RequestTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iol: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
