package alerting

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cauciones-alerts/internal/caucion"
	"cauciones-alerts/internal/rules"
)

// PriceAlert carries the context of a triggered rule.
type PriceAlert struct {
	Tenor       int
	Side        caucion.Side
	CurrentRate decimal.Decimal
	TargetRate  decimal.Decimal
	Comparison  rules.Comparison
	Description string
}

// Notifier delivers messages to the configured chat.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
	SendPriceAlert(ctx context.Context, alert PriceAlert) error
	SendErrorMessage(ctx context.Context, text string) error
	SendStartupMessage(ctx context.Context) error
}

// TelegramNotifier sends HTML formatted messages through the Telegram Bot API.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID string
	logger zerolog.Logger
}

// NewTelegramNotifier builds a notifier without contacting Telegram; the first
// request happens on the first send.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	bot := &tgbotapi.BotAPI{
		Token:  botToken,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(strings.TrimRight(baseURL, "/") + "/bot%s/%s")

	return &TelegramNotifier{
		bot:    bot,
		chatID: strings.TrimSpace(chatID),
		logger: logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// SendMessage posts text to the chat. Cancelling ctx aborts an in-flight request.
func (n *TelegramNotifier) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bot := *n.bot
	bot.Client = contextClient{ctx: ctx, client: n.bot.Client}
	if _, err := bot.Send(n.newMessage(text)); err != nil {
		n.logger.Error().Err(err).Str("chat_id", n.chatID).Msg("telegram delivery failed")
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.Debug().Str("chat_id", n.chatID).Msg("telegram message sent")
	return nil
}

// SendPriceAlert formats and sends a triggered rule.
func (n *TelegramNotifier) SendPriceAlert(ctx context.Context, alert PriceAlert) error {
	if err := n.SendMessage(ctx, renderPriceAlert(alert)); err != nil {
		return err
	}
	n.logger.Info().Int("tenor", alert.Tenor).
		Str("side", string(alert.Side)).
		Str("current_rate", alert.CurrentRate.String()).
		Msg("price alert sent (Telegram)")
	return nil
}

// SendErrorMessage reports a run failure.
func (n *TelegramNotifier) SendErrorMessage(ctx context.Context, text string) error {
	return n.SendMessage(ctx, "❌ <b>Error in Price Checker</b>\n\n"+html.EscapeString(text))
}

// SendStartupMessage announces that monitoring started.
func (n *TelegramNotifier) SendStartupMessage(ctx context.Context) error {
	return n.SendMessage(ctx, "✅ <b>Cauciones Price Checker Started</b>\n\nMonitoring prices...")
}

func (n *TelegramNotifier) newMessage(text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(n.chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(n.chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

func renderPriceAlert(alert PriceAlert) string {
	builder := strings.Builder{}
	builder.WriteString("🔔 <b>Caucion Price Alert!</b>\n\n")
	builder.WriteString(fmt.Sprintf("📊 <b>Plazo:</b> %d day(s)\n", alert.Tenor))
	builder.WriteString(fmt.Sprintf("📈 <b>Type:</b> %s\n", alert.Side.Label()))
	builder.WriteString(fmt.Sprintf("💰 <b>Current Rate:</b> %s%%\n", alert.CurrentRate.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("🎯 <b>Target Rate:</b> %s%%\n", alert.TargetRate.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("📌 <b>Condition:</b> %s %s\n", html.EscapeString(string(alert.Comparison)), alert.Comparison.Verb()))
	if alert.Description != "" {
		builder.WriteString(fmt.Sprintf("\n📝 <i>%s</i>", html.EscapeString(alert.Description)))
	}
	return builder.String()
}

// contextClient binds a context to the requests tgbotapi builds without one.
type contextClient struct {
	ctx    context.Context
	client tgbotapi.HTTPClient
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

var _ Notifier = (*TelegramNotifier)(nil)
