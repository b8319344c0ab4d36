package alerting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cauciones-alerts/internal/caucion"
	"cauciones-alerts/internal/rules"
)

const sentOK = `{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":42,"type":"private"},"text":"x"}}`

type telegramRecorder struct {
	mu    sync.Mutex
	paths []string
	forms []url.Values
}

func (r *telegramRecorder) last() url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.forms) == 0 {
		return nil
	}
	return r.forms[len(r.forms)-1]
}

func newTelegramServer(t *testing.T, body string) (*httptest.Server, *telegramRecorder) {
	t.Helper()
	rec := &telegramRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse telegram form: %v", err)
		}
		rec.mu.Lock()
		rec.paths = append(rec.paths, r.URL.Path)
		rec.forms = append(rec.forms, r.PostForm)
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestTelegramNotifierSendMessage(t *testing.T) {
	srv, rec := newTelegramServer(t, sentOK)

	notifier := NewTelegramNotifier("token", "42", srv.URL, time.Second, testLogger())
	require.NoError(t, notifier.SendMessage(context.Background(), "hola"))

	require.Equal(t, []string{"/bottoken/sendMessage"}, rec.paths)
	form := rec.last()
	assert.Equal(t, "42", form.Get("chat_id"))
	assert.Equal(t, "hola", form.Get("text"))
	assert.Equal(t, "HTML", form.Get("parse_mode"))
}

func TestTelegramNotifierChannelUsername(t *testing.T) {
	srv, rec := newTelegramServer(t, sentOK)

	notifier := NewTelegramNotifier("token", "@cauciones", srv.URL, time.Second, testLogger())
	require.NoError(t, notifier.SendMessage(context.Background(), "hola"))
	assert.Equal(t, "@cauciones", rec.last().Get("chat_id"))
}

func TestTelegramNotifierError(t *testing.T) {
	srv, _ := newTelegramServer(t, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)

	notifier := NewTelegramNotifier("token", "42", srv.URL, time.Second, testLogger())
	err := notifier.SendMessage(context.Background(), "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramNotifierTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	notifier := NewTelegramNotifier("token", "42", base, time.Second, testLogger())
	assert.Error(t, notifier.SendMessage(context.Background(), "hola"))
}

func TestTelegramNotifierCancelledContext(t *testing.T) {
	srv, rec := newTelegramServer(t, sentOK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notifier := NewTelegramNotifier("token", "42", srv.URL, time.Second, testLogger())
	require.ErrorIs(t, notifier.SendMessage(ctx, "hola"), context.Canceled)
	assert.Empty(t, rec.paths)
}

func TestTelegramNotifierCancelDuringSend(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	notifier := NewTelegramNotifier("token", "42", srv.URL, 30*time.Second, testLogger())
	start := time.Now()
	err := notifier.SendMessage(ctx, "hola")

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendPriceAlertTemplate(t *testing.T) {
	srv, rec := newTelegramServer(t, sentOK)

	notifier := NewTelegramNotifier("token", "42", srv.URL, time.Second, testLogger())
	err := notifier.SendPriceAlert(context.Background(), PriceAlert{
		Tenor:       7,
		Side:        caucion.SideLender,
		CurrentRate: decimal.RequireFromString("45.004"),
		TargetRate:  decimal.NewFromInt(45),
		Comparison:  rules.GreaterOrEqual,
		Description: "weekly <placement>",
	})
	require.NoError(t, err)

	text := rec.last().Get("text")
	assert.Contains(t, text, "<b>Plazo:</b> 7 day(s)")
	assert.Contains(t, text, "Colocador (Lender)")
	assert.Contains(t, text, "<b>Current Rate:</b> 45.00%")
	assert.Contains(t, text, "<b>Target Rate:</b> 45.00%")
	assert.Contains(t, text, "&gt;= reached")
	assert.Contains(t, text, "<i>weekly &lt;placement&gt;</i>")
}

func TestRenderPriceAlertWithoutDescription(t *testing.T) {
	text := renderPriceAlert(PriceAlert{
		Tenor:       1,
		Side:        caucion.SideBorrower,
		CurrentRate: decimal.RequireFromString("29.5"),
		TargetRate:  decimal.NewFromInt(30),
		Comparison:  rules.Less,
	})

	assert.Contains(t, text, "Tomador (Borrower)")
	assert.Contains(t, text, "&lt; dropped to")
	assert.NotContains(t, text, "<i>")
}

func TestSendErrorAndStartupMessages(t *testing.T) {
	srv, rec := newTelegramServer(t, sentOK)
	notifier := NewTelegramNotifier("token", "42", srv.URL, time.Second, testLogger())

	require.NoError(t, notifier.SendErrorMessage(context.Background(), "config <missing>"))
	assert.Contains(t, rec.last().Get("text"), "Error in Price Checker")
	assert.Contains(t, rec.last().Get("text"), "config &lt;missing&gt;")

	require.NoError(t, notifier.SendStartupMessage(context.Background()))
	assert.Contains(t, rec.last().Get("text"), "Cauciones Price Checker Started")
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
