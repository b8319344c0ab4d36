package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"cauciones-alerts/internal/caucion"
)

const (
	defaultIOLBaseURL = "https://api.invertironline.com"
	defaultTokenPath  = "/token"
	defaultQuotesPath = "/api/v2/Cotizaciones/Cauciones/argentina"
	defaultUserAgent  = "cauciones-alerts/1.0"

	maxResponseBytes = 4 << 20
	maxErrorSnippet  = 512
)

// IOLOptions parameterise the InvertirOnline client. Endpoint paths are
// configuration since the upstream contract is undocumented.
type IOLOptions struct {
	BaseURL    string
	TokenPath  string
	QuotesPath string
	Username   string
	Password   string
	Timeout    time.Duration
	UserAgent  string
}

// Session is the bearer token pair issued by the token endpoint.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IOL fetches caución quotes from the InvertirOnline API. A client owns its
// session; build one per run.
type IOL struct {
	opts    IOLOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	session *Session
}

// NewIOL constructs an InvertirOnline client.
func NewIOL(opts IOLOptions, logger zerolog.Logger) *IOL {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultIOLBaseURL
	}
	if opts.TokenPath == "" {
		opts.TokenPath = defaultTokenPath
	}
	if opts.QuotesPath == "" {
		opts.QuotesPath = defaultQuotesPath
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &IOL{
		opts:    opts,
		logger:  logger.With().Str("component", "iol_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Authenticated reports whether an access token is held.
func (c *IOL) Authenticated() bool {
	return c.session != nil && c.session.AccessToken != ""
}

// Session returns a copy of the held session, if any.
func (c *IOL) Session() (Session, bool) {
	if !c.Authenticated() {
		return Session{}, false
	}
	return *c.session, true
}

// Authenticate performs a password grant. On failure the held session is left untouched.
func (c *IOL) Authenticate(ctx context.Context) error {
	form := url.Values{
		"username":   {c.opts.Username},
		"password":   {c.opts.Password},
		"grant_type": {"password"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.opts.TokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("authentication request failed")
		return fmt.Errorf("send token request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("body", snippet(payload)).Msg("authentication failed")
		return parseHTTPError(resp.StatusCode, payload)
	}

	var token tokenResponse
	if err := json.Unmarshal(payload, &token); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token response carries no access_token")
	}

	session := &Session{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
	if token.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	c.session = session

	c.logger.Debug().Time("expires_at", session.ExpiresAt).Msg("authenticated")
	return nil
}

// Quotes returns the current caución quotes, or nil when anything upstream fails.
func (c *IOL) Quotes(ctx context.Context) []caucion.Quote {
	quotes, err := c.fetchQuotes(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to fetch cauciones")
		return nil
	}
	return quotes
}

// Quote returns the quote for tenor days.
func (c *IOL) Quote(ctx context.Context, tenor int) (caucion.Quote, bool) {
	return lo.Find(c.Quotes(ctx), func(q caucion.Quote) bool {
		t, ok := q.Tenor()
		return ok && t == tenor
	})
}

func (c *IOL) fetchQuotes(ctx context.Context) ([]caucion.Quote, error) {
	if !c.Authenticated() {
		if err := c.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
	}

	status, payload, err := c.getQuotes(ctx)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Info().Msg("access token rejected, re-authenticating")
		if err := c.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("re-authenticate: %w", err)
		}
		status, payload, err = c.getQuotes(ctx)
		if err != nil {
			return nil, err
		}
	}

	if status != http.StatusOK {
		return nil, parseHTTPError(status, payload)
	}

	quotes, err := caucion.ParseQuotes(payload)
	if err != nil {
		return nil, fmt.Errorf("decode cauciones: %w", err)
	}

	c.logger.Debug().Int("count", len(quotes)).Msg("cauciones fetched")
	return quotes, nil
}

func (c *IOL) getQuotes(ctx context.Context) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.opts.QuotesPath, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create quotes request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send quotes request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read quotes response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type errorResponse struct {
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.ErrorDescription != "" {
			return fmt.Errorf("iol api error (%d): %s", status, apiErr.ErrorDescription)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("iol api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("iol api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("iol api error (%d): %s", status, snippet(payload))
	}
	return fmt.Errorf("iol api error (%d)", status)
}

func snippet(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	if len(s) > maxErrorSnippet {
		s = s[:maxErrorSnippet]
	}
	return s
}

var _ QuoteFetcher = (*IOL)(nil)
