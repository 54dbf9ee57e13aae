package cloudbet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/oddbot/internal/adapters/metrics"
	"github.com/alejandrodnm/oddbot/internal/backoff"
	"github.com/alejandrodnm/oddbot/internal/clock"
	"github.com/alejandrodnm/oddbot/internal/ratelimit"
)

const (
	DefaultFeedBase    = "https://sports-api.cloudbet.com/pub/v2/odds"
	DefaultTradingBase = "https://sports-api.cloudbet.com/pub/v3/bets"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

var (
	// ErrNoResult indica que la llamada agotó sus intentos. Para el caller
	// significa "esta operación no ocurrió".
	ErrNoResult = errors.New("no result")

	// ErrMalformed indica una respuesta 2xx sin los campos esperados.
	ErrMalformed = errors.New("malformed response")
)

// RetryPolicy controla el backoff exponencial del executor.
type RetryPolicy = backoff.Policy

// DefaultRetryPolicy: 8 intentos, backoff 1s→600s, +1–5s de jitter.
func DefaultRetryPolicy() RetryPolicy { return backoff.DefaultPolicy() }

// Config agrupa todo lo que necesita el Client.
type Config struct {
	FeedBase    string
	TradingBase string
	APIKey      string
	Retry       RetryPolicy
	Gate        *ratelimit.Gate
	Clock       clock.Clock
	HTTPClient  *http.Client
}

// Client es el HTTP client de Cloudbet (feed + trading). Todas las llamadas
// pasan por el mismo Gate, incluidos los reintentos.
type Client struct {
	http        *http.Client
	feedBase    string
	tradingBase string
	apiKey      string
	retry       RetryPolicy
	gate        *ratelimit.Gate
	clock       clock.Clock
}

// NewClient crea un Client. Los campos vacíos de cfg toman los defaults de producción.
func NewClient(cfg Config) *Client {
	if cfg.FeedBase == "" {
		cfg.FeedBase = DefaultFeedBase
	}
	if cfg.TradingBase == "" {
		cfg.TradingBase = DefaultTradingBase
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Gate == nil {
		cfg.Gate = ratelimit.New(ratelimit.DefaultConfig(), cfg.Clock)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		http:        cfg.HTTPClient,
		feedBase:    cfg.FeedBase,
		tradingBase: cfg.TradingBase,
		apiKey:      cfg.APIKey,
		retry:       cfg.Retry,
		gate:        cfg.Gate,
		clock:       cfg.Clock,
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, endpoint, url string, out any) error {
	return c.doWithRetry(ctx, endpoint, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return req, nil
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, endpoint, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, endpoint, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

// doWithRetry ejecuta la request con backoff exponencial y jitter.
// 429 y cualquier otro fallo siguen la misma política; solo cambia el log.
// Al agotar los intentos devuelve un error que envuelve ErrNoResult.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, build func() (*http.Request, error), out any) error {
	wait := c.retry.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.gate.Acquire(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := build()
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			metrics.HTTPAttempts.WithLabelValues(endpoint, "error").Inc()
			slog.Error("provider request failed", "endpoint", endpoint, "attempt", attempt, "err", err)

		case resp.StatusCode == http.StatusTooManyRequests:
			drain(resp)
			lastErr = fmt.Errorf("rate limited (429)")
			metrics.HTTPAttempts.WithLabelValues(endpoint, "rate_limited").Inc()
			slog.Warn("rate limited by provider", "endpoint", endpoint, "attempt", attempt, "backoff", wait)

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
			metrics.HTTPAttempts.WithLabelValues(endpoint, "error").Inc()
			slog.Error("provider returned error status",
				"endpoint", endpoint,
				"attempt", attempt,
				"status", resp.StatusCode,
				"body", string(body),
			)

		default:
			metrics.HTTPAttempts.WithLabelValues(endpoint, "ok").Inc()
			defer resp.Body.Close()
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response: %w: %v", ErrMalformed, err)
			}
			return nil
		}

		if attempt == c.retry.MaxAttempts {
			break
		}

		if err := c.clock.Sleep(ctx, c.retry.Wait(wait)); err != nil {
			return err
		}
		wait = c.retry.Grow(wait)
	}

	metrics.HTTPGiveUps.WithLabelValues(endpoint).Inc()
	slog.Error("giving up on provider request",
		"endpoint", endpoint,
		"attempts", c.retry.MaxAttempts,
		"err", lastErr,
	)
	return fmt.Errorf("%s: %w after %d attempts: %v", endpoint, ErrNoResult, c.retry.MaxAttempts, lastErr)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
