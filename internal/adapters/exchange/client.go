package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/rotator/internal/domain"
)

const (
	defaultBaseURL = "https://api.binance.com"

	// Binance spot: 6000 de weight/min. Nos quedamos muy por debajo.
	defaultMarketRatePerSec = 10
	// Órdenes: 50/10s por cuenta → 2/s
	defaultOrderRatePerSec = 2

	defaultRequestTimeout = 10 * time.Second

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Config son los parámetros del adapter del exchange.
type Config struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	Account        string
	Quote          string   // moneda quote, p.ej. "USDT"
	Assets         []string // universo de assets, para el fee schedule
	RequestTimeout time.Duration
	RatePerSec     float64
	RecvWindow     time.Duration

	// Fees por defecto si el exchange no devuelve las de la cuenta.
	DefaultFees  domain.FeeRates
	FeeOverrides map[string]domain.FeeRates
	UseMaker     bool
	FeeDiscount  float64
}

// Client es el HTTP client del exchange con rate limiting y retries.
// Implementa ports.MarketData y ports.OrderPlacer.
type Client struct {
	http          *http.Client
	cfg           Config
	marketLimiter *rate.Limiter
	orderLimiter  *rate.Limiter
	now           func() time.Time

	mu      sync.Mutex
	symbols map[string]symbolInfo // symbol → filtros de exchangeInfo
}

// NewClient crea un Client. Campos vacíos de cfg toman los valores por defecto.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultMarketRatePerSec
	}
	if cfg.RecvWindow <= 0 {
		cfg.RecvWindow = 5 * time.Second
	}
	return &Client{
		http:          &http.Client{Timeout: cfg.RequestTimeout},
		cfg:           cfg,
		marketLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 5),
		orderLimiter:  rate.NewLimiter(defaultOrderRatePerSec, 2),
		now:           time.Now,
		symbols:       make(map[string]symbolInfo),
	}
}

// HasCredentials devuelve true si hay API key y secret configurados.
func (c *Client) HasCredentials() bool {
	return c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

func (c *Client) symbol(asset string) string {
	return asset + c.cfg.Quote
}

// APIError es una respuesta 4xx del exchange.
type APIError struct {
	Status int
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client error %d: code %d: %s", e.Status, e.Code, e.Msg)
}

// get hace un GET público con rate limiting y retries.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.doWithRetry(ctx, c.marketLimiter, maxRetries, func() (*http.Request, error) {
		u := c.cfg.BaseURL + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, out)
}

// doWithRetry ejecuta la request con backoff exponencial.
// retries = 0 desactiva los reintentos (órdenes: nunca se reenvían).
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, retries int, build func() (*http.Request, error), out any) error {
	for attempt := 0; attempt <= retries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := build()
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == retries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418 {
			slog.Warn("rate limited by exchange", "attempt", attempt+1, "status", resp.StatusCode)
			if attempt == retries {
				return fmt.Errorf("rate limited after %d retries", attempt)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			if attempt == retries {
				return &serverError{status: resp.StatusCode, body: string(body)}
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{Status: resp.StatusCode}
			if json.Unmarshal(body, apiErr) != nil || apiErr.Msg == "" {
				apiErr.Msg = string(body)
			}
			return apiErr
		}

		if readErr != nil {
			return fmt.Errorf("read response: %w", readErr)
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", retries)
}

type serverError struct {
	status int
	body   string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.status, e.body)
}

// isUnknownOutcome devuelve true si no sabemos si la request llegó a ejecutarse.
func isUnknownOutcome(err error) bool {
	var se *serverError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || isTimeout(err)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
