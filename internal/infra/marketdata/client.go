package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/infra"
	"github.com/camera6912/orb-trader/internal/market"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/shopspring/decimal"
)

const (
	// Max results per aggregates request.
	maxLimit = 50000

	// Width of the window ClosingBar merges before the close.
	closingWindow = 15 * time.Minute
)

// ErrNoBars is returned when the API answers successfully with an empty window.
var ErrNoBars = errors.New("no bars in requested window")

// StatusError is a non-200 answer from the aggregates endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API status %d: %s", e.Code, e.Body)
}

// aggregatesResponse is the Polygon/Massive v2 aggregates payload.
// Prices stay json.Number so they are parsed without float rounding.
type aggregatesResponse struct {
	Status       string   `json:"status"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggBar `json:"results"`
	Error        string   `json:"error"`
}

type aggBar struct {
	T int64       `json:"t"` // Unix ms of bar start
	O json.Number `json:"o"`
	H json.Number `json:"h"`
	L json.Number `json:"l"`
	C json.Number `json:"c"`
	V json.Number `json:"v"`
}

// Config configures the REST client.
type Config struct {
	BaseURL    string
	Ticker     string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// Plan quota; the free aggregates tier allows 5 calls per minute.
	RequestsPerMinute int
	Backoff           infra.Backoff
	// Location and Close place the closing window for ClosingBar.
	Location *time.Location
	Close    time.Duration // offset from local midnight, e.g. 16h
}

// Client fetches one-minute history bars over REST.
// It implements the orchestrator's MarketData collaborator.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *infra.RateLimiter
	breaker *infra.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a history client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Ticker == "" {
		return nil, errors.New("market data client requires base URL and ticker")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 5
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Close <= 0 {
		cfg.Close = 16 * time.Hour
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: infra.NewRateLimiter(cfg.RequestsPerMinute, time.Minute),
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("market_data")),
		logger:  slog.Default().With("component", "market_data"),
	}, nil
}

// Breaker exposes the circuit breaker state for monitoring.
func (c *Client) Breaker() *infra.CircuitBreaker {
	return c.breaker
}

// IntradayBars returns one-minute bars with from <= Start < to.
func (c *Client) IntradayBars(ctx context.Context, from, to time.Time) ([]domain.Bar, error) {
	// The API range is inclusive on both ends; trim the upper bound afterwards.
	bars, err := c.fetch(ctx, from, to.Add(-time.Millisecond))
	if err != nil {
		return nil, err
	}

	out := bars[:0]
	for _, b := range bars {
		if !b.Start.Before(from) && b.Start.Before(to) {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoBars
	}
	return out, nil
}

// ClosingBar merges the last minutes before the close of day into one bar.
func (c *Client) ClosingBar(ctx context.Context, day time.Time) (domain.Bar, error) {
	d := day.In(c.cfg.Location)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.cfg.Location)
	closeAt := midnight.Add(c.cfg.Close)

	bars, err := c.IntradayBars(ctx, closeAt.Add(-closingWindow), closeAt)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("failed to fetch closing bars for %s: %w", d.Format(time.DateOnly), err)
	}
	bar, _ := market.Merge(bars)
	return bar, nil
}

func (c *Client) fetch(ctx context.Context, from, to time.Time) ([]domain.Bar, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.Backoff.Delay(attempt - 1)
			c.logger.Info("Retrying aggregates fetch", slog.Int("attempt", attempt), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var bars []domain.Bar
		err := c.breaker.Execute(func() error {
			var err error
			bars, err = c.doFetch(ctx, from, to)
			return err
		}, countsAsFailure)
		if err == nil {
			return bars, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("Aggregates fetch attempt failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return nil, fmt.Errorf("failed to fetch aggregates after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) doFetch(ctx context.Context, from, to time.Time) ([]domain.Bar, error) {
	rawURL := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/minute/%d/%d",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Ticker), from.UnixMilli(), to.UnixMilli())
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("adjusted", "true")
	q.Set("limit", strconv.Itoa(maxLimit))
	q.Set("sort", "asc")
	q.Set("apiKey", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", infra.AppName)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var data aggregatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode aggregates: %w", err)
	}
	// DELAYED plans still return usable bars.
	if data.Status != "OK" && data.Status != "DELAYED" {
		return nil, fmt.Errorf("API status not OK: %s %s", data.Status, data.Error)
	}

	bars := make([]domain.Bar, 0, len(data.Results))
	for _, r := range data.Results {
		b, err := r.toBar(c.cfg.Location)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func (r aggBar) toBar(loc *time.Location) (domain.Bar, error) {
	var b domain.Bar
	var err error
	b.Start = quant.FromMillis(r.T).Time().In(loc)
	if b.Open, err = quant.ParsePrice(r.O.String()); err != nil {
		return b, err
	}
	if b.High, err = quant.ParsePrice(r.H.String()); err != nil {
		return b, err
	}
	if b.Low, err = quant.ParsePrice(r.L.String()); err != nil {
		return b, err
	}
	if b.Close, err = quant.ParsePrice(r.C.String()); err != nil {
		return b, err
	}
	if r.V != "" {
		v, err := decimal.NewFromString(r.V.String())
		if err != nil {
			return b, fmt.Errorf("failed to parse volume %q: %w", r.V, err)
		}
		b.Volume = v.IntPart()
	}
	return b, nil
}

// countsAsFailure keeps caller cancellation and client errors from tripping the breaker.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
		return false
	}
	return true
}

func retryable(err error) bool {
	if errors.Is(err, infra.ErrCircuitOpen) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}
