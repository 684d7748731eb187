package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/infra"
)

// WebhookNotifier posts alert text to a chat room webhook.
// Observer callbacks only enqueue; a background goroutine does the HTTP work,
// so the session loop never waits on the network.
type WebhookNotifier struct {
	url        string
	queue      chan string
	httpClient *http.Client
	breaker    *infra.CircuitBreaker
	limiter    *infra.RateLimiter
	dropped    atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// postsPerMinute stays under the per-minute cap chat webhooks enforce.
const postsPerMinute = 30

// NewWebhookNotifier creates a notifier. An empty url yields a notifier that discards everything.
func NewWebhookNotifier(url string, queueSize int) *WebhookNotifier {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &WebhookNotifier{
		url:        url,
		queue:      make(chan string, queueSize),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("notify")),
		limiter:    infra.NewRateLimiter(postsPerMinute, time.Minute),
	}
}

// Breaker exposes the delivery circuit breaker.
func (n *WebhookNotifier) Breaker() *infra.CircuitBreaker {
	return n.breaker
}

// Enabled reports whether a webhook URL is configured.
func (n *WebhookNotifier) Enabled() bool {
	return n.url != ""
}

// Start launches the delivery goroutine.
func (n *WebhookNotifier) Start(ctx context.Context) {
	if !n.Enabled() {
		slog.Debug("Webhook notifier disabled")
		return
	}
	ctx, n.cancel = context.WithCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Notifier panic recovered", slog.Any("panic", r))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Notifier stopped")
				return
			case msg := <-n.queue:
				if err := n.post(ctx, msg); err != nil {
					slog.Warn("Webhook post failed", slog.Any("error", err))
				}
			}
		}
	}()
}

// Stop cancels delivery and waits for the goroutine. Queued messages are discarded.
func (n *WebhookNotifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
}

// Send enqueues a message without blocking. It reports false if the message was dropped.
func (n *WebhookNotifier) Send(msg string) bool {
	if !n.Enabled() {
		return false
	}
	select {
	case n.queue <- msg:
		return true
	default:
		n.dropped.Add(1)
		slog.Warn("NOTIFY_QUEUE_FULL", slog.Uint64("dropped", n.dropped.Load()))
		return false
	}
}

// Dropped is the number of messages discarded on a full queue.
func (n *WebhookNotifier) Dropped() uint64 {
	return n.dropped.Load()
}

func (n *WebhookNotifier) post(ctx context.Context, msg string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	return n.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBufferString(msg))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		req.Header.Set("User-Agent", infra.AppName)

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return fmt.Errorf("webhook status %d: %s", resp.StatusCode, body)
		}
		slog.Debug("Webhook message sent", slog.Int("status", resp.StatusCode))
		return nil
	}, nil)
}

func (n *WebhookNotifier) OnRangeSet(_ string, r domain.OpeningRange, plan domain.TradePlan) {
	n.Send(FormatRangeSet(r, plan))
}

func (n *WebhookNotifier) OnEntry(_ string, p domain.Position) {
	n.Send(FormatEntry(p))
}

func (n *WebhookNotifier) OnExit(o domain.TradeOutcome) {
	n.Send(FormatExit(o))
}

// OnSessionEnd alerts on sessions without a trade; traded sessions were already covered by OnExit.
func (n *WebhookNotifier) OnSessionEnd(r domain.SessionReport) {
	switch r.Status {
	case domain.StatusNoTrade:
		n.Send(FormatSkipDay(r.Reason, r.Range))
	case domain.StatusNoFill:
		n.Send(FormatNoFill(r.Date))
	}
}
