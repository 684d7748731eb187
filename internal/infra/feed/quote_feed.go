package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/camera6912/orb-trader/internal/event"
	"github.com/camera6912/orb-trader/internal/infra"
	"github.com/camera6912/orb-trader/pkg/quant"

	"github.com/gorilla/websocket"
)

// tradeMessage is one trade print from the quote stream.
// Uses json.Number so prices never pass through float64.
type tradeMessage struct {
	Type   string      `json:"type"` // "trade"
	Symbol string      `json:"symbol"`
	Price  json.Number `json:"price"`
	Size   int64       `json:"size"`
	Ts     int64       `json:"ts"` // Unix ms
}

type subscribeMessage struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

// QuoteFeed streams trades into the orchestrator inbox over an infra.WSWorker.
type QuoteFeed struct {
	base    *infra.WSWorker
	url     string
	symbols []string
	inbox   chan<- event.Event
	dropped atomic.Uint64
	onDrop  func()
}

// NewQuoteFeed creates a feed for symbols. onDrop, if set, is called for each tick dropped on a full inbox.
func NewQuoteFeed(url string, symbols []string, inbox chan<- event.Event, onDrop func()) *QuoteFeed {
	f := &QuoteFeed{
		url:     url,
		symbols: symbols,
		inbox:   inbox,
		onDrop:  onDrop,
	}
	f.base = infra.NewWSWorker(f)
	return f
}

// ID returns the worker identifier.
func (f *QuoteFeed) ID() string { return "QUOTES" }

// URL returns the stream endpoint.
func (f *QuoteFeed) URL() string { return f.url }

// Worker exposes the underlying connection manager (timeouts, state hook).
func (f *QuoteFeed) Worker() *infra.WSWorker { return f.base }

// Connect starts the WebSocket connection.
func (f *QuoteFeed) Connect(ctx context.Context) error {
	f.base.Start(ctx)
	return nil
}

// Disconnect terminates the connection.
func (f *QuoteFeed) Disconnect() {
	f.base.Stop()
}

// Dropped is the number of ticks discarded because the inbox was full.
func (f *QuoteFeed) Dropped() uint64 {
	return f.dropped.Load()
}

// Health reports the stream state including ticks lost to a full inbox.
func (f *QuoteFeed) Health() infra.StreamHealth {
	h := f.base.Health()
	h.Dropped = f.Dropped()
	return h
}

// OnConnect subscribes to the configured symbols.
func (f *QuoteFeed) OnConnect(ctx context.Context, w *infra.WSWorker) error {
	b, err := json.Marshal(subscribeMessage{Action: "subscribe", Symbols: f.symbols})
	if err != nil {
		return fmt.Errorf("failed to encode subscription: %w", err)
	}
	slog.Info("FEED_SUBSCRIBE", slog.Any("symbols", f.symbols))
	return w.Write(websocket.TextMessage, b)
}

// OnMessage turns trade prints into pooled TickEvents. Malformed frames are skipped.
func (f *QuoteFeed) OnMessage(ctx context.Context, msg []byte) {
	var m tradeMessage
	if err := json.Unmarshal(msg, &m); err != nil || m.Type != "trade" {
		return
	}
	price, err := quant.ParsePrice(m.Price.String())
	if err != nil || price <= 0 {
		slog.Debug("FEED_BAD_PRICE", slog.String("symbol", m.Symbol), slog.String("price", m.Price.String()))
		return
	}

	ev := event.AcquireTickEvent()
	ev.Ts = quant.FromMillis(m.Ts)
	ev.Symbol = m.Symbol
	ev.Price = price
	ev.Size = m.Size

	select {
	case f.inbox <- ev:
	default:
		// Drop if inbox is full, but release to pool to prevent leak.
		event.ReleaseTickEvent(ev)
		f.dropped.Add(1)
		if f.onDrop != nil {
			f.onDrop()
		}
	}
}
