package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Write between connections.
var ErrNotConnected = errors.New("stream not connected")

// StreamHandler is the feed-specific half of a WSWorker.
type StreamHandler interface {
	ID() string
	URL() string
	// OnConnect runs once per connection before reading starts (subscribe here).
	OnConnect(ctx context.Context, w *WSWorker) error
	// OnMessage is called from the read goroutine; it must not block.
	OnMessage(ctx context.Context, msg []byte)
}

// StreamHealth is a point-in-time view of a stream for the status server.
type StreamHealth struct {
	ID          string    `json:"id"`
	Connected   bool      `json:"connected"`
	Reconnects  uint64    `json:"reconnects"`
	LastMessage time.Time `json:"last_message"`
	Dropped     uint64    `json:"dropped"`
}

// WSWorker keeps one websocket stream alive: dial, subscribe, read, and
// reconnect with backoff until stopped. Protocol pings keep idle streams open;
// a stream that stays silent past ReadTimeout is dropped and redialed.
type WSWorker struct {
	handler StreamHandler

	ReadTimeout     time.Duration
	PingInterval    time.Duration
	Backoff         Backoff
	UserAgent       string
	MaxMessageBytes int64
	// OnStateChange, if set, is called from the worker goroutine on connect and disconnect.
	OnStateChange func(connected bool)

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // guards conn
	conn    *websocket.Conn
	writeMu sync.Mutex

	reconnects  atomic.Uint64
	lastMessage atomic.Int64 // unix nanos
}

// NewWSWorker creates a worker for handler.
func NewWSWorker(handler StreamHandler) *WSWorker {
	return &WSWorker{
		handler:         handler,
		ReadTimeout:     60 * time.Second,
		PingInterval:    20 * time.Second,
		Backoff:         DefaultBackoff,
		UserAgent:       AppName + "/1.0",
		MaxMessageBytes: 1 << 20,
	}
}

// Start launches the connection loop.
func (w *WSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop closes the stream and waits for the worker goroutines.
func (w *WSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.drop()
	w.wg.Wait()
}

// Connected reports whether a stream is open.
func (w *WSWorker) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

// Reconnects counts streams that ended while the worker was running.
func (w *WSWorker) Reconnects() uint64 {
	return w.reconnects.Load()
}

// LastMessage is when the last frame arrived, zero before the first.
func (w *WSWorker) LastMessage() time.Time {
	ns := w.lastMessage.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Health reports the stream state. Dropped is left to the handler.
func (w *WSWorker) Health() StreamHealth {
	return StreamHealth{
		ID:          w.handler.ID(),
		Connected:   w.Connected(),
		Reconnects:  w.Reconnects(),
		LastMessage: w.LastMessage(),
	}
}

// Write sends one frame on the current stream.
func (w *WSWorker) Write(msgType int, data []byte) error {
	w.mu.Lock()
	c := w.conn
	w.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return c.WriteMessage(msgType, data)
}

func (w *WSWorker) run(ctx context.Context) {
	defer w.wg.Done()

	for attempt := 0; ctx.Err() == nil; {
		conn, err := w.dial(ctx)
		if err != nil {
			delay := w.Backoff.Delay(attempt)
			attempt++
			slog.Warn("FEED_DIAL_FAILED",
				slog.String("id", w.handler.ID()),
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", delay),
				slog.Any("error", err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		w.serve(ctx, conn)
		if ctx.Err() == nil {
			w.reconnects.Add(1)
		}
	}
}

func (w *WSWorker) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", w.UserAgent)

	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", w.handler.URL(), err)
	}
	if w.MaxMessageBytes > 0 {
		conn.SetReadLimit(w.MaxMessageBytes)
	}
	conn.SetPongHandler(func(string) error {
		w.extendDeadline(conn)
		return nil
	})

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, w); err != nil {
		w.drop()
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}
	return conn, nil
}

// serve reads until the stream fails or ctx ends.
func (w *WSWorker) serve(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("FEED_CONNECTED", slog.String("id", w.handler.ID()), slog.Uint64("reconnects", w.reconnects.Load()))
	w.notify(true)
	defer w.notify(false)

	if w.PingInterval > 0 {
		w.wg.Add(1)
		go w.keepAlive(connCtx, conn)
	}

	for {
		w.extendDeadline(conn)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("FEED_DISCONNECTED", slog.String("id", w.handler.ID()), slog.Any("error", err))
			}
			w.drop()
			return
		}
		w.lastMessage.Store(time.Now().UnixNano())
		w.handler.OnMessage(connCtx, msg)
	}
}

func (w *WSWorker) keepAlive(ctx context.Context, conn *websocket.Conn) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			w.writeMu.Unlock()
			if err != nil {
				slog.Warn("FEED_PING_FAILED", slog.String("id", w.handler.ID()), slog.Any("error", err))
				conn.Close() // fails the pending read; serve cleans up
				return
			}
		}
	}
}

func (w *WSWorker) extendDeadline(conn *websocket.Conn) {
	if w.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
	}
}

func (w *WSWorker) notify(connected bool) {
	if w.OnStateChange != nil {
		w.OnStateChange(connected)
	}
}

func (w *WSWorker) drop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
