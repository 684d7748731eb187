package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_DeliversAlerts(t *testing.T) {
	received := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/plain; charset=utf-8", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		received <- string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 8)
	n.Start(context.Background())
	defer n.Stop()

	n.OnSessionEnd(domain.SessionReport{Date: "2024-03-01", Status: domain.StatusNoFill})
	n.OnExit(domain.TradeOutcome{
		Side: domain.SideLong, ExitReason: domain.CloseTarget,
		Entry: quant.ToPrice(4520.25), Exit: quant.ToPrice(4540.25), PnLPoints: quant.ToPrice(20),
	})

	for _, want := range []string{"💤 2024-03-01: no breakout", "✅ Target Hit! +20.00 pts"} {
		select {
		case got := <-received:
			assert.Contains(t, got, want)
		case <-time.After(2 * time.Second):
			t.Fatalf("message %q not delivered", want)
		}
	}
}

func TestWebhookNotifier_TradedSessionEndIsSilent(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1", 1)
	n.OnSessionEnd(domain.SessionReport{Status: domain.StatusTraded})
	assert.Len(t, n.queue, 0)
}

func TestWebhookNotifier_DropsWhenFull(t *testing.T) {
	// Not started: nothing drains the queue.
	n := NewWebhookNotifier("http://127.0.0.1:1", 1)
	require.True(t, n.Send("first"))
	assert.False(t, n.Send("second"))
	assert.Equal(t, uint64(1), n.Dropped())
}

func TestWebhookNotifier_DisabledWithoutURL(t *testing.T) {
	n := NewWebhookNotifier("", 4)
	assert.False(t, n.Enabled())
	assert.False(t, n.Send("ignored"))
	n.Start(context.Background())
	n.Stop()
}
