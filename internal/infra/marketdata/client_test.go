package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/camera6912/orb-trader/internal/infra"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ny, _ = time.LoadLocation("America/New_York")

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:           srv.URL,
		Ticker:            "ES",
		APIKey:            "test-key",
		MaxRetries:        3,
		RequestsPerMinute: 60000,
		Location:          ny,
		Close:             16 * time.Hour,
	})
	require.NoError(t, err)
	return c
}

func barJSON(start time.Time, o, h, l, c string) string {
	return fmt.Sprintf(`{"t":%d,"o":%s,"h":%s,"l":%s,"c":%s,"v":12.0}`, start.UnixMilli(), o, h, l, c)
}

func TestClient_IntradayBars(t *testing.T) {
	open := time.Date(2024, 3, 1, 9, 30, 0, 0, ny)
	end := open.Add(15 * time.Minute)

	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		fmt.Fprintf(w, `{"status":"OK","resultsCount":3,"results":[%s,%s,%s]}`,
			barJSON(open, "4510.25", "4520", "4505.5", "4515"),
			barJSON(open.Add(time.Minute), "4515", "4518", "4500", "4502.75"),
			barJSON(end, "4502.75", "4530", "4502", "4528"), // outside the half-open window
		)
	}))
	defer srv.Close()

	bars, err := newTestClient(t, srv).IntradayBars(context.Background(), open, end)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.True(t, strings.HasPrefix(gotPath, "/v2/aggs/ticker/ES/range/1/minute/"))
	assert.Equal(t, "test-key", gotKey)
	assert.True(t, bars[0].Start.Equal(open))
	assert.Equal(t, quant.ToPrice(4510.25), bars[0].Open)
	assert.Equal(t, quant.ToPrice(4505.5), bars[0].Low)
	assert.Equal(t, quant.ToPrice(4502.75), bars[1].Close)
	assert.Equal(t, int64(12), bars[1].Volume)
}

func TestClient_ClosingBarMergesWindow(t *testing.T) {
	closeAt := time.Date(2024, 2, 29, 16, 0, 0, 0, ny)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"DELAYED","results":[%s,%s]}`,
			barJSON(closeAt.Add(-15*time.Minute), "4490", "4495", "4488", "4492"),
			barJSON(closeAt.Add(-time.Minute), "4492", "4501", "4491", "4500"),
		)
	}))
	defer srv.Close()

	bar, err := newTestClient(t, srv).ClosingBar(context.Background(), closeAt)
	require.NoError(t, err)
	assert.Equal(t, quant.ToPrice(4490), bar.Open)
	assert.Equal(t, quant.ToPrice(4501), bar.High)
	assert.Equal(t, quant.ToPrice(4488), bar.Low)
	assert.Equal(t, quant.ToPrice(4500), bar.Close)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	open := time.Date(2024, 3, 1, 9, 30, 0, 0, ny)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "upstream", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"status":"OK","results":[%s]}`, barJSON(open, "1", "2", "1", "2"))
	}))
	defer srv.Close()

	bars, err := newTestClient(t, srv).IntradayBars(context.Background(), open, open.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.IntradayBars(context.Background(), time.Now(), time.Now().Add(time.Minute))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, infra.StateClosed, c.Breaker().State())
}

func TestClient_EmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","resultsCount":0}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).IntradayBars(context.Background(), time.Now(), time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrNoBars)
}

func TestClient_BreakerOpensOnRepeatedFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.IntradayBars(ctx, time.Now(), time.Now().Add(time.Minute))
		require.Error(t, err)
	}
	assert.Equal(t, infra.StateOpen, c.Breaker().State())

	before := atomic.LoadInt32(&calls)
	_, err := c.IntradayBars(ctx, time.Now(), time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestNewClient_RequiresBaseURLAndTicker(t *testing.T) {
	_, err := NewClient(Config{Ticker: "ES"})
	assert.Error(t, err)
}
