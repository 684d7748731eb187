package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/infra"
	"github.com/camera6912/orb-trader/internal/infra/marketdata"
	"github.com/camera6912/orb-trader/internal/notify"
	"github.com/camera6912/orb-trader/internal/storage"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trading:\n  target_points: 15\n  eod: \"15:45\"\n"), 0644))

	cfg, err := ProvideConfig(ConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, 15.0, cfg.Trading.TargetPoints)
	assert.Equal(t, "15:45", cfg.Trading.EOD)
	assert.Equal(t, "09:30", cfg.Trading.Open, "defaults survive a partial file")

	_, err = ProvideConfig(ConfigPath(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestProvideSchedule(t *testing.T) {
	cfg := infra.DefaultConfig()
	cfg.Calendar.Holidays = []string{"2024-03-29"}

	s, err := ProvideSchedule(cfg)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", s.Loc.String())
	assert.Equal(t, "09:45", s.RangeEnd.String())
	assert.False(t, s.IsTradingDay(time.Date(2024, 3, 29, 12, 0, 0, 0, s.Loc)))

	cfg.Trading.RangeEnd = "09:15"
	_, err = ProvideSchedule(cfg)
	assert.Error(t, err, "range end before open")
}

func TestProvidePlanConfig(t *testing.T) {
	cfg := infra.DefaultConfig()
	cfg.Trading.TickSize = 0.25

	p := ProvidePlanConfig(cfg)
	assert.Equal(t, quant.Points(20), p.TargetPoints)
	assert.Equal(t, quant.Points(20), p.StopWidenThreshold)
	assert.Equal(t, quant.ToPrice(0.25), p.TickSize)
}

func TestProvideDayFilter_RejectsBadEventDate(t *testing.T) {
	cfg := infra.DefaultConfig()
	cfg.Calendar.EventDays = []string{"2024-13-01"}
	_, err := ProvideDayFilter(cfg)
	assert.Error(t, err)
}

func TestProvideMarketData(t *testing.T) {
	cfg := infra.DefaultConfig()
	s, err := ProvideSchedule(cfg)
	require.NoError(t, err)

	md, err := ProvideMarketData(cfg, s)
	require.NoError(t, err)
	assert.Nil(t, md, "no REST URL means tick-only ranges")

	cfg.MarketData.RestURL = "https://api.example.com"
	cfg.MarketData.Ticker = "ES"
	md, err = ProvideMarketData(cfg, s)
	require.NoError(t, err)
	assert.IsType(t, &marketdata.Client{}, md)
}

func TestWatchBreakers(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(reg)
	notifier := notify.NewWebhookNotifier("", 1)

	watchBreakers(metrics, nil, notifier, "not guarded")
	notifier.Breaker().Reset() // closed already: no transition, no series

	n, err := testutil.GatherAndCount(reg, "orb_breaker_state")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 5; i++ {
		_ = notifier.Breaker().Execute(func() error { return assert.AnError }, nil)
	}
	n, err = testutil.GatherAndCount(reg, "orb_breaker_state")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "opening the notify breaker exports its state")
}

func TestWorkspace_Resolve(t *testing.T) {
	ws := &Workspace{Root: "/w", DataDir: "/w/data/paper"}
	assert.Equal(t, filepath.Join("/w/data/paper", "events.db"), ws.Resolve("events.db"))
	assert.Equal(t, "/abs/events.db", ws.Resolve("/abs/events.db"))
	assert.Equal(t, "", ws.Resolve(""))
}

func TestExporter_Export(t *testing.T) {
	store, err := storage.NewEventStore(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.SaveReport(ctx, domain.SessionReport{Date: "2024-03-01", Status: domain.StatusNoFill, Reason: "no_breakout"})
	require.NoError(t, err)
	_, err = store.SaveReport(ctx, domain.SessionReport{Date: "2024-03-04", Status: domain.StatusNoTrade, Reason: "gap_day"})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "reports.csv")
	n, err := (&Exporter{Store: store}).Export(ctx, out, "csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2024-03-01,no_fill,no_breakout"))

	_, err = (&Exporter{Store: store}).Export(ctx, out, "xml")
	assert.Error(t, err)
}
