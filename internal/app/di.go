package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/camera6912/orb-trader/internal/engine"
	"github.com/camera6912/orb-trader/internal/execution"
	"github.com/camera6912/orb-trader/internal/infra"
	"github.com/camera6912/orb-trader/internal/infra/feed"
	"github.com/camera6912/orb-trader/internal/infra/marketdata"
	"github.com/camera6912/orb-trader/internal/notify"
	"github.com/camera6912/orb-trader/internal/status"
	"github.com/camera6912/orb-trader/internal/storage"
	"github.com/camera6912/orb-trader/internal/strategy"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideEventStore opens the journal database. The cleanup closes it.
func ProvideEventStore(cfg *infra.Config, ws *Workspace) (*storage.EventStore, func(), error) {
	path := ws.Resolve(cfg.Storage.DBFile)
	store, err := storage.NewEventStore(path)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("✅ EventStore initialized (WAL-mode)", "path", path)

	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close EventStore", slog.Any("error", err))
		}
	}
	return store, cleanup, nil
}

// ProvideSchedule builds the session clock from the trading section.
func ProvideSchedule(cfg *infra.Config) (engine.Schedule, error) {
	loc, err := time.LoadLocation(cfg.Trading.Timezone)
	if err != nil {
		return engine.Schedule{}, fmt.Errorf("failed to load time zone: %w", err)
	}

	s := engine.Schedule{Loc: loc, Holidays: make(map[string]bool, len(cfg.Calendar.Holidays))}
	for _, c := range []struct {
		dst *engine.ClockTime
		src string
	}{
		{&s.Open, cfg.Trading.Open},
		{&s.RangeEnd, cfg.Trading.RangeEnd},
		{&s.Breakeven, cfg.Trading.Breakeven},
		{&s.EOD, cfg.Trading.EOD},
	} {
		if *c.dst, err = engine.ParseClock(c.src); err != nil {
			return engine.Schedule{}, err
		}
	}
	for _, d := range cfg.Calendar.Holidays {
		s.Holidays[d] = true
	}

	if err := s.Validate(); err != nil {
		return engine.Schedule{}, err
	}
	return s, nil
}

// ProvidePlanConfig converts the bracket settings to fixed-point.
func ProvidePlanConfig(cfg *infra.Config) strategy.PlanConfig {
	return strategy.PlanConfig{
		TargetPoints:       quant.ToPrice(cfg.Trading.TargetPoints),
		StopWidenThreshold: quant.ToPrice(cfg.Trading.StopWidenAbove),
		TickSize:           quant.ToPrice(cfg.Trading.TickSize),
	}
}

// ProvideDayFilter wires the static event calendar into the day filter.
func ProvideDayFilter(cfg *infra.Config) (*strategy.DayFilter, error) {
	cal, err := strategy.NewStaticCalendar(cfg.Calendar.EventDays)
	if err != nil {
		return nil, err
	}
	slog.Info("Event calendar loaded", slog.Int("event_days", cal.Len()))

	return strategy.NewDayFilter(cal, strategy.FilterConfig{
		GapThresholdPct:   cfg.Filters.GapThresholdPct,
		CheckRangeOverlap: cfg.Filters.CheckRangeOverlap,
		MaxRangePoints:    quant.ToPrice(cfg.Filters.MaxRangePoints),
	}), nil
}

// ProvideMarketData returns the REST history client, or nil when no endpoint
// is configured (the range then comes from aggregated ticks).
func ProvideMarketData(cfg *infra.Config, sched engine.Schedule) (engine.MarketData, error) {
	if cfg.MarketData.RestURL == "" {
		slog.Warn("No market data REST URL configured, opening range will use live ticks only")
		return nil, nil
	}

	eod := sched.EOD
	c, err := marketdata.NewClient(marketdata.Config{
		BaseURL:           cfg.MarketData.RestURL,
		Ticker:            cfg.MarketData.Ticker,
		APIKey:            cfg.MarketData.APIKey,
		Timeout:           time.Duration(cfg.MarketData.TimeoutSec) * time.Second,
		MaxRetries:        cfg.MarketData.MaxRetries,
		RequestsPerMinute: cfg.MarketData.RequestsPerMinute,
		Backoff:           infra.Backoff{Base: 500 * time.Millisecond, Max: 5 * time.Second},
		Location:          sched.Loc,
		Close:             time.Duration(eod.Hour)*time.Hour + time.Duration(eod.Minute)*time.Minute,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ProvideRegistry creates the process metrics registry.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) *infra.Metrics {
	return infra.NewMetrics(reg)
}

func ProvideNotifier(cfg *infra.Config) *notify.WebhookNotifier {
	return notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.QueueSize)
}

func ProvideSnapshots(cfg *infra.Config, ws *Workspace) *storage.SnapshotManager {
	return storage.NewSnapshotManager(ws.Resolve(cfg.Storage.SnapshotDir))
}

func ProvideEngine(cfg *infra.Config) (execution.Engine, error) {
	return execution.New(cfg.Trading.Mode)
}

// ProvideOrchestrator assembles the session loop with its collaborators and observers.
func ProvideOrchestrator(
	cfg *infra.Config,
	ws *Workspace,
	store *storage.EventStore,
	eng execution.Engine,
	filter *strategy.DayFilter,
	history engine.MarketData,
	sched engine.Schedule,
	plan strategy.PlanConfig,
	snaps *storage.SnapshotManager,
	metrics *infra.Metrics,
	notifier *notify.WebhookNotifier,
) (*engine.Orchestrator, error) {
	watchBreakers(metrics, history, notifier)

	return engine.NewOrchestrator(engine.Options{
		InboxSize:         cfg.Trading.InboxSize,
		Journal:           store,
		Engine:            eng,
		Filter:            filter,
		History:           history,
		HistoryTimeout:    time.Duration(cfg.MarketData.TimeoutSec) * time.Second,
		Plan:              plan,
		Schedule:          sched,
		BarInterval:       time.Duration(cfg.Trading.BarIntervalSec) * time.Second,
		Observers:         []engine.Observer{metrics, notifier},
		Snapshots:         snaps,
		SnapshotKeep:      cfg.Storage.SnapshotKeep,
		HeartbeatInterval: cfg.HeartbeatInterval(),
		DumpPath:          ws.Resolve(cfg.Storage.PanicDumpFile),
	})
}

// breakerOwner is a collaborator guarded by a circuit breaker.
type breakerOwner interface {
	Breaker() *infra.CircuitBreaker
}

// watchBreakers exports the breaker position of every guarded collaborator.
func watchBreakers(metrics *infra.Metrics, owners ...any) {
	for _, o := range owners {
		if b, ok := o.(breakerOwner); ok {
			b.Breaker().OnStateChange(metrics.BreakerStateChanged)
		}
	}
}

// ProvideQuoteFeed connects the tick stream to the orchestrator inbox. It
// returns nil when no stream is configured; heartbeats still drive the session.
func ProvideQuoteFeed(cfg *infra.Config, orch *engine.Orchestrator, metrics *infra.Metrics) *feed.QuoteFeed {
	if cfg.Feed.WSURL == "" {
		return nil
	}
	f := feed.NewQuoteFeed(cfg.Feed.WSURL, cfg.Feed.Symbols, orch.Inbox(), metrics.TickDropped)
	f.Worker().OnStateChange = metrics.SetFeedConnected
	return f
}

// ProvideStatusServer returns nil when the status server is disabled.
func ProvideStatusServer(cfg *infra.Config, orch *engine.Orchestrator, store *storage.EventStore, qf *feed.QuoteFeed, reg *prometheus.Registry) *status.Server {
	if !cfg.Status.Enabled {
		return nil
	}
	s := status.NewServer(orch, store, reg, cfg.App.Version)
	if qf != nil {
		s.SetFeed(qf)
	}
	return s
}
