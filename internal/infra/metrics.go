package infra

import (
	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes session outcomes to Prometheus:
//   - orb_sessions_total{status}            sessions by report status (traded|no_trade|no_fill)
//   - orb_trades_total{side}                entries filled
//   - orb_exit_reasons_total{reason,side}   exits split by reason
//   - orb_last_pnl_points                   P&L of the most recent closed trade
//   - orb_ticks_dropped_total               ticks discarded on a full inbox
//   - orb_feed_connected                    1 while the quote stream is up
//   - orb_breaker_state{name}               0 closed, 1 open, 2 half-open
//
// It implements the orchestrator Observer interface.
type Metrics struct {
	sessions      *prometheus.CounterVec
	trades        *prometheus.CounterVec
	exitReasons   *prometheus.CounterVec
	lastPnL       prometheus.Gauge
	ticksDropped  prometheus.Counter
	feedConnected prometheus.Gauge
	breakerState  *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "orb_sessions_total", Help: "Trading sessions by report status"},
			[]string{"status"},
		),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "orb_trades_total", Help: "Entries filled"},
			[]string{"side"},
		),
		exitReasons: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "orb_exit_reasons_total", Help: "Exits split by reason and side"},
			[]string{"reason", "side"},
		),
		lastPnL: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "orb_last_pnl_points", Help: "P&L in points of the last closed trade"},
		),
		ticksDropped: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "orb_ticks_dropped_total", Help: "Ticks dropped because the inbox was full"},
		),
		feedConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "orb_feed_connected", Help: "1 while the quote stream is connected"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "orb_breaker_state", Help: "Circuit breaker position: 0 closed, 1 open, 2 half-open"},
			[]string{"name"},
		),
	}
	reg.MustRegister(m.sessions, m.trades, m.exitReasons, m.lastPnL, m.ticksDropped, m.feedConnected, m.breakerState)
	return m
}

func (m *Metrics) OnRangeSet(string, domain.OpeningRange, domain.TradePlan) {}

func (m *Metrics) OnEntry(_ string, p domain.Position) {
	m.trades.WithLabelValues(string(p.Side)).Inc()
}

func (m *Metrics) OnExit(o domain.TradeOutcome) {
	m.exitReasons.WithLabelValues(string(o.ExitReason), string(o.Side)).Inc()
	m.lastPnL.Set(o.PnLPoints.Float64())
}

func (m *Metrics) OnSessionEnd(r domain.SessionReport) {
	m.sessions.WithLabelValues(string(r.Status)).Inc()
}

// TickDropped counts one tick lost on a full inbox.
func (m *Metrics) TickDropped() {
	m.ticksDropped.Inc()
}

// SetFeedConnected tracks the quote stream state.
func (m *Metrics) SetFeedConnected(up bool) {
	if up {
		m.feedConnected.Set(1)
	} else {
		m.feedConnected.Set(0)
	}
}

// BreakerStateChanged matches CircuitBreaker.OnStateChange.
func (m *Metrics) BreakerStateChanged(name string, _, to State) {
	m.breakerState.WithLabelValues(name).Set(float64(to))
}
