package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/event"
	"github.com/camera6912/orb-trader/internal/execution"
	"github.com/camera6912/orb-trader/internal/market"
	"github.com/camera6912/orb-trader/internal/storage"
	"github.com/camera6912/orb-trader/internal/strategy"
	"github.com/camera6912/orb-trader/pkg/quant"
)

// Options wires the orchestrator's collaborators. Journal, History, Filter and
// Snapshots may be nil.
type Options struct {
	InboxSize         int
	Journal           Journal
	Engine            execution.Engine
	Filter            *strategy.DayFilter
	History           MarketData
	HistoryTimeout    time.Duration
	Plan              strategy.PlanConfig
	Schedule          Schedule
	BarInterval       time.Duration
	Observers         []Observer
	Snapshots         *storage.SnapshotManager
	SnapshotKeep      int
	Clock             Clock
	HeartbeatInterval time.Duration
	DumpPath          string
}

// Orchestrator is the single-threaded session driver. Only the goroutine running
// Run (or calling Process) mutates the session; everyone else reads Snapshot.
type Orchestrator struct {
	opts    Options
	inbox   chan event.Event
	nextSeq uint64
	logger  *slog.Logger

	state     *domain.SessionState
	times     SessionTimes
	agg       *market.BarAggregator
	replaying bool

	mu        sync.RWMutex // guards published
	published *domain.SessionState
}

// NewOrchestrator creates an orchestrator. Engine and Schedule.Loc are required.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Engine == nil {
		return nil, errors.New("orchestrator requires an execution engine")
	}
	if err := opts.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate schedule: %w", err)
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.DumpPath == "" {
		opts.DumpPath = "panic_dump.json"
	}

	return &Orchestrator{
		opts:    opts,
		inbox:   make(chan event.Event, opts.InboxSize),
		nextSeq: 1,
		logger:  slog.Default().With("component", "orchestrator"),
		agg:     market.NewBarAggregator(opts.BarInterval),
	}, nil
}

// Inbox returns the event channel. Producers must send without blocking.
func (o *Orchestrator) Inbox() chan<- event.Event {
	return o.inbox
}

// NextSeq is the sequence number the next event will receive.
func (o *Orchestrator) NextSeq() uint64 {
	return o.nextSeq
}

// Run is the main loop. It MUST be run in a single goroutine.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("Orchestrator started (single-thread session loop)",
		slog.Duration("heartbeat", o.opts.HeartbeatInterval))

	var beats <-chan time.Time
	if o.opts.HeartbeatInterval > 0 {
		t := time.NewTicker(o.opts.HeartbeatInterval)
		defer t.Stop()
		beats = t.C
	}

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Orchestrator stopping...")
			return
		case ev := <-o.inbox:
			o.Process(ev)
			if t, ok := ev.(*event.TickEvent); ok {
				event.ReleaseTickEvent(t)
			}
		case <-beats:
			o.Process(event.NewHeartbeat(quant.FromTime(o.opts.Clock.Now())))
		}
	}
}

// Process stamps, journals and applies one event, then publishes the new snapshot.
func (o *Orchestrator) Process(ev event.Event) {
	ev.SetSeq(o.nextSeq)
	o.nextSeq++

	now := ev.GetTs().Time()
	if o.opts.Journal != nil {
		if err := o.opts.Journal.SaveEvent(context.Background(), o.opts.Schedule.SessionDate(now), ev); err != nil {
			o.logger.Error("PERSISTENCE_FAILURE", slog.Uint64("seq", ev.GetSeq()), slog.Any("error", err))
		}
	}

	o.apply(ev, now)
	o.publish(ev.GetSeq())
}

// RecoverFromWAL rebuilds today's session by replaying its journaled events
// through the same code path as live processing. Observers are not notified.
func (o *Orchestrator) RecoverFromWAL(ctx context.Context, now time.Time) error {
	if o.opts.Journal == nil {
		slog.Info("No journal configured, starting fresh")
		return nil
	}

	lastSeq, err := o.opts.Journal.GetLastSeq(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last seq: %w", err)
	}
	o.nextSeq = lastSeq + 1

	session := o.opts.Schedule.SessionDate(now)
	events, err := o.opts.Journal.LoadSessionEvents(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to load session events: %w", err)
	}
	if len(events) == 0 {
		slog.Info("WAL has no events for today, starting fresh", slog.String("session", session))
		return nil
	}

	slog.Info("Replaying events from WAL", slog.String("session", session), slog.Int("count", len(events)))

	snap := o.latestSnapshot(session)

	o.replaying = true
	defer func() { o.replaying = false }()
	for _, ev := range events {
		o.apply(ev, ev.GetTs().Time())
		o.publish(ev.GetSeq())
		if snap != nil && ev.GetSeq() == snap.Seq {
			o.checkSnapshot(snap)
		}
	}

	slog.Info("State recovered from WAL",
		slog.Uint64("next_seq", o.nextSeq),
		slog.String("phase", string(o.state.Phase)))
	return nil
}

// latestSnapshot returns the newest status file for session, or nil.
func (o *Orchestrator) latestSnapshot(session string) *storage.Snapshot {
	if o.opts.Snapshots == nil {
		return nil
	}
	snap, err := o.opts.Snapshots.LoadLatest()
	if err != nil {
		o.logger.Warn("Failed to load status snapshot", slog.Any("error", err))
		return nil
	}
	if snap == nil || snap.State.Date != session {
		return nil
	}
	return snap
}

// checkSnapshot compares the replayed state with a status file written at the same seq.
// The journal wins; a mismatch only means the file is stale or was edited.
func (o *Orchestrator) checkSnapshot(snap *storage.Snapshot) {
	if o.state == nil {
		return
	}
	if snap.State.Phase != o.state.Phase || snap.State.TradesTaken != o.state.TradesTaken {
		o.logger.Warn("SNAPSHOT_MISMATCH",
			slog.Uint64("seq", snap.Seq),
			slog.String("snapshot_phase", string(snap.State.Phase)),
			slog.String("replayed_phase", string(o.state.Phase)))
		return
	}
	o.logger.Debug("SNAPSHOT_VERIFIED", slog.Uint64("seq", snap.Seq))
}

// Snapshot returns a deep copy of the current session. ok is false before the first event.
func (o *Orchestrator) Snapshot() (domain.SessionState, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.published == nil {
		return domain.SessionState{}, false
	}
	return o.published.Clone(), true
}

func (o *Orchestrator) apply(ev event.Event, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("CRITICAL_PANIC_DETECTED", slog.Uint64("seq", ev.GetSeq()), slog.Any("panic", r))
			o.DumpState(o.opts.DumpPath)
			o.quarantine(now)
		}
	}()

	if !o.roll(now) {
		return
	}

	var tick *event.TickEvent
	if t, ok := ev.(*event.TickEvent); ok {
		tick = t
		if !o.state.Phase.Terminal() {
			o.agg.Add(now, t.Price, t.Size)
		}
	}

	o.progress(now)
	o.step(tick, now)
	o.finish()
}

// quarantine ends a session whose step panicked. An open position is left for EOD.
func (o *Orchestrator) quarantine(now time.Time) {
	st := o.state
	if st == nil || st.Phase.Terminal() {
		return
	}
	if st.Position != nil && st.Position.IsOpen() {
		o.logger.Warn("PANIC_WITH_OPEN_POSITION", slog.String("date", st.Date), slog.String("side", string(st.Position.Side)))
		return
	}
	for i := range st.Orders {
		st.Orders[i].Cancel(now)
	}
	st.MarkNoTrade(domain.ReasonInternalError)
	o.finish()
}

// roll starts a new session when the exchange-local date moves forward.
// It reports false for an event stamped before the current session, which is skipped.
func (o *Orchestrator) roll(now time.Time) bool {
	date := o.opts.Schedule.SessionDate(now)
	if o.state != nil {
		if o.state.Date == date {
			return true
		}
		// Session dates are YYYY-MM-DD, so string order is calendar order.
		if date < o.state.Date {
			o.logger.Debug("LATE_EVENT_SKIPPED", slog.String("event_date", date), slog.String("session", o.state.Date))
			return false
		}
	}

	if prev := o.state; prev != nil && !prev.Phase.Terminal() {
		o.logger.Warn("SESSION_ROLLED_BEFORE_EOD", slog.String("date", prev.Date), slog.String("phase", string(prev.Phase)))
		if prev.Phase == domain.PhaseWaitingForOpen || prev.Phase == domain.PhaseBuildingRange {
			prev.MarkNoTrade(domain.ReasonInsufficientData)
		} else {
			o.observeStep(o.opts.Engine.Advance(prev, execution.Input{Kind: execution.InputEOD, At: o.times.EOD}))
		}
		o.finish()
	}

	o.state = domain.NewSessionState(date)
	o.times = o.opts.Schedule.Times(now)
	o.agg.Reset()

	if !o.opts.Schedule.IsTradingDay(now) {
		o.state.MarkNoTrade(domain.ReasonMarketClosed)
		// Nothing to report for days the market never opened.
		o.state.Reported = true
		o.logger.Info("SESSION_MARKET_CLOSED", slog.String("date", date))
		return true
	}
	o.logger.Info("SESSION_STARTED", slog.String("date", date))
	return true
}

// progress applies the time-driven phase transitions up to the range close.
func (o *Orchestrator) progress(now time.Time) {
	st := o.state
	if st.Phase == domain.PhaseWaitingForOpen && !now.Before(o.times.Open) {
		st.Phase = domain.PhaseBuildingRange
		o.logger.Info("RANGE_BUILDING", slog.String("date", st.Date))
	}
	if st.Phase == domain.PhaseBuildingRange && !now.Before(o.times.RangeEnd) {
		o.closeRange(now)
	}
}

// closeRange computes the opening range, runs the day filter and arms the entries.
func (o *Orchestrator) closeRange(now time.Time) {
	st := o.state
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.HistoryTimeout)
	defer cancel()

	bars := o.rangeBars(ctx)
	r, err := strategy.ComputeOpeningRange(bars, o.times.Open, o.times.RangeEnd)
	if err != nil {
		o.logger.Warn("RANGE_UNAVAILABLE", slog.String("date", st.Date), slog.Any("error", err))
		st.MarkNoTrade(domain.ReasonInsufficientData)
		return
	}
	st.OpeningRange = &r
	o.logger.Info("RANGE_SET",
		slog.String("date", st.Date),
		slog.String("high", r.High.String()),
		slog.String("low", r.Low.String()),
		slog.String("size", r.Size().String()))

	if o.opts.Filter != nil {
		d := o.opts.Filter.Evaluate(ctx, o.filterInput(ctx, bars, r))
		if !d.Trade {
			st.FilteredOut = true
			st.FilterReason = d.Reason
			st.MarkNoTrade(domain.ReasonFiltered)
			o.logger.Info("SESSION_FILTERED",
				slog.String("date", st.Date),
				slog.String("reason", d.Reason),
				slog.String("gap_pct", d.GapPct.StringFixed(2)))
			return
		}
	}

	plan, err := strategy.BuildPlan(r, o.opts.Plan)
	if err != nil {
		var dr *domain.DegenerateRangeError
		if errors.As(err, &dr) {
			st.MarkNoTrade(domain.ReasonDegenerateRange)
		} else {
			st.MarkNoTrade(domain.ReasonInternalError)
		}
		o.logger.Warn("PLAN_REJECTED", slog.String("date", st.Date), slog.Any("error", err))
		return
	}

	if err := o.opts.Engine.Arm(st, plan, now); err != nil {
		o.logger.Warn("ENTRY_REFUSED", slog.String("date", st.Date), slog.Any("error", err))
		return
	}
	o.notify(func(obs Observer) { obs.OnRangeSet(st.Date, r, plan) })
}

// rangeBars asks the history collaborator first and falls back to aggregated ticks.
func (o *Orchestrator) rangeBars(ctx context.Context) []domain.Bar {
	if o.opts.History != nil {
		bars, err := o.opts.History.IntradayBars(ctx, o.times.Open, o.times.RangeEnd)
		if err == nil && len(bars) > 0 {
			return bars
		}
		o.logger.Warn("HISTORY_FALLBACK_TO_TICKS", slog.String("date", o.state.Date), slog.Any("error", err))
	}
	return o.agg.Between(o.times.Open, o.times.RangeEnd)
}

func (o *Orchestrator) filterInput(ctx context.Context, bars []domain.Bar, r domain.OpeningRange) strategy.FilterInput {
	in := strategy.FilterInput{Day: o.times.Open, Range: &r}

	for _, b := range bars {
		if !b.Start.Before(o.times.Open) && b.Start.Before(o.times.RangeEnd) {
			open := b.Open
			in.TodayOpen = &open
			break
		}
	}

	if o.opts.History != nil {
		prior := o.opts.Schedule.PreviousTradingDay(o.times.Open)
		cb, err := o.opts.History.ClosingBar(ctx, prior)
		if err != nil {
			o.logger.Warn("PRIOR_CLOSE_UNAVAILABLE", slog.String("prior_day", o.opts.Schedule.SessionDate(prior)), slog.Any("error", err))
		} else {
			closePrice := cb.Close
			in.PriorClose = &closePrice
			in.PriorClosingBar = &cb
		}
	}
	return in
}

// step runs the engine in priority order: EOD, then the tick (stop, target, entry), then breakeven.
func (o *Orchestrator) step(tick *event.TickEvent, now time.Time) {
	st := o.state
	eng := o.opts.Engine

	if !st.Phase.Terminal() && !now.Before(o.times.EOD) {
		in := execution.Input{Kind: execution.InputEOD, At: now}
		if tick != nil {
			in.Price, in.Priced = tick.Price, true
		}
		o.observeStep(eng.Advance(st, in))
		return
	}

	if tick != nil {
		switch st.Phase {
		case domain.PhaseAwaitingEntry, domain.PhaseLongOpen, domain.PhaseShortOpen, domain.PhaseClosed:
			o.observeStep(eng.Advance(st, execution.Input{Kind: execution.InputTick, Price: tick.Price, Priced: true, At: now}))
		default:
			st.LastPrice, st.HasPrice, st.LastUpdate = tick.Price, true, now
		}
	}

	if !st.BreakevenChecked && !now.Before(o.times.Breakeven) {
		switch st.Phase {
		case domain.PhaseAwaitingEntry, domain.PhaseLongOpen, domain.PhaseShortOpen:
			o.observeStep(eng.Advance(st, execution.Input{Kind: execution.InputBreakeven, At: now}))
		}
	}
}

func (o *Orchestrator) observeStep(s execution.Step) {
	date := o.state.Date
	if s.Entered != nil {
		p := *s.Entered
		o.notify(func(obs Observer) { obs.OnEntry(date, p) })
	}
	if s.Exited != nil {
		out := *s.Exited
		o.notify(func(obs Observer) { obs.OnExit(out) })
	}
}

// finish persists and announces the report once the session is terminal.
func (o *Orchestrator) finish() {
	st := o.state
	if st == nil || !st.Phase.Terminal() || st.Reported {
		return
	}
	st.Reported = true
	report := st.Report()

	if o.opts.Journal != nil {
		// First write wins, so a replayed session never overwrites its report.
		if _, err := o.opts.Journal.SaveReport(context.Background(), report); err != nil {
			o.logger.Error("REPORT_PERSIST_FAILED", slog.String("date", report.Date), slog.Any("error", err))
		}
	}

	o.logger.Info("SESSION_REPORT",
		slog.String("date", report.Date),
		slog.String("status", string(report.Status)),
		slog.String("reason", report.Reason))
	o.notify(func(obs Observer) { obs.OnSessionEnd(report) })
}

func (o *Orchestrator) notify(fn func(Observer)) {
	if o.replaying {
		return
	}
	for _, obs := range o.opts.Observers {
		fn(obs)
	}
}

// publish swaps in a fresh copy for readers and writes a status file on phase changes.
func (o *Orchestrator) publish(seq uint64) {
	if o.state == nil {
		return
	}
	snap := o.state.Clone()

	o.mu.Lock()
	changed := o.published == nil || o.published.Date != snap.Date || o.published.Phase != snap.Phase
	o.published = &snap
	o.mu.Unlock()

	if !changed || o.replaying || o.opts.Snapshots == nil {
		return
	}
	if err := o.opts.Snapshots.Save(storage.CreateSnapshot(seq, o.state)); err != nil {
		o.logger.Warn("Failed to save status snapshot", slog.Any("error", err))
		return
	}
	if o.opts.SnapshotKeep > 0 {
		if err := o.opts.Snapshots.Cleanup(o.opts.SnapshotKeep); err != nil {
			o.logger.Warn("Failed to clean up status snapshots", slog.Any("error", err))
		}
	}
}

// DumpState writes the internal state to a file (for post-mortem).
func (o *Orchestrator) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq uint64               `json:"next_seq"`
		Times   SessionTimes         `json:"times"`
		State   *domain.SessionState `json:"state"`
		Bars    []domain.Bar         `json:"bars"`
	}{
		NextSeq: o.nextSeq,
		Times:   o.times,
		State:   o.state,
		Bars:    o.agg.Bars(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
