package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/engine"
	"github.com/camera6912/orb-trader/internal/storage"
)

// Result is the outcome of re-running one journaled session.
type Result struct {
	Session string                `json:"session"`
	Events  int                   `json:"events"`
	Final   domain.SessionState   `json:"final"`
	Report  *domain.SessionReport `json:"report,omitempty"`
	Stored  *domain.SessionReport `json:"stored,omitempty"`
	Matches bool                  `json:"matches"`
}

// Verdict summarizes the comparison: match, mismatch, or unfinished when the
// session never produced a report.
func (r *Result) Verdict() string {
	switch {
	case r.Report == nil && r.Stored == nil:
		return "unfinished"
	case r.Matches:
		return "match"
	default:
		return "mismatch"
	}
}

// Replayer reads a session's event log from SQLite and feeds it into a fresh
// orchestrator, so a stored report can be checked against the journal.
type Replayer struct {
	store *storage.EventStore
}

// NewReplayer creates a new replayer instance.
func NewReplayer(store *storage.EventStore) *Replayer {
	return &Replayer{store: store}
}

// RunReplay replays session through an orchestrator built from opts. Journal,
// snapshots and observers in opts are replaced: the replay writes nothing.
func (r *Replayer) RunReplay(ctx context.Context, session string, opts engine.Options) (*Result, error) {
	events, err := r.store.LoadSessionEvents(ctx, session)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no journaled events for session %s", session)
	}

	collector := &reportCollector{}
	opts.Journal = nil
	opts.Snapshots = nil
	opts.Observers = []engine.Observer{collector}
	opts.InboxSize = 1

	o, err := engine.NewOrchestrator(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build replay orchestrator: %w", err)
	}

	// Feed into the orchestrator synchronously for deterministic replay.
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.Process(ev)
	}

	res := &Result{Session: session, Events: len(events)}
	res.Final, _ = o.Snapshot()
	for i := range collector.reports {
		if collector.reports[i].Date == session {
			res.Report = &collector.reports[i]
		}
	}

	if res.Stored, err = r.store.GetReport(ctx, session); err != nil {
		return nil, err
	}
	res.Matches, err = sameReport(res.Report, res.Stored)
	if err != nil {
		return nil, err
	}

	slog.Info("REPLAY_DONE",
		slog.String("session", session),
		slog.Int("events", res.Events),
		slog.String("phase", string(res.Final.Phase)),
		slog.Bool("matches", res.Matches))
	return res, nil
}

// sameReport compares the wire form, which is what was persisted.
func sameReport(a, b *domain.SessionReport) (bool, error) {
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	ja, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ja, jb), nil
}

type reportCollector struct {
	reports []domain.SessionReport
}

func (c *reportCollector) OnRangeSet(string, domain.OpeningRange, domain.TradePlan) {}
func (c *reportCollector) OnEntry(string, domain.Position)                         {}
func (c *reportCollector) OnExit(domain.TradeOutcome)                              {}
func (c *reportCollector) OnSessionEnd(r domain.SessionReport) {
	c.reports = append(c.reports, r)
}
