package engine

import (
	"context"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/event"
)

// MarketData serves historical bars. Implementations may block on network I/O;
// the orchestrator always calls them with a bounded context.
type MarketData interface {
	// IntradayBars returns one-minute bars with from <= Start < to, ascending.
	IntradayBars(ctx context.Context, from, to time.Time) ([]domain.Bar, error)
	// ClosingBar returns the last bar of the session on day.
	ClosingBar(ctx context.Context, day time.Time) (domain.Bar, error)
}

// Journal persists inbox events and session reports.
type Journal interface {
	SaveEvent(ctx context.Context, session string, ev event.Event) error
	LoadSessionEvents(ctx context.Context, session string) ([]event.Event, error)
	GetLastSeq(ctx context.Context) (uint64, error)
	SaveReport(ctx context.Context, r domain.SessionReport) (bool, error)
}

// Observer is notified of session milestones. Calls happen on the orchestrator
// goroutine and must not block.
type Observer interface {
	OnRangeSet(date string, r domain.OpeningRange, plan domain.TradePlan)
	OnEntry(date string, p domain.Position)
	OnExit(o domain.TradeOutcome)
	OnSessionEnd(r domain.SessionReport)
}

// Clock abstracts wall-clock time for heartbeats.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
