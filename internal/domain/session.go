package domain

import (
	"fmt"
	"time"

	"github.com/camera6912/orb-trader/pkg/quant"
)

// Phase is the session state machine position.
type Phase string

const (
	PhaseWaitingForOpen Phase = "waiting_for_open"
	PhaseBuildingRange  Phase = "building_range"
	PhaseAwaitingEntry  Phase = "awaiting_entry"
	PhaseLongOpen       Phase = "long_open"
	PhaseShortOpen      Phase = "short_open"
	PhaseClosed         Phase = "closed"
	PhaseNoTrade        Phase = "no_trade"
)

// Terminal reports whether no further trading can happen today.
func (p Phase) Terminal() bool {
	return p == PhaseClosed || p == PhaseNoTrade
}

// OpenPhase maps a side to its open-position phase.
func OpenPhase(side Side) Phase {
	if side == SideShort {
		return PhaseShortOpen
	}
	return PhaseLongOpen
}

type NoTradeReason string

const (
	ReasonFiltered         NoTradeReason = "filtered"
	ReasonInsufficientData NoTradeReason = "insufficient_data"
	ReasonDegenerateRange  NoTradeReason = "degenerate_range"
	ReasonMarketClosed     NoTradeReason = "market_closed"
	ReasonInternalError    NoTradeReason = "internal_error"
)

// SessionState is everything the orchestrator knows about one trading day.
// Only the orchestrator goroutine mutates it; readers get a Clone.
type SessionState struct {
	Date             string        `json:"date"`
	Phase            Phase         `json:"phase"`
	OpeningRange     *OpeningRange `json:"opening_range,omitempty"`
	Plan             *TradePlan    `json:"plan,omitempty"`
	Orders           []Order       `json:"orders"`
	Position         *Position     `json:"position,omitempty"`
	TradesTaken      int           `json:"trades_taken"`
	FilteredOut      bool          `json:"filtered_out"`
	FilterReason     string        `json:"filter_reason,omitempty"`
	NoTradeReason    NoTradeReason `json:"no_trade_reason,omitempty"`
	BreakevenChecked bool          `json:"breakeven_checked"`
	LastPrice        quant.Price   `json:"last_price"`
	HasPrice         bool          `json:"has_price"`
	LastUpdate       time.Time     `json:"last_update"`
	Outcome          *TradeOutcome `json:"outcome,omitempty"`
	Reported         bool          `json:"reported"`
}

// NewSessionState returns the fresh state for a trading date.
func NewSessionState(date string) *SessionState {
	return &SessionState{
		Date:   date,
		Phase:  PhaseWaitingForOpen,
		Orders: make([]Order, 0, 4),
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *SessionState) Clone() SessionState {
	c := *s
	c.Orders = append([]Order(nil), s.Orders...)
	if s.OpeningRange != nil {
		r := *s.OpeningRange
		c.OpeningRange = &r
	}
	if s.Plan != nil {
		p := *s.Plan
		c.Plan = &p
	}
	if s.Position != nil {
		p := *s.Position
		c.Position = &p
	}
	if s.Outcome != nil {
		o := *s.Outcome
		c.Outcome = &o
	}
	return c
}

// MarkNoTrade ends the session without a position.
func (s *SessionState) MarkNoTrade(reason NoTradeReason) {
	s.Phase = PhaseNoTrade
	s.NoTradeReason = reason
}

// FindOrder returns the order with the given side and kind, or nil.
func (s *SessionState) FindOrder(side Side, kind OrderKind) *Order {
	for i := range s.Orders {
		if s.Orders[i].Side == side && s.Orders[i].Kind == kind {
			return &s.Orders[i]
		}
	}
	return nil
}

// PendingEntries counts entry orders still working.
func (s *SessionState) PendingEntries() int {
	n := 0
	for i := range s.Orders {
		if s.Orders[i].Kind == KindEntry && s.Orders[i].IsOpen() {
			n++
		}
	}
	return n
}

// VerifyInvariant panics if the one-trade-per-day or OCO rules are broken.
func (s *SessionState) VerifyInvariant() {
	if s.TradesTaken > 1 {
		panic(fmt.Sprintf("SESSION_INVARIANT_VIOLATION: %s trades_taken=%d", s.Date, s.TradesTaken))
	}
	filled := 0
	for i := range s.Orders {
		if s.Orders[i].Kind == KindEntry && s.Orders[i].Status == OrderFilled {
			filled++
		}
	}
	if filled > 1 {
		panic(fmt.Sprintf("SESSION_INVARIANT_VIOLATION: %s filled_entries=%d", s.Date, filled))
	}
	if s.Position != nil && s.Position.IsOpen() && s.Phase != OpenPhase(s.Position.Side) {
		panic(fmt.Sprintf("SESSION_INVARIANT_VIOLATION: %s open %s position in phase %s", s.Date, s.Position.Side, s.Phase))
	}
}
