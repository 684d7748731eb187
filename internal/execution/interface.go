package execution

import (
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
)

// InputKind selects the transition Advance performs.
type InputKind int

const (
	InputTick InputKind = iota
	InputBreakeven
	InputEOD
)

func (k InputKind) String() string {
	switch k {
	case InputTick:
		return "tick"
	case InputBreakeven:
		return "breakeven"
	case InputEOD:
		return "eod"
	default:
		return "unknown"
	}
}

// Input is one tick or scheduled clock trigger.
// Priced is false for clock triggers that carry no trade price.
type Input struct {
	Kind   InputKind
	Price  quant.Price
	Priced bool
	At     time.Time
}

// Step reports what a single Advance call changed.
type Step struct {
	Entered          *domain.Position
	Exited           *domain.TradeOutcome
	BreakevenApplied bool
	FeedGap          *domain.FeedGapError
}

// Engine simulates the OCO entry pair and the bracket of a session.
// Implementations keep no state between calls; everything lives in the SessionState passed in.
type Engine interface {
	// Arm places the OCO entry pair for plan and moves the session to AwaitingEntry.
	Arm(st *domain.SessionState, plan domain.TradePlan, at time.Time) error
	// Advance applies one input to st.
	Advance(st *domain.SessionState, in Input) Step
}
