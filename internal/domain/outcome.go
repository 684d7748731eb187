package domain

import (
	"time"

	"github.com/camera6912/orb-trader/pkg/quant"
)

// TradeOutcome is the closed-trade record of a session.
type TradeOutcome struct {
	Date             string      `json:"date"`
	Side             Side        `json:"side"`
	Entry            quant.Price `json:"entry"`
	Exit             quant.Price `json:"exit"`
	ExitReason       CloseReason `json:"exit_reason"`
	PnLPoints        quant.Price `json:"pnl_points"`
	OpenedAt         time.Time   `json:"opened_at"`
	ClosedAt         time.Time   `json:"closed_at"`
	BreakevenApplied bool        `json:"breakeven_applied"`
}

// NewTradeOutcome derives the outcome from a closed position.
func NewTradeOutcome(date string, p *Position) TradeOutcome {
	return TradeOutcome{
		Date:             date,
		Side:             p.Side,
		Entry:            p.EntryPrice,
		Exit:             p.ExitPrice,
		ExitReason:       p.CloseReason,
		PnLPoints:        p.UnrealizedPoints(p.ExitPrice),
		OpenedAt:         p.OpenedAt,
		ClosedAt:         p.ClosedAt,
		BreakevenApplied: p.BreakevenApplied,
	}
}

type ReportStatus string

const (
	StatusTraded  ReportStatus = "traded"
	StatusNoTrade ReportStatus = "no_trade"
	StatusNoFill  ReportStatus = "no_fill"
)

// SessionReport is emitted exactly once per trading session.
type SessionReport struct {
	Date    string        `json:"date"`
	Status  ReportStatus  `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Range   *OpeningRange `json:"range,omitempty"`
	Plan    *TradePlan    `json:"plan,omitempty"`
	Outcome *TradeOutcome `json:"outcome,omitempty"`
}

// Report builds the end-of-session report. Only meaningful once the phase is terminal.
func (s *SessionState) Report() SessionReport {
	c := s.Clone()
	r := SessionReport{
		Date:    c.Date,
		Range:   c.OpeningRange,
		Plan:    c.Plan,
		Outcome: c.Outcome,
	}
	switch {
	case c.Outcome != nil:
		r.Status = StatusTraded
	case c.Phase == PhaseNoTrade:
		r.Status = StatusNoTrade
		r.Reason = string(c.NoTradeReason)
		if c.FilteredOut && c.FilterReason != "" {
			r.Reason = c.FilterReason
		}
	default:
		r.Status = StatusNoFill
		r.Reason = "no_breakout"
	}
	return r
}
