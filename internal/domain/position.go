package domain

import (
	"time"

	"github.com/camera6912/orb-trader/pkg/quant"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

type CloseReason string

const (
	CloseTarget CloseReason = "target"
	CloseStop   CloseReason = "stop"
	CloseEOD    CloseReason = "eod"
)

// Position is the single paper position of a session.
type Position struct {
	ID               string         `json:"id"`
	Side             Side           `json:"side"`
	EntryPrice       quant.Price    `json:"entry_price"`
	StopPrice        quant.Price    `json:"stop_price"`
	TargetPrice      quant.Price    `json:"target_price"`
	OpenedAt         time.Time      `json:"opened_at"`
	Status           PositionStatus `json:"status"`
	CloseReason      CloseReason    `json:"close_reason,omitempty"`
	ExitPrice        quant.Price    `json:"exit_price,omitempty"`
	ClosedAt         time.Time      `json:"closed_at,omitempty"`
	BreakevenApplied bool           `json:"breakeven_applied"`
}

func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}

// IsLong checks if the position is Long.
func (p *Position) IsLong() bool {
	return p.Side == SideLong
}

// UnrealizedPoints is the signed P&L in points at price.
func (p *Position) UnrealizedPoints(price quant.Price) quant.Price {
	diff := price.Sub(p.EntryPrice)
	if p.Side == SideShort {
		return -diff
	}
	return diff
}

// StopHit reports whether price reaches the protective stop.
func (p *Position) StopHit(price quant.Price) bool {
	if p.Side == SideShort {
		return price >= p.StopPrice
	}
	return price <= p.StopPrice
}

// TargetHit reports whether price reaches the profit target.
func (p *Position) TargetHit(price quant.Price) bool {
	if p.Side == SideShort {
		return price <= p.TargetPrice
	}
	return price >= p.TargetPrice
}

// StopBehindEntry reports whether moving the stop to entry would tighten it.
func (p *Position) StopBehindEntry() bool {
	if p.Side == SideShort {
		return p.StopPrice > p.EntryPrice
	}
	return p.StopPrice < p.EntryPrice
}
