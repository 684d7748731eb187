package domain

import (
	"time"

	"github.com/camera6912/orb-trader/pkg/quant"
)

// Bar is one fixed-interval OHLCV candle. Immutable once its interval has closed.
type Bar struct {
	Start  time.Time   `json:"start"`
	Open   quant.Price `json:"open"`
	High   quant.Price `json:"high"`
	Low    quant.Price `json:"low"`
	Close  quant.Price `json:"close"`
	Volume int64       `json:"volume"`
}

// Overlaps reports whether the bar's [Low, High] band intersects [low, high].
func (b Bar) Overlaps(low, high quant.Price) bool {
	return b.Low <= high && low <= b.High
}

// OpeningRange is the high/low of the opening window. Built once per session, never mutated.
type OpeningRange struct {
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
	High  quant.Price `json:"high"`
	Low   quant.Price `json:"low"`
}

func (r OpeningRange) Size() quant.Price {
	return r.High.Sub(r.Low)
}

func (r OpeningRange) Midpoint() quant.Price {
	return quant.Mid(r.Low, r.High)
}

// TradePlan is the OCO bracket derived from an OpeningRange.
type TradePlan struct {
	LongEntry    quant.Price `json:"long_entry"`
	ShortEntry   quant.Price `json:"short_entry"`
	TargetPoints quant.Price `json:"target_points"`
	LongTarget   quant.Price `json:"long_target"`
	ShortTarget  quant.Price `json:"short_target"`
	LongStop     quant.Price `json:"long_stop"`
	ShortStop    quant.Price `json:"short_stop"`
}

// Bracket returns entry, stop and target for one side.
func (p TradePlan) Bracket(side Side) (entry, stop, target quant.Price) {
	if side == SideShort {
		return p.ShortEntry, p.ShortStop, p.ShortTarget
	}
	return p.LongEntry, p.LongStop, p.LongTarget
}
