package strategy

import (
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
)

// DefaultStopWidenThreshold is the range size above which both stops move to the midpoint.
var DefaultStopWidenThreshold = quant.Points(20)

// PlanConfig parameterises BuildPlan.
type PlanConfig struct {
	TargetPoints       quant.Price
	StopWidenThreshold quant.Price
	// TickSize > 0 rounds stops onto the instrument grid (0.25 for /ES). Zero keeps raw levels.
	TickSize quant.Price
}

// ComputeOpeningRange takes the high and low of bars starting in [start, end).
// It is pure: the same bars always give the same range.
func ComputeOpeningRange(bars []domain.Bar, start, end time.Time) (domain.OpeningRange, error) {
	r := domain.OpeningRange{Start: start, End: end}
	found := false
	for _, b := range bars {
		if b.Start.Before(start) || !b.Start.Before(end) {
			continue
		}
		if !found {
			r.High, r.Low = b.High, b.Low
			found = true
			continue
		}
		if b.High > r.High {
			r.High = b.High
		}
		if b.Low < r.Low {
			r.Low = b.Low
		}
	}
	if !found {
		return domain.OpeningRange{}, &domain.InsufficientDataError{From: start, To: end}
	}
	return r, nil
}

// BuildPlan derives the OCO bracket from the opening range.
// Narrow ranges (size <= threshold) stop out at the opposite boundary; wider ranges at the midpoint.
func BuildPlan(r domain.OpeningRange, cfg PlanConfig) (domain.TradePlan, error) {
	size := r.Size()
	if size <= 0 {
		return domain.TradePlan{}, &domain.DegenerateRangeError{High: r.High, Low: r.Low}
	}

	threshold := cfg.StopWidenThreshold
	if threshold <= 0 {
		threshold = DefaultStopWidenThreshold
	}

	plan := domain.TradePlan{
		LongEntry:    r.High,
		ShortEntry:   r.Low,
		TargetPoints: cfg.TargetPoints,
		LongTarget:   r.High.Add(cfg.TargetPoints),
		ShortTarget:  r.Low.Sub(cfg.TargetPoints),
	}

	if size <= threshold {
		plan.LongStop = r.Low
		plan.ShortStop = r.High
	} else {
		mid := r.Midpoint()
		plan.LongStop = mid
		plan.ShortStop = mid
	}

	if cfg.TickSize > 0 {
		plan.LongStop = plan.LongStop.RoundToTick(cfg.TickSize, quant.RoundDown)
		plan.ShortStop = plan.ShortStop.RoundToTick(cfg.TickSize, quant.RoundUp)
	}

	return plan, nil
}
