package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/shopspring/decimal"
)

// Skip reasons recorded on filtered sessions.
const (
	ReasonEventDay     = "event_day"
	ReasonGapDay       = "gap_day"
	ReasonRangeOverlap = "range_overlap_day"
	ReasonWideRange    = "wide_range_day"
)

// FilterConfig holds the day filter knobs. Zero values disable the optional checks.
type FilterConfig struct {
	GapThresholdPct   float64
	CheckRangeOverlap bool
	MaxRangePoints    quant.Price
}

// FilterInput is what the orchestrator knows about the day when the window closes.
// Nil pointers mean the value is unavailable.
type FilterInput struct {
	Day             time.Time
	TodayOpen       *quant.Price
	PriorClose      *quant.Price
	Range           *domain.OpeningRange
	PriorClosingBar *domain.Bar
}

// Decision is the filter verdict.
type Decision struct {
	Trade  bool
	Reason string
	GapPct decimal.Decimal
}

// DayFilter decides whether a session may trade at all.
type DayFilter struct {
	calendar EventCalendar
	cfg      FilterConfig
	logger   *slog.Logger
}

// NewDayFilter creates a filter. calendar may be nil, in which case event days are never detected.
func NewDayFilter(calendar EventCalendar, cfg FilterConfig) *DayFilter {
	return &DayFilter{calendar: calendar, cfg: cfg, logger: slog.Default().With("component", "day_filter")}
}

// Evaluate runs the checks in order: event day, gap, range overlap, wide range.
// Missing inputs and collaborator failures fail open.
func (f *DayFilter) Evaluate(ctx context.Context, in FilterInput) Decision {
	day := in.Day.Format("2006-01-02")

	switch {
	case f.calendar == nil:
		f.logger.Warn("EVENT_CALENDAR_MISSING", slog.String("date", day))
	default:
		isEvent, err := f.calendar.IsEventDay(ctx, in.Day)
		if err != nil {
			f.logger.Warn("EVENT_CALENDAR_FAILED", slog.String("date", day), slog.Any("error", err))
		} else if isEvent {
			return Decision{Trade: false, Reason: ReasonEventDay}
		}
	}

	d := Decision{Trade: true}

	if f.cfg.GapThresholdPct > 0 {
		if in.TodayOpen == nil || in.PriorClose == nil {
			f.logger.Warn("GAP_CHECK_SKIPPED", slog.String("date", day), slog.String("reason", "missing open or prior close"))
		} else {
			gap, err := GapPct(*in.PriorClose, *in.TodayOpen)
			if err != nil {
				f.logger.Warn("GAP_CHECK_SKIPPED", slog.String("date", day), slog.Any("error", err))
			} else {
				d.GapPct = gap
				if gap.GreaterThanOrEqual(decimal.NewFromFloat(f.cfg.GapThresholdPct)) {
					return Decision{Trade: false, Reason: ReasonGapDay, GapPct: gap}
				}
			}
		}
	}

	if f.cfg.CheckRangeOverlap && in.Range != nil && in.PriorClosingBar != nil {
		if in.PriorClosingBar.Overlaps(in.Range.Low, in.Range.High) {
			d.Trade, d.Reason = false, ReasonRangeOverlap
			return d
		}
	}

	if f.cfg.MaxRangePoints > 0 && in.Range != nil && in.Range.Size() > f.cfg.MaxRangePoints {
		d.Trade, d.Reason = false, ReasonWideRange
		return d
	}

	return d
}

// GapPct is |open - priorClose| / priorClose * 100.
func GapPct(priorClose, open quant.Price) (decimal.Decimal, error) {
	if priorClose <= 0 {
		return decimal.Zero, fmt.Errorf("prior close must be positive, got %s", priorClose)
	}
	return open.Decimal().Sub(priorClose.Decimal()).Abs().
		Div(priorClose.Decimal()).
		Mul(decimal.NewFromInt(100)), nil
}
