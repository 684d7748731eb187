package market

import (
	"log/slog"
	"sort"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
)

// BarAggregator folds ticks into fixed-interval OHLCV bars.
// Not safe for concurrent use; the orchestrator owns it.
type BarAggregator struct {
	interval time.Duration
	bars     []domain.Bar
}

// NewBarAggregator creates an aggregator. A non-positive interval defaults to one minute.
func NewBarAggregator(interval time.Duration) *BarAggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BarAggregator{interval: interval}
}

// Interval returns the bar width.
func (a *BarAggregator) Interval() time.Duration { return a.interval }

// Add folds one tick into its bar, opening a new bar on the first tick of an interval.
// Late ticks update the bar they belong to.
func (a *BarAggregator) Add(ts time.Time, price quant.Price, size int64) {
	start := ts.Truncate(a.interval)

	for i := len(a.bars) - 1; i >= 0; i-- {
		b := &a.bars[i]
		if b.Start.Equal(start) {
			if price > b.High {
				b.High = price
			}
			if price < b.Low {
				b.Low = price
			}
			b.Close = price
			b.Volume += size
			return
		}
		if b.Start.Before(start) {
			break
		}
	}

	a.bars = append(a.bars, domain.Bar{
		Start:  start,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: size,
	})

	n := len(a.bars)
	if n > 1 && a.bars[n-1].Start.Before(a.bars[n-2].Start) {
		slog.Debug("LATE_TICK_NEW_BAR", slog.Time("bar", start))
		sort.Slice(a.bars, func(i, j int) bool { return a.bars[i].Start.Before(a.bars[j].Start) })
	}
}

// Bars returns a copy of all bars in start order.
func (a *BarAggregator) Bars() []domain.Bar {
	return append([]domain.Bar(nil), a.bars...)
}

// Between returns bars with from <= Start < to.
func (a *BarAggregator) Between(from, to time.Time) []domain.Bar {
	var out []domain.Bar
	for _, b := range a.bars {
		if !b.Start.Before(from) && b.Start.Before(to) {
			out = append(out, b)
		}
	}
	return out
}

// Reset drops all bars, used at the session boundary.
func (a *BarAggregator) Reset() {
	a.bars = a.bars[:0]
}

// Merge collapses consecutive bars into one wider bar. Returns false for an empty input.
func Merge(bars []domain.Bar) (domain.Bar, bool) {
	if len(bars) == 0 {
		return domain.Bar{}, false
	}
	out := bars[0]
	for _, b := range bars[1:] {
		if b.High > out.High {
			out.High = b.High
		}
		if b.Low < out.Low {
			out.Low = b.Low
		}
		out.Close = b.Close
		out.Volume += b.Volume
	}
	return out, true
}
