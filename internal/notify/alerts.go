package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatRangeSet announces the opening range and the resting OCO entries.
func FormatRangeSet(r domain.OpeningRange, plan domain.TradePlan) string {
	header := "🎯 ORB Range Set"
	if !r.End.IsZero() {
		header += fmt.Sprintf(" (%s ET)", r.End.Format("3:04 PM"))
	}
	return fmt.Sprintf("%s\nHigh: %s | Low: %s\nRange: %s pts\nOCO orders placed: Buy stop @ %s, Sell stop @ %s",
		header, px(r.High), px(r.Low), px(r.Size()), px(plan.LongEntry), px(plan.ShortEntry))
}

// FormatEntry describes a filled entry with its bracket distances.
func FormatEntry(p domain.Position) string {
	emoji := "🟢"
	if p.Side == domain.SideShort {
		emoji = "🔴"
	}
	return fmt.Sprintf("%s %s Entry @ %s\nTarget: %s (%s)\nStop: %s (%s)",
		emoji, strings.ToUpper(string(p.Side)), px(p.EntryPrice),
		px(p.TargetPrice), points(p.UnrealizedPoints(p.TargetPrice)),
		px(p.StopPrice), points(p.UnrealizedPoints(p.StopPrice)))
}

// FormatExit summarises a closed trade.
func FormatExit(o domain.TradeOutcome) string {
	var headline string
	switch {
	case o.ExitReason == domain.CloseTarget:
		headline = "✅ Target Hit!"
	case o.ExitReason == domain.CloseStop && o.BreakevenApplied:
		headline = "➖ Breakeven Stop"
	case o.ExitReason == domain.CloseStop:
		headline = "❌ Stopped Out"
	case o.ExitReason == domain.CloseEOD:
		headline = "⏰ EOD Exit"
	default:
		headline = "📤 Exit"
	}
	return fmt.Sprintf("%s %s\nEntry: %s → Exit: %s\nDuration: %s",
		headline, points(o.PnLPoints), px(o.Entry), px(o.Exit), duration(o.ClosedAt.Sub(o.OpenedAt)))
}

// FormatSkipDay explains why no entries were placed. r may be nil when the
// range was never captured.
func FormatSkipDay(reason string, r *domain.OpeningRange) string {
	pretty := "Skip Day"
	if reason != "" {
		words := strings.Fields(strings.ReplaceAll(reason, "_", " "))
		for i, w := range words {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
		pretty = strings.Join(words, " ")
	}
	msg := "⏸️ Standing down today\nReason: " + pretty
	if r != nil {
		msg += fmt.Sprintf("\nRange captured: %s - %s (%s pts)", px(r.High), px(r.Low), px(r.Size()))
	}
	return msg
}

// FormatNoFill closes a session where neither entry triggered.
func FormatNoFill(date string) string {
	return fmt.Sprintf("💤 %s: no breakout, entries cancelled at EOD", date)
}

func px(p quant.Price) string {
	return p.Decimal().StringFixed(2)
}

func points(p quant.Price) string {
	d := p.Decimal()
	sign := ""
	if d.IsPositive() {
		sign = "+"
	}
	if d.Abs().LessThan(hundred) {
		return sign + d.StringFixed(2) + " pts"
	}
	return sign + d.StringFixed(0) + " pts"
}

func duration(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 120 {
		return fmt.Sprintf("%d min", mins)
	}
	return fmt.Sprintf("%.1f hr", float64(mins)/60)
}
