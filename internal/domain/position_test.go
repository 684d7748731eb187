package domain

import (
	"testing"

	"github.com/camera6912/orb-trader/pkg/quant"
)

func TestPosition_Triggers(t *testing.T) {
	long := &Position{Side: SideLong, EntryPrice: quant.ToPrice(4520), StopPrice: quant.ToPrice(4510), TargetPrice: quant.ToPrice(4540)}
	short := &Position{Side: SideShort, EntryPrice: quant.ToPrice(4510), StopPrice: quant.ToPrice(4520), TargetPrice: quant.ToPrice(4490)}

	tests := []struct {
		name       string
		pos        *Position
		price      float64
		wantStop   bool
		wantTarget bool
	}{
		{"long at stop", long, 4510, true, false},
		{"long below stop", long, 4505, true, false},
		{"long mid", long, 4525, false, false},
		{"long at target", long, 4540, false, true},
		{"short at stop", short, 4520, true, false},
		{"short mid", short, 4500, false, false},
		{"short at target", short, 4490, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := quant.ToPrice(tt.price)
			if got := tt.pos.StopHit(p); got != tt.wantStop {
				t.Errorf("StopHit(%v) = %v, want %v", tt.price, got, tt.wantStop)
			}
			if got := tt.pos.TargetHit(p); got != tt.wantTarget {
				t.Errorf("TargetHit(%v) = %v, want %v", tt.price, got, tt.wantTarget)
			}
		})
	}
}

func TestPosition_UnrealizedPoints(t *testing.T) {
	long := &Position{Side: SideLong, EntryPrice: quant.ToPrice(4520)}
	if got := long.UnrealizedPoints(quant.ToPrice(4530)); got != quant.Points(10) {
		t.Errorf("long pnl = %s, want 10", got)
	}

	short := &Position{Side: SideShort, EntryPrice: quant.ToPrice(4510)}
	if got := short.UnrealizedPoints(quant.ToPrice(4530)); got != quant.Points(-20) {
		t.Errorf("short pnl = %s, want -20", got)
	}
}

func TestPosition_StopBehindEntry(t *testing.T) {
	long := &Position{Side: SideLong, EntryPrice: quant.ToPrice(4520), StopPrice: quant.ToPrice(4510)}
	if !long.StopBehindEntry() {
		t.Error("long stop below entry should be behind")
	}
	long.StopPrice = long.EntryPrice
	if long.StopBehindEntry() {
		t.Error("stop at entry is not behind")
	}
}
