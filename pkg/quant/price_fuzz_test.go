package quant

import (
	"testing"
)

// FuzzParsePrice checks parsing never panics and that String round-trips.
func FuzzParsePrice(f *testing.F) {
	f.Add("0")
	f.Add("4520.25")
	f.Add("-1.23")
	f.Add("0.000001")
	f.Add("1e3")
	f.Add("9999999999999.999999")

	f.Fuzz(func(t *testing.T, s string) {
		p, err := ParsePrice(s)
		if err != nil {
			return
		}
		back, err := ParsePrice(p.String())
		if err != nil {
			t.Fatalf("String() output %q failed to parse: %v", p.String(), err)
		}
		if back != p {
			t.Fatalf("round trip mismatch: %d -> %q -> %d", p, p.String(), back)
		}
	})
}

// FuzzRoundToTick checks the rounded value is on the grid and within one tick.
func FuzzRoundToTick(f *testing.F) {
	f.Add(int64(4512600000), int64(250000), 0)
	f.Add(int64(-100000), int64(250000), 1)
	f.Add(int64(0), int64(1), 2)

	f.Fuzz(func(t *testing.T, raw, tick int64, dir int) {
		if tick <= 0 || tick > 1<<40 || raw > 1<<60 || raw < -(1<<60) {
			return
		}
		got := Price(raw).RoundToTick(Price(tick), RoundDirection(((dir%3)+3)%3))
		if got%Price(tick) != 0 {
			t.Fatalf("%d not on grid %d", got, tick)
		}
		if (got - Price(raw)).Abs() >= Price(tick) {
			t.Fatalf("%d moved more than one tick from %d", got, raw)
		}
	})
}

// FuzzParseTimeStamp tests timestamp parsing with fuzzing.
func FuzzParseTimeStamp(f *testing.F) {
	f.Add("0")
	f.Add("1704067200000")
	f.Add("-1")

	f.Fuzz(func(t *testing.T, s string) {
		_, _ = ParseTimeStamp(s)
	})
}
