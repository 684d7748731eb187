package quant

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a fixed-point price (or a distance in points) multiplied by 1,000,000.
// E.g., 4520.25 = 4,520,250,000 Price.
type Price int64

const PriceScale = 1000000

// RoundDirection selects how RoundToTick snaps a price onto the tick grid.
type RoundDirection int

const (
	RoundNearest RoundDirection = iota
	RoundDown
	RoundUp
)

// ToPrice converts a float64 to Price.
// Note: Only used at the boundary (config, tests). Internal logic stays in Price.
func ToPrice(f float64) Price {
	return Price(math.Round(f * PriceScale))
}

// Points is a readability helper for whole-point distances.
func Points(n int64) Price {
	return Price(n * PriceScale)
}

// ParsePrice converts a numeric string to Price without going through float64.
// Digits beyond the sixth decimal place are truncated toward zero.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return 0, fmt.Errorf("empty price")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", s, err)
	}
	scaled := d.Shift(6).Truncate(0)
	if scaled.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt64/2)) {
		return 0, fmt.Errorf("price out of range: %s", s)
	}
	return Price(scaled.IntPart()), nil
}

// Decimal returns the exact decimal value of p.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -6)
}

// Float64 is for display and metrics only.
func (p Price) Float64() float64 {
	return float64(p) / PriceScale
}

func (p Price) String() string {
	return p.Decimal().String()
}

// MarshalJSON writes the price as a decimal string so journals and snapshots stay readable.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts both the quoted decimal form and a bare JSON number.
func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Add panics on overflow; prices never legitimately approach the int64 range.
func (p Price) Add(q Price) Price {
	if (q > 0 && p > math.MaxInt64-q) || (q < 0 && p < math.MinInt64-q) {
		panic("QUANT_PRICE_ADD_OVERFLOW")
	}
	return p + q
}

// Sub panics on overflow.
func (p Price) Sub(q Price) Price {
	if (q > 0 && p < math.MinInt64+q) || (q < 0 && p > math.MaxInt64+q) {
		panic("QUANT_PRICE_SUB_OVERFLOW")
	}
	return p - q
}

func (p Price) Abs() Price {
	if p < 0 {
		return -p
	}
	return p
}

// Mid returns the midpoint of a and b, truncated toward a on odd micro counts.
func Mid(a, b Price) Price {
	return a.Add(b.Sub(a) / 2)
}

// RoundToTick snaps p onto multiples of tick. A non-positive tick returns p unchanged.
func (p Price) RoundToTick(tick Price, dir RoundDirection) Price {
	if tick <= 0 {
		return p
	}
	floor := p / tick * tick
	if p < 0 && floor != p {
		floor -= tick
	}
	if floor == p {
		return p
	}
	switch dir {
	case RoundDown:
		return floor
	case RoundUp:
		return floor + tick
	default:
		if p-floor >= floor+tick-p {
			return floor + tick
		}
		return floor
	}
}
