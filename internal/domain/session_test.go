package domain

import (
	"testing"
	"time"

	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpeningRange_SizeAndMidpoint(t *testing.T) {
	r := OpeningRange{High: quant.ToPrice(4520), Low: quant.ToPrice(4510)}
	assert.Equal(t, quant.Points(10), r.Size())
	assert.Equal(t, quant.ToPrice(4515), r.Midpoint())
}

func TestSessionState_CloneIsDeep(t *testing.T) {
	st := NewSessionState("2024-03-01")
	st.Plan = &TradePlan{LongEntry: quant.ToPrice(4520)}
	st.Position = &Position{Side: SideLong, StopPrice: quant.ToPrice(4510)}
	st.Orders = append(st.Orders, Order{ID: "a", Status: OrderPending})

	c := st.Clone()
	st.Plan.LongEntry = 0
	st.Position.StopPrice = 0
	st.Orders[0].Status = OrderFilled

	assert.Equal(t, quant.ToPrice(4520), c.Plan.LongEntry)
	assert.Equal(t, quant.ToPrice(4510), c.Position.StopPrice)
	assert.Equal(t, OrderPending, c.Orders[0].Status)
}

func TestSessionState_VerifyInvariant(t *testing.T) {
	t.Run("two trades panics", func(t *testing.T) {
		st := NewSessionState("2024-03-01")
		st.TradesTaken = 2
		assert.Panics(t, st.VerifyInvariant)
	})

	t.Run("both entries filled panics", func(t *testing.T) {
		st := NewSessionState("2024-03-01")
		st.Orders = []Order{
			{Side: SideLong, Kind: KindEntry, Status: OrderFilled},
			{Side: SideShort, Kind: KindEntry, Status: OrderFilled},
		}
		assert.Panics(t, st.VerifyInvariant)
	})

	t.Run("open position in wrong phase panics", func(t *testing.T) {
		st := NewSessionState("2024-03-01")
		st.Phase = PhaseClosed
		st.Position = &Position{Side: SideLong, Status: PositionOpen}
		assert.Panics(t, st.VerifyInvariant)
	})

	t.Run("healthy state passes", func(t *testing.T) {
		st := NewSessionState("2024-03-01")
		st.Phase = PhaseShortOpen
		st.TradesTaken = 1
		st.Position = &Position{Side: SideShort, Status: PositionOpen}
		assert.NotPanics(t, st.VerifyInvariant)
	})
}

func TestSessionState_Report(t *testing.T) {
	t.Run("filtered", func(t *testing.T) {
		st := NewSessionState("2024-03-20")
		st.FilteredOut = true
		st.FilterReason = "event_day"
		st.MarkNoTrade(ReasonFiltered)

		r := st.Report()
		assert.Equal(t, StatusNoTrade, r.Status)
		assert.Equal(t, "event_day", r.Reason)
		assert.Nil(t, r.Outcome)
	})

	t.Run("traded", func(t *testing.T) {
		st := NewSessionState("2024-03-01")
		pos := &Position{
			Side: SideShort, EntryPrice: quant.ToPrice(4510), ExitPrice: quant.ToPrice(4520),
			CloseReason: CloseStop, Status: PositionClosed, ClosedAt: time.Now(),
		}
		out := NewTradeOutcome(st.Date, pos)
		st.Outcome = &out
		st.Phase = PhaseClosed

		r := st.Report()
		require.NotNil(t, r.Outcome)
		assert.Equal(t, StatusTraded, r.Status)
		assert.Equal(t, quant.Points(-10), r.Outcome.PnLPoints)
	})

	t.Run("no fill", func(t *testing.T) {
		st := NewSessionState("2024-03-01")
		st.Phase = PhaseClosed
		assert.Equal(t, StatusNoFill, st.Report().Status)
	})
}
