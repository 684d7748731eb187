package execution

import (
	"log/slog"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/google/uuid"
)

// PaperEngine fills simulated stop orders against the tick stream.
//
// Tie-break policy:
//   - entries trigger on the price path since the previous tick, so a gap through a level fills at the level;
//   - if one path crosses both entries, long wins and a FeedGapError is reported. An evaluated
//     price always lies between the entries, so the tick path never gets here; the branch is defensive;
//   - after a fill, the same tick is checked for exits; stop beats target;
//   - exits fill at the tick price, EOD flattens at the prevailing price.
type PaperEngine struct {
	logger *slog.Logger
	newID  func() string
}

// NewPaperEngine creates the simulated execution engine.
func NewPaperEngine() *PaperEngine {
	return &PaperEngine{
		logger: slog.Default().With("component", "paper_engine"),
		newID:  uuid.NewString,
	}
}

// Arm places the OCO entry pair.
func (e *PaperEngine) Arm(st *domain.SessionState, plan domain.TradePlan, at time.Time) error {
	if st.TradesTaken >= 1 {
		return domain.ErrTradeAlreadyTaken
	}
	if st.FindOrder(domain.SideLong, domain.KindEntry) != nil || st.FindOrder(domain.SideShort, domain.KindEntry) != nil {
		return domain.ErrEntriesAlreadyPlaced
	}

	p := plan
	st.Plan = &p
	st.Orders = append(st.Orders,
		domain.Order{ID: e.newID(), Side: domain.SideLong, Kind: domain.KindEntry, Price: plan.LongEntry, Status: domain.OrderPending, UpdatedAt: at},
		domain.Order{ID: e.newID(), Side: domain.SideShort, Kind: domain.KindEntry, Price: plan.ShortEntry, Status: domain.OrderPending, UpdatedAt: at},
	)
	st.Phase = domain.PhaseAwaitingEntry

	e.logger.Info("ENTRY_ORDERS_PLACED",
		slog.String("date", st.Date),
		slog.String("buy_stop", plan.LongEntry.String()),
		slog.String("sell_stop", plan.ShortEntry.String()),
		slog.String("long_stop", plan.LongStop.String()),
		slog.String("short_stop", plan.ShortStop.String()))
	return nil
}

// Advance applies one input to st.
func (e *PaperEngine) Advance(st *domain.SessionState, in Input) Step {
	defer st.VerifyInvariant()

	switch in.Kind {
	case InputEOD:
		return e.flatten(st, in)
	case InputBreakeven:
		return e.breakeven(st, in.At)
	default:
		return e.onTick(st, in)
	}
}

func (e *PaperEngine) onTick(st *domain.SessionState, in Input) Step {
	var step Step

	prev, prevAt, hadPrev := st.LastPrice, st.LastUpdate, st.HasPrice
	st.LastPrice, st.HasPrice, st.LastUpdate = in.Price, true, in.At

	switch st.Phase {
	case domain.PhaseAwaitingEntry:
		if st.TradesTaken >= 1 {
			e.logger.Warn("ENTRY_REFUSED", slog.String("date", st.Date), slog.Any("error", domain.ErrTradeAlreadyTaken))
			return step
		}
		if st.Plan == nil {
			return step
		}
		if armed := st.FindOrder(domain.SideLong, domain.KindEntry); armed != nil && prevAt.Before(armed.UpdatedAt) {
			hadPrev = false
		}
		side, gap, ok := triggeredSide(*st.Plan, prev, hadPrev, in.Price)
		if !ok {
			return step
		}
		if gap != nil {
			step.FeedGap = gap
			e.logger.Warn("FEED_GAP_BOTH_ENTRIES", slog.String("date", st.Date), slog.Any("error", gap))
		}
		step.Entered = e.fill(st, side, in.At)

	case domain.PhaseLongOpen, domain.PhaseShortOpen:
		e.logUnrealized(st, prev, hadPrev, in.Price)

	default:
		return step
	}

	step.Exited = e.checkExit(st, in.Price, in.At)
	return step
}

// triggeredSide applies the crossing rule: the path from prev to price touching a level triggers it.
// Both levels on one path is defensive: callers only pass a prev that triggered neither.
func triggeredSide(plan domain.TradePlan, prev quant.Price, hadPrev bool, price quant.Price) (domain.Side, *domain.FeedGapError, bool) {
	hi, lo := price, price
	if hadPrev {
		if prev > hi {
			hi = prev
		}
		if prev < lo {
			lo = prev
		}
	}

	longHit := hi >= plan.LongEntry
	shortHit := lo <= plan.ShortEntry

	switch {
	case longHit && shortHit:
		return domain.SideLong, &domain.FeedGapError{
			Prev: prev, Price: price, LongEntry: plan.LongEntry, ShortEntry: plan.ShortEntry, Chosen: domain.SideLong,
		}, true
	case longHit:
		return domain.SideLong, nil, true
	case shortHit:
		return domain.SideShort, nil, true
	default:
		return "", nil, false
	}
}

// fill executes one entry and cancels its sibling in the same step.
func (e *PaperEngine) fill(st *domain.SessionState, side domain.Side, at time.Time) *domain.Position {
	for i := range st.Orders {
		o := &st.Orders[i]
		if o.Kind != domain.KindEntry {
			continue
		}
		if o.Side == side {
			o.Fill(at)
		} else {
			o.Cancel(at)
		}
	}

	entry, stop, target := st.Plan.Bracket(side)
	pos := &domain.Position{
		ID:          e.newID(),
		Side:        side,
		EntryPrice:  entry,
		StopPrice:   stop,
		TargetPrice: target,
		OpenedAt:    at,
		Status:      domain.PositionOpen,
	}
	st.Position = pos
	st.TradesTaken++
	st.Phase = domain.OpenPhase(side)
	st.Orders = append(st.Orders,
		domain.Order{ID: e.newID(), Side: side, Kind: domain.KindStop, Price: stop, Status: domain.OrderPending, UpdatedAt: at},
		domain.Order{ID: e.newID(), Side: side, Kind: domain.KindTarget, Price: target, Status: domain.OrderPending, UpdatedAt: at},
	)

	e.logger.Info("POSITION_OPENED",
		slog.String("date", st.Date),
		slog.String("side", string(side)),
		slog.String("entry", entry.String()),
		slog.String("stop", stop.String()),
		slog.String("target", target.String()))

	c := *pos
	return &c
}

func (e *PaperEngine) checkExit(st *domain.SessionState, price quant.Price, at time.Time) *domain.TradeOutcome {
	pos := st.Position
	if pos == nil || !pos.IsOpen() {
		return nil
	}

	switch {
	case pos.StopHit(price):
		return e.close(st, price, domain.CloseStop, at)
	case pos.TargetHit(price):
		return e.close(st, price, domain.CloseTarget, at)
	default:
		return nil
	}
}

func (e *PaperEngine) close(st *domain.SessionState, price quant.Price, reason domain.CloseReason, at time.Time) *domain.TradeOutcome {
	pos := st.Position
	pos.Status = domain.PositionClosed
	pos.ExitPrice = price
	pos.CloseReason = reason
	pos.ClosedAt = at

	for i := range st.Orders {
		o := &st.Orders[i]
		switch {
		case o.Kind == domain.KindStop && reason == domain.CloseStop,
			o.Kind == domain.KindTarget && reason == domain.CloseTarget:
			o.Fill(at)
		default:
			o.Cancel(at)
		}
	}

	out := domain.NewTradeOutcome(st.Date, pos)
	st.Outcome = &out
	st.Phase = domain.PhaseClosed

	e.logger.Info("POSITION_CLOSED",
		slog.String("date", st.Date),
		slog.String("side", string(pos.Side)),
		slog.String("reason", string(reason)),
		slog.String("entry", pos.EntryPrice.String()),
		slog.String("exit", price.String()),
		slog.String("pnl_points", out.PnLPoints.String()))

	c := out
	return &c
}

// breakeven runs the one-shot stop-to-entry check.
func (e *PaperEngine) breakeven(st *domain.SessionState, at time.Time) Step {
	var step Step
	if st.BreakevenChecked {
		return step
	}
	st.BreakevenChecked = true

	pos := st.Position
	if pos == nil || !pos.IsOpen() {
		e.logger.Info("BREAKEVEN_SKIPPED", slog.String("date", st.Date), slog.String("reason", "no open position"))
		return step
	}
	if !st.HasPrice || pos.UnrealizedPoints(st.LastPrice) <= 0 {
		e.logger.Info("BREAKEVEN_SKIPPED",
			slog.String("date", st.Date),
			slog.String("reason", "not in profit"),
			slog.String("last_price", st.LastPrice.String()))
		return step
	}
	if !pos.StopBehindEntry() {
		return step
	}

	old := pos.StopPrice
	pos.StopPrice = pos.EntryPrice
	pos.BreakevenApplied = true
	if o := st.FindOrder(pos.Side, domain.KindStop); o != nil {
		o.Price = pos.EntryPrice
		o.UpdatedAt = at
	}
	step.BreakevenApplied = true

	e.logger.Info("BREAKEVEN_APPLIED",
		slog.String("date", st.Date),
		slog.String("side", string(pos.Side)),
		slog.String("old_stop", old.String()),
		slog.String("new_stop", pos.StopPrice.String()))
	return step
}

// flatten is the end-of-day rule: close any position and cancel whatever is still working.
func (e *PaperEngine) flatten(st *domain.SessionState, in Input) Step {
	var step Step
	if in.Priced {
		st.LastPrice, st.HasPrice, st.LastUpdate = in.Price, true, in.At
	}

	switch st.Phase {
	case domain.PhaseLongOpen, domain.PhaseShortOpen:
		price := st.LastPrice
		if !st.HasPrice {
			price = st.Position.EntryPrice
		}
		step.Exited = e.close(st, price, domain.CloseEOD, in.At)

	case domain.PhaseAwaitingEntry:
		for i := range st.Orders {
			st.Orders[i].Cancel(in.At)
		}
		st.Phase = domain.PhaseClosed
		e.logger.Info("EOD_NO_BREAKOUT", slog.String("date", st.Date))
	}
	return step
}

// logUnrealized prints open P&L whenever it moves across a whole point.
func (e *PaperEngine) logUnrealized(st *domain.SessionState, prev quant.Price, hadPrev bool, price quant.Price) {
	pos := st.Position
	if pos == nil || !hadPrev {
		return
	}
	before := pos.UnrealizedPoints(prev) / quant.PriceScale
	after := pos.UnrealizedPoints(price) / quant.PriceScale
	if before == after {
		return
	}
	e.logger.Debug("UNREALIZED_PNL",
		slog.String("side", string(pos.Side)),
		slog.String("price", price.String()),
		slog.String("pnl_points", pos.UnrealizedPoints(price).String()))
}
