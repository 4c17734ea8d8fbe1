package engine

import (
	"github.com/shopspring/decimal"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// ExecutedLeg is one ledger mutation produced by applying a decision.
// A reversal produces two legs (its close and its open); a liquidation
// produces one. Legs map 1:1 onto trade records.
type ExecutedLeg struct {
	Action   model.Action
	Leverage int
	SizePct  decimal.Decimal
	Price    decimal.Decimal
	Fee      decimal.Decimal
	PnL      *decimal.Decimal // net realized pnl, only on realizing legs
	Reason   string
}

// TradeExecutor applies sanitized decisions to a ledger. It is a pure
// state machine over {NONE, LONG, SHORT}; all prices and rates are decimal
// so repeated runs over the same candles are bit-for-bit reproducible.
type TradeExecutor struct {
	cfg model.SimulationConfig
}

func NewTradeExecutor(cfg model.SimulationConfig) *TradeExecutor {
	return &TradeExecutor{cfg: cfg}
}

var one = decimal.NewFromInt(1)

// Execute mutates state according to the decision at the given candle and
// returns the executed legs in order. HOLD returns nothing. The decision
// must already be sanitized.
func (e *TradeExecutor) Execute(state *model.ModelState, decision model.TradeDecision, candle model.Candle) []ExecutedLeg {
	if decision.Action == model.ActionHold {
		return nil
	}

	closePrice := candle.Close

	switch decision.Action {
	case model.ActionClose:
		if state.PositionSide == model.SideNone {
			// Decision still audited, nothing to execute.
			return []ExecutedLeg{{
				Action:   model.ActionClose,
				Leverage: decision.Leverage,
				SizePct:  decision.SizePct,
				Price:    closePrice,
				Fee:      decimal.Zero,
				Reason:   decision.Reason,
			}}
		}
		leg := e.closePosition(state, closePrice, decision.Reason)
		return []ExecutedLeg{leg}

	case model.ActionLong, model.ActionShort:
		if decision.SizePct.IsZero() {
			// Sized to nothing: equivalent to HOLD, but the decision is audited.
			return []ExecutedLeg{{
				Action:   decision.Action,
				Leverage: decision.Leverage,
				SizePct:  decision.SizePct,
				Price:    closePrice,
				Fee:      decimal.Zero,
				Reason:   decision.Reason,
			}}
		}

		var legs []ExecutedLeg

		// A reversal closes the opposite position first, with its own fee
		// leg and trade count.
		if (state.PositionSide == model.SideLong && decision.Action == model.ActionShort) ||
			(state.PositionSide == model.SideShort && decision.Action == model.ActionLong) {
			legs = append(legs, e.closePosition(state, closePrice, "reversal: "+decision.Reason))
		}

		legs = append(legs, e.openPosition(state, decision, closePrice))
		return legs
	}

	return nil
}

// closePosition realizes pnl at the exit price and flattens the ledger.
func (e *TradeExecutor) closePosition(state *model.ModelState, exitPrice decimal.Decimal, reason string) ExecutedLeg {
	pnl := unrealizedPnL(state, exitPrice)
	fee := state.PositionSize.Abs().Mul(exitPrice).Mul(e.cfg.FeeRate)
	net := pnl.Sub(fee)

	state.Balance = state.Balance.Add(net)
	state.RealizedPnL = state.RealizedPnL.Add(net)
	if pnl.IsPositive() {
		state.WinningTrades++
	}
	state.TotalTrades++

	state.PositionSide = model.SideNone
	state.PositionSize = decimal.Zero
	state.PositionEntryPrice = nil
	state.PositionLeverage = 1

	return ExecutedLeg{
		Action:   model.ActionClose,
		Leverage: 1,
		SizePct:  decimal.Zero,
		Price:    exitPrice,
		Fee:      fee,
		PnL:      &net,
		Reason:   reason,
	}
}

// openPosition sizes a fresh position from the current balance. Re-entry
// on the same side replaces the held position rather than averaging in.
func (e *TradeExecutor) openPosition(state *model.ModelState, decision model.TradeDecision, closePrice decimal.Decimal) ExecutedLeg {
	leverage := decimal.NewFromInt(int64(decision.Leverage))
	notional := state.Balance.Mul(decision.SizePct).Mul(leverage)

	// Slippage degrades the fill: longs pay up, shorts sell down.
	var executionPrice decimal.Decimal
	if decision.Action == model.ActionLong {
		executionPrice = closePrice.Mul(one.Add(e.cfg.SlippageRate))
	} else {
		executionPrice = closePrice.Mul(one.Sub(e.cfg.SlippageRate))
	}

	size := notional.Div(executionPrice)
	if decision.Action == model.ActionShort {
		size = size.Neg()
	}

	fee := notional.Mul(e.cfg.FeeRate)
	state.Balance = state.Balance.Sub(fee)

	if decision.Action == model.ActionLong {
		state.PositionSide = model.SideLong
	} else {
		state.PositionSide = model.SideShort
	}
	state.PositionSize = size
	entry := executionPrice
	state.PositionEntryPrice = &entry
	state.PositionLeverage = decision.Leverage
	state.TotalTrades++ // outcome unknown until close, winning_trades untouched

	return ExecutedLeg{
		Action:   decision.Action,
		Leverage: decision.Leverage,
		SizePct:  decision.SizePct,
		Price:    executionPrice,
		Fee:      fee,
		Reason:   decision.Reason,
	}
}

// unrealizedPnL is position_size * (price - entry), zero when flat.
func unrealizedPnL(state *model.ModelState, price decimal.Decimal) decimal.Decimal {
	if state.PositionSide == model.SideNone || state.PositionEntryPrice == nil {
		return decimal.Zero
	}
	return state.PositionSize.Mul(price.Sub(*state.PositionEntryPrice))
}
