package engine

import (
	"github.com/shopspring/decimal"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// RiskEngine recomputes equity and drawdown after every execution and
// enforces liquidation. It runs once per model per candle, always after
// the agent's own decision, so a position opened this candle can be
// liquidated in the same candle.
type RiskEngine struct {
	cfg model.SimulationConfig
}

func NewRiskEngine(cfg model.SimulationConfig) *RiskEngine {
	return &RiskEngine{cfg: cfg}
}

// Evaluate updates unrealized pnl, equity, peak and max drawdown, then
// checks the liquidation floor. Returns the forced-close leg when a
// liquidation fires, nil otherwise.
func (r *RiskEngine) Evaluate(state *model.ModelState, closePrice decimal.Decimal) *ExecutedLeg {
	state.UnrealizedPnL = unrealizedPnL(state, closePrice)
	state.Equity = state.Balance.Add(state.UnrealizedPnL)

	if state.Equity.GreaterThan(state.PeakEquity) {
		state.PeakEquity = state.Equity
	}

	drawdown := state.PeakEquity.Sub(state.Equity).Div(state.PeakEquity)
	if drawdown.GreaterThan(state.MaxDrawdown) {
		state.MaxDrawdown = drawdown
	}

	floor := state.PeakEquity.Mul(one.Sub(r.cfg.LiquidationThreshold))
	if state.Equity.GreaterThan(floor) || state.PositionSide == model.SideNone {
		return nil
	}

	// Force close at current equity: fold the open pnl into the balance.
	realized := state.UnrealizedPnL
	state.Balance = state.Balance.Add(realized)
	state.RealizedPnL = state.RealizedPnL.Add(realized)
	state.PositionSide = model.SideNone
	state.PositionSize = decimal.Zero
	state.PositionEntryPrice = nil
	state.PositionLeverage = 1
	state.UnrealizedPnL = decimal.Zero
	state.Equity = state.Balance
	state.TotalTrades++

	return &ExecutedLeg{
		Action:   model.ActionLiquidation,
		Leverage: 1,
		SizePct:  decimal.Zero,
		Price:    closePrice,
		Fee:      decimal.Zero,
		PnL:      &realized,
		Reason:   "equity fell below liquidation floor",
	}
}
