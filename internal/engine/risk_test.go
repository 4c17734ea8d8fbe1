package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

func TestRiskEngine_EquityAndDrawdown(t *testing.T) {
	r := NewRiskEngine(testConfig())
	e := NewTradeExecutor(testConfig())
	state := model.NewModelState("m1", decimal.NewFromInt(10000))

	e.Execute(state, model.TradeDecision{
		Action:   model.ActionLong,
		Leverage: 2,
		SizePct:  decimal.NewFromFloat(0.2),
	}, candleAt(100))

	// flat price: equity = balance + unrealized, still above the floor
	leg := r.Evaluate(state, decimal.NewFromInt(100))
	assert.Nil(t, leg)
	assert.True(t, state.Equity.Equal(state.Balance.Add(state.UnrealizedPnL)))

	// price rallies: peak tracks equity, drawdown stays where it was
	r.Evaluate(state, decimal.NewFromInt(105))
	assert.True(t, state.PeakEquity.Equal(state.Equity))
	prevDrawdown := state.MaxDrawdown

	// price dips: drawdown grows, never shrinks
	r.Evaluate(state, decimal.NewFromInt(101))
	assert.True(t, state.MaxDrawdown.GreaterThanOrEqual(prevDrawdown))
	assert.True(t, state.PeakEquity.GreaterThan(state.Equity))

	r.Evaluate(state, decimal.NewFromInt(104))
	drawdownAfterRecovery := state.MaxDrawdown
	r.Evaluate(state, decimal.NewFromInt(104))
	assert.True(t, state.MaxDrawdown.Equal(drawdownAfterRecovery))
}

func TestRiskEngine_Liquidation(t *testing.T) {
	r := NewRiskEngine(testConfig())
	e := NewTradeExecutor(testConfig())
	state := model.NewModelState("m1", decimal.NewFromInt(10000))

	// 5x long on half the balance: a ~4% price drop takes equity under
	// peak * (1 - 0.05) = 9500
	e.Execute(state, model.TradeDecision{
		Action:   model.ActionLong,
		Leverage: 5,
		SizePct:  decimal.NewFromFloat(0.5),
	}, candleAt(100))
	tradesBefore := state.TotalTrades
	balanceBefore := state.Balance

	leg := r.Evaluate(state, decimal.NewFromInt(96))
	assert.NotNil(t, leg)
	assert.Equal(t, model.ActionLiquidation, leg.Action)
	assert.NotNil(t, leg.PnL)
	assert.True(t, leg.PnL.IsNegative())
	assert.True(t, leg.Fee.IsZero())

	// position zeroed, open pnl folded into balance, no fee charged
	assert.Equal(t, model.SideNone, state.PositionSide)
	assert.True(t, state.PositionSize.IsZero())
	assert.Nil(t, state.PositionEntryPrice)
	assert.True(t, state.Equity.Equal(state.Balance))
	assert.True(t, state.UnrealizedPnL.IsZero())
	assert.True(t, state.Balance.Equal(balanceBefore.Add(*leg.PnL)))
	assert.Equal(t, tradesBefore+1, state.TotalTrades)

	// next candle: already flat, nothing fires
	assert.Nil(t, r.Evaluate(state, decimal.NewFromInt(90)))
}

func TestRiskEngine_SameCandleAsOpen(t *testing.T) {
	// Opening costs alone can breach the floor when the threshold is tight.
	cfg := testConfig()
	cfg.LiquidationThreshold = decimal.NewFromFloat(0.001)
	r := NewRiskEngine(cfg)
	e := NewTradeExecutor(cfg)
	state := model.NewModelState("m1", decimal.NewFromInt(10000))

	// opening fee = 10000 * 1 * 10 * 0.001 = 100, plus slippage on entry:
	// equity drops well below 10000 * 0.999
	e.Execute(state, model.TradeDecision{
		Action:   model.ActionLong,
		Leverage: 10,
		SizePct:  decimal.NewFromInt(1),
	}, candleAt(100))

	leg := r.Evaluate(state, decimal.NewFromInt(100))
	assert.NotNil(t, leg)
	assert.Equal(t, model.ActionLiquidation, leg.Action)
	assert.Equal(t, model.SideNone, state.PositionSide)
}
