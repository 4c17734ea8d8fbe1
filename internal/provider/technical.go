package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// TechnicalProvider is a rule-based backend: a dual moving average
// crossover over the candle window. It needs no network and never fails,
// which makes it a useful competitive baseline against the LLM backends.
type TechnicalProvider struct {
	shortPeriod int
	longPeriod  int
}

func NewTechnicalProvider(shortPeriod, longPeriod int) *TechnicalProvider {
	if shortPeriod <= 0 {
		shortPeriod = 7
	}
	if longPeriod <= shortPeriod {
		longPeriod = shortPeriod * 3
	}
	return &TechnicalProvider{shortPeriod: shortPeriod, longPeriod: longPeriod}
}

func (p *TechnicalProvider) Name() string { return "technical" }

func (p *TechnicalProvider) Decide(ctx context.Context, req Request) (model.TradeDecision, error) {
	candles := req.Candles
	if len(candles) < p.longPeriod+1 {
		return model.TradeDecision{
			Action:   model.ActionHold,
			Leverage: 1,
			SizePct:  decimal.Zero,
			Reason:   "warming up: not enough candles",
		}, nil
	}

	shortMA := calculateMA(candles, p.shortPeriod, 0)
	longMA := calculateMA(candles, p.longPeriod, 0)
	prevShortMA := calculateMA(candles, p.shortPeriod, 1)
	prevLongMA := calculateMA(candles, p.longPeriod, 1)

	// Golden Cross
	if prevShortMA.LessThanOrEqual(prevLongMA) && shortMA.GreaterThan(longMA) {
		return model.TradeDecision{
			Action:   model.ActionLong,
			Leverage: 2,
			SizePct:  decimal.NewFromFloat(0.3),
			Reason:   fmt.Sprintf("golden cross: MA%d crossed above MA%d", p.shortPeriod, p.longPeriod),
		}, nil
	}
	// Death Cross
	if prevShortMA.GreaterThanOrEqual(prevLongMA) && shortMA.LessThan(longMA) {
		return model.TradeDecision{
			Action:   model.ActionShort,
			Leverage: 2,
			SizePct:  decimal.NewFromFloat(0.3),
			Reason:   fmt.Sprintf("death cross: MA%d crossed below MA%d", p.shortPeriod, p.longPeriod),
		}, nil
	}

	return model.TradeDecision{
		Action:   model.ActionHold,
		Leverage: 1,
		SizePct:  decimal.Zero,
		Reason:   "no crossover",
	}, nil
}

func calculateMA(candles []model.Candle, period int, offset int) decimal.Decimal {
	sum := decimal.Zero
	end := len(candles) - offset
	start := end - period
	for i := start; i < end; i++ {
		sum = sum.Add(candles[i].Close)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}
