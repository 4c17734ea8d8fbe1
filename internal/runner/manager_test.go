package runner

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/provider"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
	"github.com/Achrafcosmo/arena-ai/internal/storage/memory"
)

type trendFeed struct{}

func (trendFeed) Candles(ctx context.Context, market, timeframe string, limit int) ([]model.Candle, error) {
	candles := make([]model.Candle, limit)
	price := decimal.NewFromInt(100)
	step := decimal.NewFromFloat(0.5)
	for i := range candles {
		candles[i] = model.Candle{
			Timestamp: int64(i) * 3600000,
			Open:      price,
			High:      price.Add(step),
			Low:       price.Sub(step),
			Close:     price.Add(step),
			Volume:    decimal.NewFromInt(10),
		}
		price = price.Add(step)
	}
	return candles, nil
}

func managerConfig() model.SimulationConfig {
	return model.SimulationConfig{
		Market:               "BTC",
		Timeframe:            "1h",
		InitialBalance:       decimal.NewFromInt(10000),
		MaxLeverage:          5,
		FeeRate:              decimal.NewFromFloat(0.001),
		SlippageRate:         decimal.NewFromFloat(0.0005),
		LiquidationThreshold: decimal.NewFromFloat(0.5),
		CandleLimit:          30,
	}
}

func newTestManager(store *storage.Store) *Manager {
	return NewManager(store, trendFeed{}, nil, provider.Credentials{}, time.Second, zap.NewNop())
}

func TestManager_StartToCompletion(t *testing.T) {
	store := memory.NewStore()
	m := newTestManager(store)

	runID, err := m.Start(managerConfig(), []model.ModelSpec{
		{ID: "ma-bot", Provider: "technical"},
		{ID: "dice", Provider: ""},
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, runID)

	m.Wait(runID)

	ctx := context.Background()
	status, err := m.Status(ctx, runID)
	assert.NoError(t, err)
	assert.Equal(t, model.RunCompleted, status.Run.Status)
	assert.Equal(t, 30, status.Run.CurrentCandleIndex)
	assert.Len(t, status.States, 2)
	assert.NotEmpty(t, status.Logs)

	// leaderboard order: best equity first
	for i := 1; i < len(status.States); i++ {
		assert.True(t, status.States[i-1].Equity.GreaterThanOrEqual(status.States[i].Equity))
	}

	// invariants hold for every model after the run
	for _, state := range status.States {
		assert.True(t, state.Equity.Equal(state.Balance.Add(state.UnrealizedPnL)))
		assert.True(t, state.MaxDrawdown.GreaterThanOrEqual(decimal.Zero))
	}

	reports, _, err := m.Metrics(ctx, runID)
	assert.NoError(t, err)
	assert.Len(t, reports, 2)
	for _, r := range reports {
		assert.NotEmpty(t, r.Grade)
	}

	// finished runs are no longer stoppable
	assert.ErrorIs(t, m.Stop(runID), ErrRunNotActive)
}

func TestManager_StopEndsRunEarly(t *testing.T) {
	store := memory.NewStore()
	m := newTestManager(store)

	cfg := managerConfig()
	cfg.CandleLimit = 2000
	runID, err := m.Start(cfg, []model.ModelSpec{{ID: "dice"}})
	assert.NoError(t, err)

	assert.NoError(t, m.Stop(runID))
	m.Wait(runID)

	status, err := m.Status(context.Background(), runID)
	assert.NoError(t, err)
	assert.Equal(t, model.RunCompleted, status.Run.Status)
}

func TestManager_StartRejectsBadConfig(t *testing.T) {
	m := newTestManager(memory.NewStore())

	cfg := managerConfig()
	cfg.FeeRate = decimal.NewFromInt(2)
	_, err := m.Start(cfg, []model.ModelSpec{{ID: "dice"}})
	assert.Error(t, err)
}

func TestManager_StatusUnknownRun(t *testing.T) {
	m := newTestManager(memory.NewStore())

	_, err := m.Status(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, m.Stop("does-not-exist"), ErrRunNotActive)
}
