package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/provider"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
	"github.com/Achrafcosmo/arena-ai/internal/storage/memory"
)

type fixedFeed struct {
	candles []model.Candle
	err     error
}

func (f *fixedFeed) Candles(ctx context.Context, market, timeframe string, limit int) ([]model.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.candles) {
		return f.candles[:limit], nil
	}
	return f.candles, nil
}

type scriptedProvider struct {
	name  string
	calls atomic.Int64
	fn    func(call int64, req provider.Request) (model.TradeDecision, error)
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Decide(ctx context.Context, req provider.Request) (model.TradeDecision, error) {
	return s.fn(s.calls.Add(1), req)
}

func holdOnly(int64, provider.Request) (model.TradeDecision, error) {
	return model.TradeDecision{Action: model.ActionHold, Leverage: 1}, nil
}

func feedOf(closes ...float64) *fixedFeed {
	candles := make([]model.Candle, len(closes))
	for i, close := range closes {
		c := decimal.NewFromFloat(close)
		candles[i] = model.Candle{Timestamp: int64(i) * 3600000, Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(1)}
	}
	return &fixedFeed{candles: candles}
}

func TestOrchestrator_FullRun(t *testing.T) {
	store := memory.NewStore()
	feed := feedOf(100, 101, 102, 103, 104)

	// trader goes long on the first candle and sits on it
	trader := &scriptedProvider{name: "trader", fn: func(call int64, req provider.Request) (model.TradeDecision, error) {
		if call == 1 {
			return model.TradeDecision{Action: model.ActionLong, Leverage: 2, SizePct: decimal.NewFromFloat(0.2), Reason: "enter"}, nil
		}
		return model.TradeDecision{Action: model.ActionHold, Leverage: 1}, nil
	}}
	// broken always errors; its failures must not touch the sibling
	broken := &scriptedProvider{name: "broken", fn: func(int64, provider.Request) (model.TradeDecision, error) {
		return model.TradeDecision{}, errors.New("boom")
	}}

	participants := []Participant{
		{Spec: model.ModelSpec{ID: "trader"}, Backend: trader},
		{Spec: model.ModelSpec{ID: "broken"}, Backend: broken},
	}

	o := NewOrchestrator("run-test", testConfig(), participants, feed, store, nil, 0, zap.NewNop())
	ctx := context.Background()
	assert.NoError(t, o.Initialize(ctx))
	assert.NoError(t, o.Run(ctx))

	run, err := store.Runs.GetRun(ctx, "run-test")
	assert.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 5, run.CurrentCandleIndex)
	assert.Equal(t, 5, run.TotalCandles)
	assert.NotNil(t, run.CompletedAt)

	states, err := store.States.GetStates(ctx, "run-test")
	assert.NoError(t, err)
	assert.Len(t, states, 2)

	for _, state := range states {
		// one snapshot per candle per model, equity always consistent
		snaps, err := store.Snapshots.GetSnapshots(ctx, "run-test", state.ModelID)
		assert.NoError(t, err)
		assert.Len(t, snaps, 5)
		assert.True(t, state.Equity.Equal(state.Balance.Add(state.UnrealizedPnL)))

		switch state.ModelID {
		case "trader":
			assert.Equal(t, model.SideLong, state.PositionSide)
			assert.Equal(t, 1, state.TotalTrades)
			// rising prices: the open position is in profit
			assert.True(t, state.UnrealizedPnL.IsPositive())
		case "broken":
			// every decision degraded to HOLD, ledger untouched
			assert.Equal(t, model.SideNone, state.PositionSide)
			assert.Equal(t, 0, state.TotalTrades)
			assert.True(t, state.Balance.Equal(decimal.NewFromInt(10000)))
		}
	}

	// the trader's open leg is on the audit log, the broken model's is empty
	trades, err := store.Trades.GetTrades(ctx, "run-test", "trader")
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, model.ActionLong, trades[0].Action)
	assert.Equal(t, 0, trades[0].CandleIndex)

	trades, err = store.Trades.GetTrades(ctx, "run-test", "broken")
	assert.NoError(t, err)
	assert.Empty(t, trades)
}

func TestOrchestrator_CancellationCompletesPartially(t *testing.T) {
	store := memory.NewStore()
	feed := feedOf(100, 101, 102, 103, 104, 105, 106, 107)

	ctx, cancel := context.WithCancel(context.Background())
	hold := &scriptedProvider{name: "hold", fn: func(call int64, req provider.Request) (model.TradeDecision, error) {
		if call == 3 {
			cancel()
		}
		return model.TradeDecision{Action: model.ActionHold, Leverage: 1}, nil
	}}

	o := NewOrchestrator("run-cancel", testConfig(),
		[]Participant{{Spec: model.ModelSpec{ID: "hold"}, Backend: hold}},
		feed, store, nil, 0, zap.NewNop())
	assert.NoError(t, o.Initialize(context.Background()))
	assert.NoError(t, o.Run(ctx))

	// a stop is not a failure: partial coverage, completed status
	run, err := store.Runs.GetRun(context.Background(), "run-cancel")
	assert.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 3, run.CurrentCandleIndex)
	assert.Less(t, run.CurrentCandleIndex, run.TotalCandles)
}

func TestOrchestrator_InitializeRejectsBadConfig(t *testing.T) {
	store := memory.NewStore()
	cfg := testConfig()
	cfg.MaxLeverage = 0

	o := NewOrchestrator("run-bad", cfg,
		[]Participant{{Spec: model.ModelSpec{ID: "m"}, Backend: &scriptedProvider{name: "m", fn: holdOnly}}},
		feedOf(100), store, nil, 0, zap.NewNop())
	err := o.Initialize(context.Background())
	var invalid model.ErrInvalidConfig
	assert.ErrorAs(t, err, &invalid)
}

func TestOrchestrator_InitializeRequiresCandles(t *testing.T) {
	store := memory.NewStore()

	o := NewOrchestrator("run-empty", testConfig(),
		[]Participant{{Spec: model.ModelSpec{ID: "m"}, Backend: &scriptedProvider{name: "m", fn: holdOnly}}},
		&fixedFeed{}, store, nil, 0, zap.NewNop())
	assert.Error(t, o.Initialize(context.Background()))

	o = NewOrchestrator("run-nomodels", testConfig(), nil, feedOf(100), store, nil, 0, zap.NewNop())
	assert.Error(t, o.Initialize(context.Background()))
}

func TestOrchestrator_SameCandleLiquidationRecorded(t *testing.T) {
	store := memory.NewStore()
	cfg := testConfig()
	cfg.LiquidationThreshold = decimal.NewFromFloat(0.001)

	// max-size max-leverage open whose costs alone breach the floor
	reckless := &scriptedProvider{name: "reckless", fn: func(call int64, req provider.Request) (model.TradeDecision, error) {
		if call == 1 {
			return model.TradeDecision{Action: model.ActionLong, Leverage: 10, SizePct: decimal.NewFromInt(1)}, nil
		}
		return model.TradeDecision{Action: model.ActionHold, Leverage: 1}, nil
	}}

	o := NewOrchestrator("run-liq", cfg,
		[]Participant{{Spec: model.ModelSpec{ID: "reckless"}, Backend: reckless}},
		feedOf(100, 100), store, nil, 0, zap.NewNop())
	ctx := context.Background()
	assert.NoError(t, o.Initialize(ctx))
	assert.NoError(t, o.Run(ctx))

	trades, err := store.Trades.GetTrades(ctx, "run-liq", "reckless")
	assert.NoError(t, err)
	assert.Len(t, trades, 2)
	assert.Equal(t, model.ActionLong, trades[0].Action)
	assert.Equal(t, model.ActionLiquidation, trades[1].Action)
	// open and liquidation landed on the same candle
	assert.Equal(t, trades[0].CandleIndex, trades[1].CandleIndex)
}

// stopMidCallProvider stops the run from inside its own decision call,
// then reports whether the stop reached its context.
type stopMidCallProvider struct {
	cancel context.CancelFunc
}

func (p *stopMidCallProvider) Name() string { return "stop-mid-call" }

func (p *stopMidCallProvider) Decide(ctx context.Context, req provider.Request) (model.TradeDecision, error) {
	p.cancel()
	if err := ctx.Err(); err != nil {
		return model.TradeDecision{}, err
	}
	return model.TradeDecision{Action: model.ActionLong, Leverage: 2, SizePct: decimal.NewFromFloat(0.1), Reason: "enter"}, nil
}

func TestOrchestrator_StopDoesNotAbortInFlightDecision(t *testing.T) {
	store := memory.NewStore()
	feed := feedOf(100, 101, 102, 103, 104)

	ctx, cancel := context.WithCancel(context.Background())
	eager := &stopMidCallProvider{cancel: cancel}

	o := NewOrchestrator("run-inflight", testConfig(),
		[]Participant{{Spec: model.ModelSpec{ID: "eager"}, Backend: eager}},
		feed, store, nil, 0, zap.NewNop())
	assert.NoError(t, o.Initialize(context.Background()))
	assert.NoError(t, o.Run(ctx))

	// the stop arrived mid-call: the in-flight decision still executed,
	// the run ended at the next candle boundary
	run, err := store.Runs.GetRun(context.Background(), "run-inflight")
	assert.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 1, run.CurrentCandleIndex)

	trades, err := store.Trades.GetTrades(context.Background(), "run-inflight", "eager")
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, model.ActionLong, trades[0].Action)
}

type failingStateStore struct {
	storage.ModelStateStore
}

func (failingStateStore) UpsertState(context.Context, string, *model.ModelState) error {
	return errors.New("disk full")
}

func TestOrchestrator_InitializeFailureMarksRunFailed(t *testing.T) {
	store := memory.NewStore()
	store.States = failingStateStore{}

	o := NewOrchestrator("run-initfail", testConfig(),
		[]Participant{{Spec: model.ModelSpec{ID: "m"}, Backend: &scriptedProvider{name: "m", fn: holdOnly}}},
		feedOf(100), store, nil, 0, zap.NewNop())
	assert.Error(t, o.Initialize(context.Background()))

	// the run record was already persisted; it must not linger as active
	run, err := store.Runs.GetRun(context.Background(), "run-initfail")
	assert.NoError(t, err)
	assert.Equal(t, model.RunFailed, run.Status)

	active, err := store.Runs.ListActiveRuns(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, active)
}
