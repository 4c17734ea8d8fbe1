package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

func TestRunStore_Lifecycle(t *testing.T) {
	s := NewRunStore()
	ctx := context.Background()

	run := &model.RunRecord{ID: "r1", Status: model.RunRunning, TotalCandles: 100, CreatedAt: time.Now()}
	assert.NoError(t, s.CreateRun(ctx, run))
	assert.ErrorIs(t, s.CreateRun(ctx, run), storage.ErrDuplicateKey)

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// updates do not leak through the caller's pointer
	run.CurrentCandleIndex = 50
	got, err := s.GetRun(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, 0, got.CurrentCandleIndex)

	assert.NoError(t, s.UpdateRun(ctx, run))
	got, _ = s.GetRun(ctx, "r1")
	assert.Equal(t, 50, got.CurrentCandleIndex)

	active, err := s.ListActiveRuns(ctx)
	assert.NoError(t, err)
	assert.Len(t, active, 1)

	run.Status = model.RunCompleted
	assert.NoError(t, s.UpdateRun(ctx, run))
	active, _ = s.ListActiveRuns(ctx)
	assert.Empty(t, active)
}

func TestStateStore_UpsertIsIdempotent(t *testing.T) {
	s := NewStateStore()
	ctx := context.Background()

	state := model.NewModelState("m1", decimal.NewFromInt(10000))
	assert.NoError(t, s.UpsertState(ctx, "r1", state))

	state.Balance = decimal.NewFromInt(9000)
	assert.NoError(t, s.UpsertState(ctx, "r1", state))
	assert.NoError(t, s.UpsertState(ctx, "r1", state))

	states, err := s.GetStates(ctx, "r1")
	assert.NoError(t, err)
	assert.Len(t, states, 1)
	assert.True(t, states[0].Balance.Equal(decimal.NewFromInt(9000)))
}

func TestLogStore_RecentNewestFirst(t *testing.T) {
	s := NewLogStore()
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		assert.NoError(t, s.AppendLog(ctx, &model.RunLog{RunID: "r1", Level: "info", Message: msg}))
	}

	logs, err := s.RecentLogs(ctx, "r1", 2)
	assert.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Equal(t, "third", logs[0].Message)
	assert.Equal(t, "second", logs[1].Message)

	// limit above the count returns everything
	logs, _ = s.RecentLogs(ctx, "r1", 10)
	assert.Len(t, logs, 3)
}

func TestTradeAndSnapshotStores_AppendOrder(t *testing.T) {
	trades := NewTradeStore()
	snaps := NewSnapshotStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, trades.AppendTrade(ctx, &model.TradeRecord{
			RunID: "r1", ModelID: "m1", CandleIndex: i, Action: model.ActionHold,
		}))
		assert.NoError(t, snaps.AppendSnapshot(ctx, &model.EquitySnapshot{
			RunID: "r1", ModelID: "m1", CandleIndex: i, Equity: decimal.NewFromInt(10000),
		}))
	}

	got, err := trades.GetTrades(ctx, "r1", "m1")
	assert.NoError(t, err)
	assert.Len(t, got, 3)
	for i, trade := range got {
		assert.Equal(t, i, trade.CandleIndex)
	}

	// other models see nothing
	got, _ = trades.GetTrades(ctx, "r1", "m2")
	assert.Empty(t, got)

	curve, err := snaps.GetSnapshots(ctx, "r1", "m1")
	assert.NoError(t, err)
	assert.Len(t, curve, 3)
}
