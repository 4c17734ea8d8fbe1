package storage

import (
	"context"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// RunStore provides access to simulation run records.
type RunStore interface {
	// CreateRun inserts a new run. Returns ErrDuplicateKey if the id exists.
	CreateRun(ctx context.Context, run *model.RunRecord) error

	// GetRun retrieves a run by id. Returns ErrNotFound if not exists.
	GetRun(ctx context.Context, runID string) (*model.RunRecord, error)

	// UpdateRun persists status, progress and timestamps for an existing run.
	UpdateRun(ctx context.Context, run *model.RunRecord) error

	// ListActiveRuns retrieves runs in pending or running status.
	ListActiveRuns(ctx context.Context) ([]*model.RunRecord, error)
}

// ModelStateStore provides access to per-(run, model) ledger state.
// Upserts are idempotent on (run_id, model_id).
type ModelStateStore interface {
	UpsertState(ctx context.Context, runID string, state *model.ModelState) error

	// GetStates retrieves all model states for a run.
	GetStates(ctx context.Context, runID string) ([]*model.ModelState, error)
}

// TradeStore provides access to the append-only trade audit log.
type TradeStore interface {
	AppendTrade(ctx context.Context, trade *model.TradeRecord) error

	// GetTrades retrieves trades for a (run, model), ordered by candle_index ASC.
	GetTrades(ctx context.Context, runID, modelID string) ([]*model.TradeRecord, error)
}

// SnapshotStore provides access to the append-only equity curve.
type SnapshotStore interface {
	AppendSnapshot(ctx context.Context, snap *model.EquitySnapshot) error

	// GetSnapshots retrieves snapshots for a (run, model), ordered by candle_index ASC.
	GetSnapshots(ctx context.Context, runID, modelID string) ([]*model.EquitySnapshot, error)
}

// LogStore provides access to run log lines.
type LogStore interface {
	AppendLog(ctx context.Context, log *model.RunLog) error

	// RecentLogs retrieves the newest log lines for a run, newest first.
	RecentLogs(ctx context.Context, runID string, limit int) ([]*model.RunLog, error)
}

// Store bundles all stores for dependency wiring.
type Store struct {
	Runs      RunStore
	States    ModelStateStore
	Trades    TradeStore
	Snapshots SnapshotStore
	Logs      LogStore
}
