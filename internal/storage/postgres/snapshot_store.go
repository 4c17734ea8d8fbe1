package postgres

import (
	"context"
	"fmt"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

func (s *SnapshotStore) AppendSnapshot(ctx context.Context, snap *model.EquitySnapshot) error {
	// Idempotent by (run_id, model_id, candle_index): re-delivery on retry is a no-op.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO arena_equity_snapshots (run_id, model_id, candle_index, equity, balance, unrealized_pnl)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, model_id, candle_index) DO NOTHING`,
		snap.RunID, snap.ModelID, snap.CandleIndex, snap.Equity, snap.Balance, snap.UnrealizedPnL)
	if err != nil {
		return fmt.Errorf("insert equity snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) GetSnapshots(ctx context.Context, runID, modelID string) ([]*model.EquitySnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, model_id, candle_index, equity, balance, unrealized_pnl
		FROM arena_equity_snapshots WHERE run_id = $1 AND model_id = $2
		ORDER BY candle_index ASC`, runID, modelID)
	if err != nil {
		return nil, fmt.Errorf("select equity snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*model.EquitySnapshot
	for rows.Next() {
		var snap model.EquitySnapshot
		if err := rows.Scan(&snap.RunID, &snap.ModelID, &snap.CandleIndex,
			&snap.Equity, &snap.Balance, &snap.UnrealizedPnL); err != nil {
			return nil, fmt.Errorf("scan equity snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}
