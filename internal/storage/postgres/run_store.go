package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

var _ storage.RunStore = (*RunStore)(nil)

func (s *RunStore) CreateRun(ctx context.Context, run *model.RunRecord) error {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal run config: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO arena_runs (id, config, status, current_candle_index, total_candles, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, cfg, run.Status, run.CurrentCandleIndex, run.TotalCandles,
		run.CreatedAt, run.StartedAt, run.CompletedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *RunStore) GetRun(ctx context.Context, runID string) (*model.RunRecord, error) {
	var run model.RunRecord
	var cfg []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, config, status, current_candle_index, total_candles, created_at, started_at, completed_at
		FROM arena_runs WHERE id = $1`, runID).
		Scan(&run.ID, &cfg, &run.Status, &run.CurrentCandleIndex, &run.TotalCandles,
			&run.CreatedAt, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select run: %w", err)
	}

	if err := json.Unmarshal(cfg, &run.Config); err != nil {
		return nil, fmt.Errorf("unmarshal run config: %w", err)
	}
	return &run, nil
}

func (s *RunStore) UpdateRun(ctx context.Context, run *model.RunRecord) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE arena_runs
		SET status = $2, current_candle_index = $3, total_candles = $4, started_at = $5, completed_at = $6
		WHERE id = $1`,
		run.ID, run.Status, run.CurrentCandleIndex, run.TotalCandles, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *RunStore) ListActiveRuns(ctx context.Context) ([]*model.RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, config, status, current_candle_index, total_candles, created_at, started_at, completed_at
		FROM arena_runs WHERE status IN ('pending', 'running')
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select active runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		var cfg []byte
		if err := rows.Scan(&run.ID, &cfg, &run.Status, &run.CurrentCandleIndex, &run.TotalCandles,
			&run.CreatedAt, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal(cfg, &run.Config); err != nil {
			return nil, fmt.Errorf("unmarshal run config: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
