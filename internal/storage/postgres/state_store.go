package postgres

import (
	"context"
	"fmt"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

// StateStore implements storage.ModelStateStore using PostgreSQL.
type StateStore struct {
	pool *Pool
}

func NewStateStore(pool *Pool) *StateStore {
	return &StateStore{pool: pool}
}

var _ storage.ModelStateStore = (*StateStore)(nil)

func (s *StateStore) UpsertState(ctx context.Context, runID string, state *model.ModelState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO arena_model_run_state (
			run_id, model_id, balance, equity, position_side, position_size,
			position_entry_price, position_leverage, unrealized_pnl, realized_pnl,
			total_trades, winning_trades, peak_equity, max_drawdown, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (run_id, model_id) DO UPDATE SET
			balance = EXCLUDED.balance,
			equity = EXCLUDED.equity,
			position_side = EXCLUDED.position_side,
			position_size = EXCLUDED.position_size,
			position_entry_price = EXCLUDED.position_entry_price,
			position_leverage = EXCLUDED.position_leverage,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			realized_pnl = EXCLUDED.realized_pnl,
			total_trades = EXCLUDED.total_trades,
			winning_trades = EXCLUDED.winning_trades,
			peak_equity = EXCLUDED.peak_equity,
			max_drawdown = EXCLUDED.max_drawdown,
			updated_at = now()`,
		runID, state.ModelID, state.Balance, state.Equity, state.PositionSide, state.PositionSize,
		state.PositionEntryPrice, state.PositionLeverage, state.UnrealizedPnL, state.RealizedPnL,
		state.TotalTrades, state.WinningTrades, state.PeakEquity, state.MaxDrawdown)
	if err != nil {
		return fmt.Errorf("upsert model state: %w", err)
	}
	return nil
}

func (s *StateStore) GetStates(ctx context.Context, runID string) ([]*model.ModelState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT model_id, balance, equity, position_side, position_size,
			position_entry_price, position_leverage, unrealized_pnl, realized_pnl,
			total_trades, winning_trades, peak_equity, max_drawdown
		FROM arena_model_run_state WHERE run_id = $1
		ORDER BY equity DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("select model states: %w", err)
	}
	defer rows.Close()

	var states []*model.ModelState
	for rows.Next() {
		var st model.ModelState
		if err := rows.Scan(&st.ModelID, &st.Balance, &st.Equity, &st.PositionSide, &st.PositionSize,
			&st.PositionEntryPrice, &st.PositionLeverage, &st.UnrealizedPnL, &st.RealizedPnL,
			&st.TotalTrades, &st.WinningTrades, &st.PeakEquity, &st.MaxDrawdown); err != nil {
			return nil, fmt.Errorf("scan model state: %w", err)
		}
		states = append(states, &st)
	}
	return states, rows.Err()
}
