package postgres

import (
	"context"
	"fmt"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ storage.TradeStore = (*TradeStore)(nil)

func (s *TradeStore) AppendTrade(ctx context.Context, t *model.TradeRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO arena_trades (run_id, model_id, candle_index, action, leverage, size_pct, price, fee, pnl, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.RunID, t.ModelID, t.CandleIndex, t.Action, t.Leverage, t.SizePct,
		t.Price, t.Fee, t.PnL, t.Reason, t.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (s *TradeStore) GetTrades(ctx context.Context, runID, modelID string) ([]*model.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, model_id, candle_index, action, leverage, size_pct, price, fee, pnl, reason, created_at
		FROM arena_trades WHERE run_id = $1 AND model_id = $2
		ORDER BY candle_index ASC, created_at ASC`, runID, modelID)
	if err != nil {
		return nil, fmt.Errorf("select trades: %w", err)
	}
	defer rows.Close()

	var trades []*model.TradeRecord
	for rows.Next() {
		var t model.TradeRecord
		if err := rows.Scan(&t.RunID, &t.ModelID, &t.CandleIndex, &t.Action, &t.Leverage, &t.SizePct,
			&t.Price, &t.Fee, &t.PnL, &t.Reason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
