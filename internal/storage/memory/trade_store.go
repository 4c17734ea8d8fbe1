package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[string][]*model.TradeRecord // run_id -> append-only log
}

func NewTradeStore() *TradeStore {
	return &TradeStore{trades: make(map[string][]*model.TradeRecord)}
}

func (s *TradeStore) AppendTrade(ctx context.Context, trade *model.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *trade
	s.trades[trade.RunID] = append(s.trades[trade.RunID], &cp)
	return nil
}

func (s *TradeStore) GetTrades(ctx context.Context, runID, modelID string) ([]*model.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.TradeRecord
	for _, trade := range s.trades[runID] {
		if trade.ModelID == modelID {
			cp := *trade
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CandleIndex < out[j].CandleIndex
	})
	return out, nil
}
