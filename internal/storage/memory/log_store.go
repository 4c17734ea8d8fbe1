package memory

import (
	"context"
	"sync"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

// LogStore is an in-memory implementation of storage.LogStore.
type LogStore struct {
	mu   sync.RWMutex
	logs map[string][]*model.RunLog
}

func NewLogStore() *LogStore {
	return &LogStore{logs: make(map[string][]*model.RunLog)}
}

func (s *LogStore) AppendLog(ctx context.Context, log *model.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *log
	s.logs[log.RunID] = append(s.logs[log.RunID], &cp)
	return nil
}

func (s *LogStore) RecentLogs(ctx context.Context, runID string, limit int) ([]*model.RunLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.logs[runID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}

	// Newest first.
	out := make([]*model.RunLog, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}

// NewStore bundles in-memory implementations of every store.
func NewStore() *storage.Store {
	return &storage.Store{
		Runs:      NewRunStore(),
		States:    NewStateStore(),
		Trades:    NewTradeStore(),
		Snapshots: NewSnapshotStore(),
		Logs:      NewLogStore(),
	}
}
