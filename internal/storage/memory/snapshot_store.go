package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string][]*model.EquitySnapshot // run_id -> append-only curve points
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snaps: make(map[string][]*model.EquitySnapshot)}
}

func (s *SnapshotStore) AppendSnapshot(ctx context.Context, snap *model.EquitySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	s.snaps[snap.RunID] = append(s.snaps[snap.RunID], &cp)
	return nil
}

func (s *SnapshotStore) GetSnapshots(ctx context.Context, runID, modelID string) ([]*model.EquitySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.EquitySnapshot
	for _, snap := range s.snaps[runID] {
		if snap.ModelID == modelID {
			cp := *snap
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CandleIndex < out[j].CandleIndex
	})
	return out, nil
}
