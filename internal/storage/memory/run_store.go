package memory

import (
	"context"
	"sync"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*model.RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*model.RunRecord)}
}

func (s *RunStore) CreateRun(ctx context.Context, run *model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; ok {
		return storage.ErrDuplicateKey
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *RunStore) GetRun(ctx context.Context, runID string) (*model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *RunStore) UpdateRun(ctx context.Context, run *model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *RunStore) ListActiveRuns(ctx context.Context) ([]*model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*model.RunRecord
	for _, run := range s.runs {
		if run.Status == model.RunPending || run.Status == model.RunRunning {
			cp := *run
			active = append(active, &cp)
		}
	}
	return active, nil
}
