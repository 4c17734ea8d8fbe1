package memory

import (
	"context"
	"sync"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// StateStore is an in-memory implementation of storage.ModelStateStore.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]map[string]*model.ModelState // run_id -> model_id -> state
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]map[string]*model.ModelState)}
}

func (s *StateStore) UpsertState(ctx context.Context, runID string, state *model.ModelState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states[runID] == nil {
		s.states[runID] = make(map[string]*model.ModelState)
	}
	cp := *state
	s.states[runID][state.ModelID] = &cp
	return nil
}

func (s *StateStore) GetStates(ctx context.Context, runID string) ([]*model.ModelState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.ModelState
	for _, state := range s.states[runID] {
		cp := *state
		out = append(out, &cp)
	}
	return out, nil
}
