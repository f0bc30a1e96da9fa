package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/avelhao/parley/pkg/domain"
)

// RunStore is an in-memory ports.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]domain.Run
}

// NewRunStore creates an empty store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[uuid.UUID]domain.Run)}
}

func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrRunNotFound)
	}
	out := cloneRun(run)
	return &out, nil
}

func (s *RunStore) Create(ctx context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = cloneRun(*run)
	return nil
}

func (s *RunStore) Update(ctx context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		return fmt.Errorf("run %s: %w", run.ID, domain.ErrRunNotFound)
	}
	s.runs[run.ID] = cloneRun(*run)
	return nil
}

func cloneRun(run domain.Run) domain.Run {
	out := run
	out.Variables = cloneMap(run.Variables)
	if run.FinishedAt != nil {
		finished := *run.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}
