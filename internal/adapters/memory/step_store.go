package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/avelhao/parley/pkg/domain"
)

// RunStepStore is an in-memory ports.RunStepStore. Steps are kept per run in
// append order.
type RunStepStore struct {
	mu    sync.RWMutex
	steps map[uuid.UUID][]domain.RunStep
}

// NewRunStepStore creates an empty store.
func NewRunStepStore() *RunStepStore {
	return &RunStepStore{steps: make(map[uuid.UUID][]domain.RunStep)}
}

func (s *RunStepStore) Append(ctx context.Context, step *domain.RunStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.steps[step.RunID] = append(s.steps[step.RunID], cloneStep(*step))
	return nil
}

func (s *RunStepStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RunStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.steps[runID]
	out := make([]domain.RunStep, len(history))
	for i, step := range history {
		out[i] = cloneStep(step)
	}
	return out, nil
}

func cloneStep(step domain.RunStep) domain.RunStep {
	out := step
	out.InputMessages = append([]domain.Message(nil), step.InputMessages...)
	out.OutputMessages = append([]domain.Message(nil), step.OutputMessages...)
	out.VariablesSnapshot = cloneMap(step.VariablesSnapshot)
	return out
}
