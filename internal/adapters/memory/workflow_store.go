package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/avelhao/parley/pkg/domain"
)

// WorkflowStore is an in-memory ports.WorkflowStore.
type WorkflowStore struct {
	mu        sync.RWMutex
	workflows map[string]domain.Workflow
}

// NewWorkflowStore creates an empty store.
func NewWorkflowStore() *WorkflowStore {
	return &WorkflowStore{workflows: make(map[string]domain.Workflow)}
}

func (s *WorkflowStore) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrWorkflowNotFound)
	}
	out := cloneWorkflow(wf)
	return &out, nil
}

func (s *WorkflowStore) Create(ctx context.Context, wf *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[wf.ID]; exists {
		return fmt.Errorf("workflow %s already exists", wf.ID)
	}
	s.workflows[wf.ID] = cloneWorkflow(*wf)
	return nil
}

func (s *WorkflowStore) Update(ctx context.Context, wf *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[wf.ID]; !exists {
		return fmt.Errorf("workflow %s: %w", wf.ID, domain.ErrWorkflowNotFound)
	}
	s.workflows[wf.ID] = cloneWorkflow(*wf)
	return nil
}

func (s *WorkflowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[id]; !exists {
		return fmt.Errorf("workflow %s: %w", id, domain.ErrWorkflowNotFound)
	}
	delete(s.workflows, id)
	return nil
}

func (s *WorkflowStore) List(ctx context.Context) ([]domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, cloneWorkflow(wf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneWorkflow(wf domain.Workflow) domain.Workflow {
	out := wf
	out.Variables = cloneMap(wf.Variables)
	if wf.Nodes != nil {
		out.Nodes = make([]domain.Node, len(wf.Nodes))
		for i, node := range wf.Nodes {
			out.Nodes[i] = node
			out.Nodes[i].Config = cloneMap(node.Config)
		}
	}
	if wf.Edges != nil {
		out.Edges = append([]domain.Edge(nil), wf.Edges...)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
