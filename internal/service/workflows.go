package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/avelhao/parley/internal/runtime"
	"github.com/avelhao/parley/pkg/domain"
	"github.com/avelhao/parley/pkg/ports"
)

// WorkflowService manages workflow definitions. Every write validates the
// definition the same way the runtime will, so a stored workflow is always
// executable.
type WorkflowService struct {
	store ports.WorkflowStore
}

// NewWorkflowService wires definition management over a store.
func NewWorkflowService(store ports.WorkflowStore) *WorkflowService {
	return &WorkflowService{store: store}
}

// Create validates and persists a new definition. A missing ID is assigned;
// the version always starts at 1.
func (s *WorkflowService) Create(ctx context.Context, wf *domain.Workflow) (*domain.Workflow, error) {
	if err := ValidateWorkflow(wf); err != nil {
		return nil, err
	}
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	wf.Version = 1
	if err := s.store.Create(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// Update validates and replaces an existing definition, bumping its version.
func (s *WorkflowService) Update(ctx context.Context, wf *domain.Workflow) (*domain.Workflow, error) {
	if err := ValidateWorkflow(wf); err != nil {
		return nil, err
	}
	current, err := s.store.Get(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	wf.Version = current.Version + 1
	if err := s.store.Update(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// Get returns a stored definition.
func (s *WorkflowService) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a stored definition.
func (s *WorkflowService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// List returns all stored definitions.
func (s *WorkflowService) List(ctx context.Context) ([]domain.Workflow, error) {
	return s.store.List(ctx)
}

// ValidateWorkflow checks a definition the way the runtime will execute it:
// structural checks first, then every node's configuration through the
// executor constructors. Edge and next ids are not resolved here; the
// resolver tolerates dangling references at execution time.
func ValidateWorkflow(wf *domain.Workflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(wf.Nodes))
	for _, node := range wf.Nodes {
		if node.ID == "" {
			return &domain.ConfigError{NodeID: node.ID, Reason: "node ID must not be empty"}
		}
		if _, dup := seen[node.ID]; dup {
			return &domain.ConfigError{NodeID: node.ID, Reason: "duplicate node ID"}
		}
		seen[node.ID] = struct{}{}

		if _, err := runtime.NewExecutor(node, runtime.Env{}); err != nil {
			return err
		}
	}
	return nil
}

// LintWorkflow runs ValidateWorkflow plus stricter checks that the runtime
// does not enforce, resolving every edge endpoint. The validate command uses
// it to catch typos before a definition ships.
func LintWorkflow(wf *domain.Workflow) error {
	if err := ValidateWorkflow(wf); err != nil {
		return err
	}

	byID := make(map[string]struct{}, len(wf.Nodes))
	for _, node := range wf.Nodes {
		byID[node.ID] = struct{}{}
	}
	for _, edge := range wf.Edges {
		if _, ok := byID[edge.Source]; !ok {
			return &domain.ConfigError{NodeID: edge.Source, Reason: fmt.Sprintf("edge %s has an unknown source node", edge.ID)}
		}
		if _, ok := byID[edge.Target]; !ok {
			return &domain.ConfigError{NodeID: edge.Target, Reason: fmt.Sprintf("edge %s has an unknown target node", edge.ID)}
		}
	}
	return nil
}
