package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/avelhao/parley/pkg/domain"
)

// WorkflowStore persists workflow definitions.
type WorkflowStore interface {
	// Get retrieves a workflow by ID.
	// Returns domain.ErrWorkflowNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Workflow, error)

	// Create persists a new workflow definition.
	Create(ctx context.Context, wf *domain.Workflow) error

	// Update replaces an existing workflow definition.
	Update(ctx context.Context, wf *domain.Workflow) error

	// Delete removes a workflow definition.
	Delete(ctx context.Context, id string) error

	// List returns all stored workflow definitions.
	List(ctx context.Context) ([]domain.Workflow, error)
}

// RunStore persists run records.
type RunStore interface {
	// Get retrieves a run by ID.
	// Returns domain.ErrRunNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// Create persists a new run record.
	Create(ctx context.Context, run *domain.Run) error

	// Update replaces an existing run record.
	Update(ctx context.Context, run *domain.Run) error
}

// RunStepStore persists the per-step execution history of runs.
type RunStepStore interface {
	// Append adds a step record to a run's history.
	Append(ctx context.Context, step *domain.RunStep) error

	// ListByRun returns the step records of a run in execution order.
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RunStep, error)
}
