package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelhao/parley/internal/runtime"
	"github.com/avelhao/parley/pkg/domain"
	"github.com/avelhao/parley/pkg/ports"
)

// RunService orchestrates workflow runs: it builds an engine per call from
// the stored definition, reconstructs conversation state from the run's step
// history, advances it, and records the result.
type RunService struct {
	workflows ports.WorkflowStore
	runs      ports.RunStore
	steps     ports.RunStepStore
	completer ports.Completer
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// RunOption configures a RunService.
type RunOption func(*RunService)

// WithCompleter sets the completion backend handed to engines.
func WithCompleter(c ports.Completer) RunOption {
	return func(s *RunService) {
		s.completer = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunOption {
	return func(s *RunService) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks passed through to engines.
func WithLifecycleHooks(hooks domain.LifecycleHooks) RunOption {
	return func(s *RunService) {
		s.hooks = hooks
	}
}

// NewRunService wires a run orchestrator over the given stores.
func NewRunService(workflows ports.WorkflowStore, runs ports.RunStore, steps ports.RunStepStore, opts ...RunOption) *RunService {
	s := &RunService{
		workflows: workflows,
		runs:      runs,
		steps:     steps,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RunService) engineFor(wf *domain.Workflow) *runtime.Engine {
	return runtime.NewEngine(wf,
		runtime.WithCompleter(s.completer),
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(s.hooks),
	)
}

// StartRun creates a run for the workflow and executes its opening turn.
// The returned state is the conversation after the turn; the run record is
// already persisted with its status and variable snapshot.
func (s *RunService) StartRun(ctx context.Context, workflowID string, inputText string) (*domain.Run, *domain.ConversationState, error) {
	wf, err := s.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}

	run := &domain.Run{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     domain.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
		Variables:  cloneVariables(wf.Variables),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, nil, err
	}

	began := time.Now()
	state, err := s.engineFor(wf).Start(ctx, inputText)
	latency := time.Since(began)
	if err != nil {
		s.failRun(ctx, run)
		return nil, nil, err
	}

	// The opening turn's input window is the user message, when one was given;
	// everything after it is output.
	split := 0
	if inputText != "" && len(state.Messages) > 0 {
		split = 1
	}
	if err := s.recordTurn(ctx, run, state, state.Messages[:split], state.Messages[split:], latency); err != nil {
		return nil, nil, err
	}

	s.logger.Info("run started",
		"run_id", run.ID, "workflow_id", workflowID, "last_node", state.LastNode, "done", state.Done)
	return run, state, nil
}

// StepRun advances an existing run by one external turn. The conversation is
// rebuilt from the run's step history, so the caller carries only the run ID.
// Returns domain.ErrRunNotRunning when the run already finished or failed.
func (s *RunService) StepRun(ctx context.Context, runID uuid.UUID, userText string) (*domain.Run, *domain.ConversationState, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if run.Status != domain.RunStatusRunning {
		return nil, nil, fmt.Errorf("run %s has status %q: %w", runID, run.Status, domain.ErrRunNotRunning)
	}

	wf, err := s.workflows.Get(ctx, run.WorkflowID)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.steps.ListByRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	state := reconstructState(run, history)

	before := len(state.Messages)
	began := time.Now()
	state, err = s.engineFor(wf).Step(ctx, state, userText)
	latency := time.Since(began)
	if err != nil {
		s.failRun(ctx, run)
		return nil, nil, err
	}

	appended := state.Messages[before:]
	input, output := splitTurn(appended)
	if err := s.recordTurn(ctx, run, state, input, output, latency); err != nil {
		return nil, nil, err
	}

	s.logger.Info("run stepped",
		"run_id", run.ID, "last_node", state.LastNode, "done", state.Done)
	return run, state, nil
}

// GetRun returns the run record.
func (s *RunService) GetRun(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	return s.runs.Get(ctx, runID)
}

// ListSteps returns the run's step history in execution order.
func (s *RunService) ListSteps(ctx context.Context, runID uuid.UUID) ([]domain.RunStep, error) {
	if _, err := s.runs.Get(ctx, runID); err != nil {
		return nil, err
	}
	return s.steps.ListByRun(ctx, runID)
}

// recordTurn persists the step record and the run's post-turn snapshot. A
// finished conversation closes the run.
func (s *RunService) recordTurn(ctx context.Context, run *domain.Run, state *domain.ConversationState, input, output []domain.Message, latency time.Duration) error {
	step := &domain.RunStep{
		ID:                uuid.New(),
		RunID:             run.ID,
		NodeID:            state.LastNode,
		InputMessages:     append([]domain.Message(nil), input...),
		OutputMessages:    append([]domain.Message(nil), output...),
		VariablesSnapshot: cloneVariables(state.Variables),
		LatencyMS:         latency.Milliseconds(),
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.steps.Append(ctx, step); err != nil {
		return err
	}

	run.Variables = cloneVariables(state.Variables)
	if state.Done {
		run.Status = domain.RunStatusCompleted
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	return s.runs.Update(ctx, run)
}

func (s *RunService) failRun(ctx context.Context, run *domain.Run) {
	run.Status = domain.RunStatusFailed
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		s.logger.Error("failed to mark run as failed", "run_id", run.ID, "err", err)
	}
}

// reconstructState rebuilds the conversation from the step history: message
// windows concatenate in order, variables come from the run's latest snapshot,
// and the position is the last recorded node. The run is known to be running,
// so the rebuilt state is never terminal.
func reconstructState(run *domain.Run, history []domain.RunStep) *domain.ConversationState {
	state := domain.NewConversationState()
	for _, step := range history {
		state.Messages = append(state.Messages, step.InputMessages...)
		state.Messages = append(state.Messages, step.OutputMessages...)
	}
	state.Variables = cloneVariables(run.Variables)
	if state.Variables == nil {
		state.Variables = make(map[string]any)
	}
	if len(history) > 0 {
		state.LastNode = history[len(history)-1].NodeID
	}
	return state
}

// splitTurn separates the messages appended during one turn into the user
// input window and the produced output.
func splitTurn(appended []domain.Message) (input, output []domain.Message) {
	if len(appended) > 0 && appended[0].Role == domain.RoleUser {
		return appended[:1], appended[1:]
	}
	return nil, appended
}

func cloneVariables(vars map[string]any) map[string]any {
	if vars == nil {
		return nil
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
