package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelhao/parley/internal/adapters/memory"
	"github.com/avelhao/parley/internal/service"
	"github.com/avelhao/parley/pkg/domain"
	"github.com/avelhao/parley/pkg/ports"
)

type stubCompleter struct {
	object map[string]any
	err    error
}

func (s *stubCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ports.Completion{Object: s.object}, nil
}

func newFixture(t *testing.T, completer ports.Completer) (*service.RunService, *service.WorkflowService) {
	t.Helper()
	workflows := memory.NewWorkflowStore()
	runs := service.NewRunService(workflows, memory.NewRunStore(), memory.NewRunStepStore(),
		service.WithCompleter(completer))
	return runs, service.NewWorkflowService(workflows)
}

func greeterWorkflow() *domain.Workflow {
	return &domain.Workflow{
		ID:   "greeter",
		Name: "Greeter",
		Nodes: []domain.Node{
			{ID: "ask", Type: domain.NodeTypePrompt, Config: map[string]any{"text": "Hi! What's your name?"}, Next: "extract"},
			{ID: "extract", Type: domain.NodeTypeLLM, Config: map[string]any{
				"prompt":  "Extract the name from: {{user_input}}",
				"extract": []any{"name", "response"},
			}, Next: "thanks"},
			{ID: "thanks", Type: domain.NodeTypeOutput, Config: map[string]any{"text": "Thanks, {{name}}!"}},
		},
	}
}

func TestRunService_StartAndStep(t *testing.T) {
	ctx := context.Background()
	runs, workflows := newFixture(t, &stubCompleter{object: map[string]any{
		"name":     "Alice",
		"response": "Nice to meet you!",
	}})
	_, err := workflows.Create(ctx, greeterWorkflow())
	require.NoError(t, err)

	run, state, err := runs.StartRun(ctx, "greeter", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, run.Status)
	assert.Equal(t, "ask", state.LastNode)
	assert.False(t, state.Done)

	run, state, err = runs.StepRun(ctx, run.ID, "I'm Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, state.Done)
	assert.Equal(t, "Alice", state.Variables["name"])

	last, _ := state.LastMessage()
	assert.Equal(t, "Thanks, Alice!", last.Content)
}

func TestRunService_StateSurvivesReconstruction(t *testing.T) {
	// The service holds no conversation in memory: every StepRun rebuilds it
	// from the step history, so the full message transcript must round-trip.
	ctx := context.Background()
	runs, workflows := newFixture(t, &stubCompleter{object: map[string]any{
		"name":     "Bo",
		"response": "Hi Bo!",
	}})
	_, err := workflows.Create(ctx, greeterWorkflow())
	require.NoError(t, err)

	run, _, err := runs.StartRun(ctx, "greeter", "")
	require.NoError(t, err)

	_, state, err := runs.StepRun(ctx, run.ID, "I'm Bo")
	require.NoError(t, err)

	// assistant(prompt), user, assistant(llm), assistant(output)
	require.Len(t, state.Messages, 4)
	assert.Equal(t, "Hi! What's your name?", state.Messages[0].Content)
	assert.Equal(t, "I'm Bo", state.Messages[1].Content)
	assert.Equal(t, "Hi Bo!", state.Messages[2].Content)
	assert.Equal(t, "Thanks, Bo!", state.Messages[3].Content)
}

func TestRunService_StepHistory(t *testing.T) {
	ctx := context.Background()
	runs, workflows := newFixture(t, &stubCompleter{object: map[string]any{
		"name":     "Alice",
		"response": "ok",
	}})
	_, err := workflows.Create(ctx, greeterWorkflow())
	require.NoError(t, err)

	run, _, err := runs.StartRun(ctx, "greeter", "")
	require.NoError(t, err)
	_, _, err = runs.StepRun(ctx, run.ID, "I'm Alice")
	require.NoError(t, err)

	history, err := runs.ListSteps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "ask", history[0].NodeID)
	assert.Empty(t, history[0].InputMessages)
	require.Len(t, history[0].OutputMessages, 1)

	assert.Equal(t, "thanks", history[1].NodeID)
	require.Len(t, history[1].InputMessages, 1)
	assert.Equal(t, "I'm Alice", history[1].InputMessages[0].Content)
	assert.Len(t, history[1].OutputMessages, 2)
	assert.Equal(t, "Alice", history[1].VariablesSnapshot["name"])
}

func TestRunService_StepFinishedRun(t *testing.T) {
	ctx := context.Background()
	runs, workflows := newFixture(t, &stubCompleter{object: map[string]any{
		"name":     "A",
		"response": "r",
	}})
	_, err := workflows.Create(ctx, greeterWorkflow())
	require.NoError(t, err)

	run, _, err := runs.StartRun(ctx, "greeter", "")
	require.NoError(t, err)
	_, _, err = runs.StepRun(ctx, run.ID, "hi")
	require.NoError(t, err)

	_, _, err = runs.StepRun(ctx, run.ID, "again")
	assert.ErrorIs(t, err, domain.ErrRunNotRunning)
}

func TestRunService_StartUnknownWorkflow(t *testing.T) {
	runs, _ := newFixture(t, nil)

	_, _, err := runs.StartRun(context.Background(), "missing", "")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestRunService_StepUnknownRun(t *testing.T) {
	runs, _ := newFixture(t, nil)

	_, _, err := runs.StepRun(context.Background(), uuid.New(), "hi")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunService_BackendFailureFailsRun(t *testing.T) {
	ctx := context.Background()
	runs, workflows := newFixture(t, &stubCompleter{err: errors.New("backend down")})
	_, err := workflows.Create(ctx, greeterWorkflow())
	require.NoError(t, err)

	run, _, err := runs.StartRun(ctx, "greeter", "")
	require.NoError(t, err)

	_, _, err = runs.StepRun(ctx, run.ID, "I'm Alice")
	require.Error(t, err)

	failed, err := runs.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, failed.Status)
	require.NotNil(t, failed.FinishedAt)
}

func TestRunService_StartWithInputCompletesImmediately(t *testing.T) {
	ctx := context.Background()
	runs, workflows := newFixture(t, &stubCompleter{object: map[string]any{
		"name":     "Zed",
		"response": "hello",
	}})
	_, err := workflows.Create(ctx, greeterWorkflow())
	require.NoError(t, err)

	run, state, err := runs.StartRun(ctx, "greeter", "I'm Zed")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.True(t, state.Done)

	history, err := runs.ListSteps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Len(t, history[0].InputMessages, 1)
	assert.Equal(t, "I'm Zed", history[0].InputMessages[0].Content)
	assert.Len(t, history[0].OutputMessages, 4)
}
