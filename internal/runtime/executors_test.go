package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelhao/parley/internal/runtime"
	"github.com/avelhao/parley/pkg/domain"
)

func TestPromptExecutor(t *testing.T) {
	node := domain.Node{
		ID:     "p1",
		Type:   domain.NodeTypePrompt,
		Config: map[string]any{"text": "Hello {{name}}!"},
	}
	exec, err := runtime.NewExecutor(node, runtime.Env{})
	require.NoError(t, err)

	t.Run("renders with variables", func(t *testing.T) {
		state := domain.NewConversationState()
		state.Variables["name"] = "Alice"

		out, err := exec(context.Background(), state)
		require.NoError(t, err)

		last, ok := out.LastMessage()
		require.True(t, ok)
		assert.Equal(t, domain.RoleAssistant, last.Role)
		assert.Equal(t, "Hello Alice!", last.Content)
		assert.Equal(t, "p1", out.LastNode)
		assert.False(t, out.Done)
	})

	t.Run("captures user input", func(t *testing.T) {
		state := domain.NewConversationState()
		state.AppendMessage(domain.RoleUser, "hi there")

		out, err := exec(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, "hi there", out.Variables["user_input"])
	})

	t.Run("assistant last message is not captured", func(t *testing.T) {
		state := domain.NewConversationState()
		state.AppendMessage(domain.RoleAssistant, "earlier")

		out, err := exec(context.Background(), state)
		require.NoError(t, err)
		_, present := out.Variables["user_input"]
		assert.False(t, present)
	})
}

func TestPromptExecutor_MissingText(t *testing.T) {
	node := domain.Node{ID: "p1", Type: domain.NodeTypePrompt, Config: map[string]any{}}
	_, err := runtime.NewExecutor(node, runtime.Env{})

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "p1", cfgErr.NodeID)
}

func TestLLMExecutor(t *testing.T) {
	node := domain.Node{
		ID:   "l1",
		Type: domain.NodeTypeLLM,
		Config: map[string]any{
			"prompt":  "Extract a name from: {{user_input}}",
			"extract": []any{"name", "response"},
		},
	}

	t.Run("extracts fields and appends response", func(t *testing.T) {
		backend := &fakeCompleter{object: map[string]any{
			"name":     "Alice",
			"response": "Nice to meet you, Alice!",
			"ignored":  "dropped",
		}}
		exec, err := runtime.NewExecutor(node, runtime.Env{Completer: backend})
		require.NoError(t, err)

		state := domain.NewConversationState()
		state.AppendMessage(domain.RoleUser, "I'm Alice")

		out, err := exec(context.Background(), state)
		require.NoError(t, err)

		assert.Equal(t, "Alice", out.Variables["name"])
		_, present := out.Variables["ignored"]
		assert.False(t, present, "fields outside extract must not leak into variables")

		last, _ := out.LastMessage()
		assert.Equal(t, "Nice to meet you, Alice!", last.Content)
		assert.Equal(t, "l1", out.LastNode)

		assert.True(t, backend.lastReq.JSONMode)
		assert.Equal(t, "Extract information from the user's message.", backend.lastReq.System)
		assert.Contains(t, backend.lastReq.Prompt, "I'm Alice")
	})

	t.Run("stringifies raw object without response field", func(t *testing.T) {
		backend := &fakeCompleter{object: map[string]any{"name": "Bob"}}
		exec, err := runtime.NewExecutor(node, runtime.Env{Completer: backend})
		require.NoError(t, err)

		state := domain.NewConversationState()
		state.AppendMessage(domain.RoleUser, "I'm Bob")

		out, err := exec(context.Background(), state)
		require.NoError(t, err)

		last, _ := out.LastMessage()
		assert.Contains(t, last.Content, `"name":"Bob"`)
	})

	t.Run("uses the most recent user message", func(t *testing.T) {
		backend := &fakeCompleter{object: map[string]any{"response": "ok"}}
		exec, err := runtime.NewExecutor(node, runtime.Env{Completer: backend})
		require.NoError(t, err)

		state := domain.NewConversationState()
		state.AppendMessage(domain.RoleUser, "first")
		state.AppendMessage(domain.RoleAssistant, "mid")
		state.AppendMessage(domain.RoleUser, "second")

		_, err = exec(context.Background(), state)
		require.NoError(t, err)
		assert.Contains(t, backend.lastReq.Prompt, "second")
	})

	t.Run("requires a prior user message", func(t *testing.T) {
		exec, err := runtime.NewExecutor(node, runtime.Env{Completer: &fakeCompleter{}})
		require.NoError(t, err)

		_, err = exec(context.Background(), domain.NewConversationState())
		assert.ErrorIs(t, err, domain.ErrNoUserMessage)
	})

	t.Run("propagates backend failure", func(t *testing.T) {
		exec, err := runtime.NewExecutor(node, runtime.Env{Completer: &fakeCompleter{err: errBackendDown}})
		require.NoError(t, err)

		state := domain.NewConversationState()
		state.AppendMessage(domain.RoleUser, "hi")

		_, err = exec(context.Background(), state)
		assert.ErrorIs(t, err, errBackendDown)
	})

	t.Run("rejects plain-text result", func(t *testing.T) {
		exec, err := runtime.NewExecutor(node, runtime.Env{Completer: &fakeCompleter{text: "not json"}})
		require.NoError(t, err)

		state := domain.NewConversationState()
		state.AppendMessage(domain.RoleUser, "hi")

		_, err = exec(context.Background(), state)
		var backendErr *domain.BackendError
		assert.True(t, errors.As(err, &backendErr))
	})
}

func TestLLMExecutor_ConfigValidation(t *testing.T) {
	var cfgErr *domain.ConfigError

	_, err := runtime.NewExecutor(domain.Node{
		ID: "l1", Type: domain.NodeTypeLLM,
		Config: map[string]any{"extract": []any{"x"}},
	}, runtime.Env{})
	require.True(t, errors.As(err, &cfgErr), "missing prompt")

	_, err = runtime.NewExecutor(domain.Node{
		ID: "l1", Type: domain.NodeTypeLLM,
		Config: map[string]any{"prompt": "p", "extract": "not-a-list"},
	}, runtime.Env{})
	require.True(t, errors.As(err, &cfgErr), "extract must be a list")
}

func TestIfExecutor(t *testing.T) {
	node := domain.Node{
		ID:   "if1",
		Type: domain.NodeTypeIf,
		Config: map[string]any{
			"condition":    "x == 'a'",
			"true_target":  "yes",
			"false_target": "no",
		},
	}
	exec, err := runtime.NewExecutor(node, runtime.Env{})
	require.NoError(t, err)

	t.Run("true branch", func(t *testing.T) {
		state := domain.NewConversationState()
		state.Variables["x"] = "a"

		out, err := exec(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, "yes", out.Variables["_next"])
		assert.Equal(t, "if1", out.LastNode)
		assert.Empty(t, out.Messages, "If produces no message")
	})

	t.Run("false branch", func(t *testing.T) {
		state := domain.NewConversationState()
		state.Variables["x"] = "b"

		out, err := exec(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, "no", out.Variables["_next"])
	})

	t.Run("non-boolean condition result", func(t *testing.T) {
		badNode := node
		badNode.Config = map[string]any{
			"condition":    "last_node",
			"true_target":  "yes",
			"false_target": "no",
		}
		badExec, err := runtime.NewExecutor(badNode, runtime.Env{})
		require.NoError(t, err)

		_, err = badExec(context.Background(), domain.NewConversationState())
		var typeErr *domain.ConditionTypeError
		assert.True(t, errors.As(err, &typeErr))
	})
}

func TestIfExecutor_MissingConfig(t *testing.T) {
	for _, cfg := range []map[string]any{
		{"true_target": "a", "false_target": "b"},
		{"condition": "x == 'a'", "false_target": "b"},
		{"condition": "x == 'a'", "true_target": "a"},
	} {
		_, err := runtime.NewExecutor(domain.Node{ID: "if1", Type: domain.NodeTypeIf, Config: cfg}, runtime.Env{})
		var cfgErr *domain.ConfigError
		assert.True(t, errors.As(err, &cfgErr), "config %v", cfg)
	}
}

func TestSetVarExecutor(t *testing.T) {
	node := domain.Node{
		ID:   "sv1",
		Type: domain.NodeTypeSetVar,
		Config: map[string]any{
			"variables": map[string]any{
				"greeting": "variables.raw",
				"count":    3,
			},
		},
	}
	exec, err := runtime.NewExecutor(node, runtime.Env{})
	require.NoError(t, err)

	state := domain.NewConversationState()
	state.Variables["raw"] = "hello"

	out, err := exec(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Variables["greeting"])
	assert.Equal(t, 3, out.Variables["count"])
	assert.Equal(t, "sv1", out.LastNode)
	assert.Empty(t, out.Messages)
}

func TestSetVarExecutor_FreshEvaluation(t *testing.T) {
	// String expressions are compiled once but evaluated against the current
	// state on every call.
	node := domain.Node{
		ID:   "sv1",
		Type: domain.NodeTypeSetVar,
		Config: map[string]any{
			"variables": map[string]any{"snapshot": "last_node"},
		},
	}
	exec, err := runtime.NewExecutor(node, runtime.Env{})
	require.NoError(t, err)

	state := domain.NewConversationState()
	state.LastNode = "before"
	out, err := exec(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "before", out.Variables["snapshot"])

	out.LastNode = "after"
	out, err = exec(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, "after", out.Variables["snapshot"])
}

func TestSetVarExecutor_ConfigValidation(t *testing.T) {
	var cfgErr *domain.ConfigError

	_, err := runtime.NewExecutor(domain.Node{ID: "sv1", Type: domain.NodeTypeSetVar, Config: map[string]any{}}, runtime.Env{})
	require.True(t, errors.As(err, &cfgErr), "missing variables")

	_, err = runtime.NewExecutor(domain.Node{
		ID: "sv1", Type: domain.NodeTypeSetVar,
		Config: map[string]any{"variables": "nope"},
	}, runtime.Env{})
	require.True(t, errors.As(err, &cfgErr), "variables must be a map")

	_, err = runtime.NewExecutor(domain.Node{
		ID: "sv1", Type: domain.NodeTypeSetVar,
		Config: map[string]any{"variables": map[string]any{"v": "variables.["}},
	}, runtime.Env{})
	require.True(t, errors.As(err, &cfgErr), "invalid expression")
}

func TestOutputExecutor(t *testing.T) {
	node := domain.Node{
		ID:     "o1",
		Type:   domain.NodeTypeOutput,
		Config: map[string]any{"text": "Thanks, {{name}}!"},
	}
	exec, err := runtime.NewExecutor(node, runtime.Env{})
	require.NoError(t, err)

	t.Run("copies user message into name and forces done", func(t *testing.T) {
		state := domain.NewConversationState()
		state.AppendMessage(domain.RoleUser, "Alice")

		out, err := exec(context.Background(), state)
		require.NoError(t, err)

		last, _ := out.LastMessage()
		assert.Equal(t, "Thanks, Alice!", last.Content)
		assert.Equal(t, "Alice", out.Variables["name"])
		assert.True(t, out.Done)
	})

	t.Run("done is forced regardless of successors", func(t *testing.T) {
		out, err := exec(context.Background(), domain.NewConversationState())
		require.NoError(t, err)
		assert.True(t, out.Done)
	})
}

func TestNewExecutor_UnknownType(t *testing.T) {
	_, err := runtime.NewExecutor(domain.Node{ID: "x", Type: "Mystery"}, runtime.Env{})

	var unknownErr *domain.UnknownNodeTypeError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, domain.NodeType("Mystery"), unknownErr.Type)
}
