package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"
	"github.com/mitchellh/mapstructure"

	"github.com/avelhao/parley/internal/condition"
	"github.com/avelhao/parley/internal/template"
	"github.com/avelhao/parley/pkg/domain"
	"github.com/avelhao/parley/pkg/ports"
)

// systemExtract is the fixed system instruction sent with every LLM node call.
const systemExtract = "Extract information from the user's message."

// Renderer substitutes placeholders in node text. Unknown placeholders pass
// through unchanged; rendering never fails.
type Renderer func(tmpl string, vars map[string]any) string

// Executor is a synchronous state transform. Every executor sets LastNode to
// its own node ID; only Output sets Done.
type Executor func(ctx context.Context, state *domain.ConversationState) (*domain.ConversationState, error)

// Env carries the collaborators an executor may need.
type Env struct {
	Completer ports.Completer
	Render    Renderer
}

func (e Env) render(tmpl string, vars map[string]any) string {
	if e.Render != nil {
		return e.Render(tmpl, vars)
	}
	return template.Render(tmpl, vars)
}

// NewExecutor validates a node's configuration and returns its executor. The
// node-type set is closed: dispatch is one exhaustive switch, and an
// unrecognized type is a domain.UnknownNodeTypeError. Configuration problems
// surface here as domain.ConfigError, before anything runs.
func NewExecutor(node domain.Node, env Env) (Executor, error) {
	switch node.Type {
	case domain.NodeTypePrompt:
		return newPromptExecutor(node, env)
	case domain.NodeTypeLLM:
		return newLLMExecutor(node, env)
	case domain.NodeTypeIf:
		return newIfExecutor(node)
	case domain.NodeTypeSetVar:
		return newSetVarExecutor(node)
	case domain.NodeTypeOutput:
		return newOutputExecutor(node, env)
	default:
		return nil, &domain.UnknownNodeTypeError{NodeID: node.ID, Type: node.Type}
	}
}

func requireKeys(node domain.Node, keys ...string) error {
	for _, key := range keys {
		if _, ok := node.Config[key]; !ok {
			return &domain.ConfigError{NodeID: node.ID, Reason: fmt.Sprintf("missing required key %q", key)}
		}
	}
	return nil
}

// promptConfig / llmConfig / ifConfig mirror the per-type required config.
type promptConfig struct {
	Text string `mapstructure:"text"`
}

type llmConfig struct {
	Prompt  string   `mapstructure:"prompt"`
	Extract []string `mapstructure:"extract"`
}

type ifConfig struct {
	Condition   string `mapstructure:"condition"`
	TrueTarget  string `mapstructure:"true_target"`
	FalseTarget string `mapstructure:"false_target"`
}

func decodeConfig(node domain.Node, out any) error {
	if err := mapstructure.Decode(node.Config, out); err != nil {
		return &domain.ConfigError{NodeID: node.ID, Reason: err.Error()}
	}
	return nil
}

// newPromptExecutor renders the configured text and appends it as an
// assistant message. When the last message is from the user, its content is
// first captured into variables["user_input"].
func newPromptExecutor(node domain.Node, env Env) (Executor, error) {
	if err := requireKeys(node, "text"); err != nil {
		return nil, err
	}
	var cfg promptConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return nil, err
	}

	return func(ctx context.Context, state *domain.ConversationState) (*domain.ConversationState, error) {
		if last, ok := state.LastMessage(); ok && last.Role == domain.RoleUser {
			state.Variables["user_input"] = last.Content
		}

		text := env.render(cfg.Text, state.Variables)
		state.AppendMessage(domain.RoleAssistant, text)
		state.LastNode = node.ID
		return state, nil
	}, nil
}

// newLLMExecutor sends the rendered prompt through the completion backend in
// structured-output mode and copies the configured extract fields into the
// variables.
func newLLMExecutor(node domain.Node, env Env) (Executor, error) {
	if err := requireKeys(node, "prompt", "extract"); err != nil {
		return nil, err
	}
	switch node.Config["extract"].(type) {
	case []any, []string:
	default:
		return nil, &domain.ConfigError{NodeID: node.ID, Reason: "'extract' must be a list"}
	}
	var cfg llmConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return nil, err
	}

	return func(ctx context.Context, state *domain.ConversationState) (*domain.ConversationState, error) {
		userMessage, ok := state.LastUserMessage()
		if !ok {
			return nil, fmt.Errorf("node %s: %w", node.ID, domain.ErrNoUserMessage)
		}

		vars := make(map[string]any, len(state.Variables)+1)
		for k, v := range state.Variables {
			vars[k] = v
		}
		vars["user_input"] = userMessage.Content
		prompt := env.render(cfg.Prompt, vars)

		if env.Completer == nil {
			return nil, &domain.BackendError{Op: "complete", Err: fmt.Errorf("no completion backend configured")}
		}

		result, err := env.Completer.Complete(ctx, ports.CompletionRequest{
			Prompt:   prompt,
			System:   systemExtract,
			JSONMode: true,
		})
		if err != nil {
			return nil, err
		}
		if result.Object == nil {
			return nil, &domain.BackendError{Op: "complete", Err: fmt.Errorf("expected structured object, got plain text")}
		}

		extracted := make(map[string]any, len(cfg.Extract))
		for _, field := range cfg.Extract {
			if value, present := result.Object[field]; present {
				extracted[field] = value
				state.Variables[field] = value
			}
		}

		content := stringifyObject(result.Object)
		if response, present := extracted["response"]; present {
			content = stringifyValue(response)
		}
		state.AppendMessage(domain.RoleAssistant, content)
		state.LastNode = node.ID
		return state, nil
	}, nil
}

// newIfExecutor evaluates the condition fresh on every call (state changes
// between calls) and records the chosen branch target in variables["_next"].
// The step driver does not read "_next"; branching through it is reserved for
// the compiled strategy's edge conditions.
func newIfExecutor(node domain.Node) (Executor, error) {
	if err := requireKeys(node, "condition", "true_target", "false_target"); err != nil {
		return nil, err
	}
	var cfg ifConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return nil, err
	}

	return func(ctx context.Context, state *domain.ConversationState) (*domain.ConversationState, error) {
		ok, err := condition.Evaluate(cfg.Condition, state)
		if err != nil {
			return nil, err
		}

		target := cfg.FalseTarget
		if ok {
			target = cfg.TrueTarget
		}
		state.Variables["_next"] = target
		state.LastNode = node.ID
		return state, nil
	}, nil
}

// setVarEntry is one variable assignment: either a pre-compiled JMESPath
// expression (string values) or a static literal (everything else).
type setVarEntry struct {
	name     string
	expr     *jmespath.JMESPath
	literal  any
	isStatic bool
}

// newSetVarExecutor compiles string-valued entries once at construction; each
// execution evaluates them fresh against the current state document.
func newSetVarExecutor(node domain.Node) (Executor, error) {
	if err := requireKeys(node, "variables"); err != nil {
		return nil, err
	}
	raw, ok := node.Config["variables"].(map[string]any)
	if !ok {
		return nil, &domain.ConfigError{NodeID: node.ID, Reason: "'variables' must be a map"}
	}

	entries := make([]setVarEntry, 0, len(raw))
	for name, value := range raw {
		if exprText, isString := value.(string); isString {
			compiled, err := jmespath.Compile(exprText)
			if err != nil {
				return nil, &domain.ConfigError{NodeID: node.ID, Reason: fmt.Sprintf("invalid expression for %q: %v", name, err)}
			}
			entries = append(entries, setVarEntry{name: name, expr: compiled})
			continue
		}
		entries = append(entries, setVarEntry{name: name, literal: value, isStatic: true})
	}

	return func(ctx context.Context, state *domain.ConversationState) (*domain.ConversationState, error) {
		doc := state.Document()
		for _, entry := range entries {
			if entry.isStatic {
				state.Variables[entry.name] = entry.literal
				continue
			}
			value, err := entry.expr.Search(doc)
			if err != nil {
				return nil, err
			}
			state.Variables[entry.name] = value
		}
		state.LastNode = node.ID
		return state, nil
	}, nil
}

// newOutputExecutor renders the final message and forces Done. The copy of
// the last user message into variables["name"] is a fixed key, independent of
// workflow semantics.
func newOutputExecutor(node domain.Node, env Env) (Executor, error) {
	if err := requireKeys(node, "text"); err != nil {
		return nil, err
	}
	var cfg promptConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return nil, err
	}

	return func(ctx context.Context, state *domain.ConversationState) (*domain.ConversationState, error) {
		if last, ok := state.LastMessage(); ok && last.Role == domain.RoleUser {
			state.Variables["name"] = last.Content
		}

		text := env.render(cfg.Text, state.Variables)
		state.AppendMessage(domain.RoleAssistant, text)
		state.LastNode = node.ID
		state.Done = true
		return state, nil
	}, nil
}

func stringifyValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func stringifyObject(obj map[string]any) string {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Sprintf("%v", obj)
	}
	return string(data)
}
