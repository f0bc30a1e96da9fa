package runtime

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/avelhao/parley/pkg/domain"
	"github.com/avelhao/parley/pkg/ports"
)

// Engine is the manual step driver: a state machine over (last_node, done)
// that advances one externally visible turn at a time, auto-chaining a fixed
// set of node-type pairs (Prompt->LLM and LLM->Output) inside a single turn.
type Engine struct {
	workflow *domain.Workflow
	resolver *Resolver
	env      Env
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompleter injects the text-generation backend used by LLM nodes.
func WithCompleter(c ports.Completer) Option {
	return func(e *Engine) {
		e.env.Completer = c
	}
}

// WithRenderer overrides the template renderer used by Prompt, LLM and
// Output nodes.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) {
		e.env.Render = r
	}
}

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// NewEngine creates a step driver for one workflow definition. The engine
// holds no conversation state: every Start/Step call receives and returns the
// full state.
func NewEngine(wf *domain.Workflow, opts ...Option) *Engine {
	e := &Engine{
		workflow: wf,
		resolver: NewResolver(wf),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.hooks.OnCompletionReturn != nil && e.env.Completer != nil {
		e.env.Completer = &observedCompleter{inner: e.env.Completer, hooks: e.hooks}
	}
	return e
}

// Resolver exposes the successor index, mainly for introspection tools.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Start begins a new run. It executes the first node and, when inputText is
// given, looks ahead at most two more nodes: an LLM successor (with the input
// re-appended as a second user message) and an Output successor after that.
// No chaining happens beyond this fixed three-node lookahead.
func (e *Engine) Start(ctx context.Context, inputText string) (*domain.ConversationState, error) {
	if len(e.workflow.Nodes) == 0 {
		return domain.NewConversationState(), nil
	}

	state := domain.NewConversationState()
	for k, v := range e.workflow.Variables {
		state.Variables[k] = v
	}
	if inputText != "" {
		state.AppendMessage(domain.RoleUser, inputText)
	}

	first := &e.workflow.Nodes[0]
	state, err := e.executeNode(ctx, state, first)
	if err != nil {
		return nil, err
	}
	e.markProgress(state, first)

	if inputText == "" || state.Done {
		return state, nil
	}

	next := e.resolver.Next(first.ID)
	if next == nil || next.Type != domain.NodeTypeLLM {
		return state, nil
	}

	state.AppendMessage(domain.RoleUser, inputText)
	state, err = e.executeNode(ctx, state, next)
	if err != nil {
		return nil, err
	}
	e.markProgress(state, next)

	if state.Done {
		return state, nil
	}
	after := e.resolver.Next(next.ID)
	if after == nil || after.Type != domain.NodeTypeOutput {
		return state, nil
	}

	state, err = e.executeNode(ctx, state, after)
	if err != nil {
		return nil, err
	}
	e.markProgress(state, after)
	return state, nil
}

// Step advances a run by one external turn: it resolves the next node,
// appends userText as a user message, executes the node, then applies the
// chaining policy keyed on the type of the node just executed. A state that
// is already terminal is returned unchanged.
func (e *Engine) Step(ctx context.Context, state *domain.ConversationState, userText string) (*domain.ConversationState, error) {
	if len(e.workflow.Nodes) == 0 || state.Done {
		return state, nil
	}

	var node *domain.Node
	if state.LastNode == "" {
		node = &e.workflow.Nodes[0]
	} else {
		node = e.resolver.Next(state.LastNode)
	}
	if node == nil {
		state.Done = true
		return state, nil
	}

	state.AppendMessage(domain.RoleUser, userText)
	state, err := e.executeNode(ctx, state, node)
	if err != nil {
		return nil, err
	}
	e.markProgress(state, node)

	// Fixed chaining policy: only Prompt->LLM(->Output) and LLM->Output
	// continue inside this turn. If and SetVar nodes return control
	// immediately even though they consume no external input.
	switch node.Type {
	case domain.NodeTypePrompt:
		next := e.resolver.Next(node.ID)
		if next == nil || next.Type != domain.NodeTypeLLM {
			return state, nil
		}
		state, err = e.executeNode(ctx, state, next)
		if err != nil {
			return nil, err
		}
		e.markProgress(state, next)

		if state.Done {
			return state, nil
		}
		after := e.resolver.Next(next.ID)
		if after == nil || after.Type != domain.NodeTypeOutput {
			return state, nil
		}
		state, err = e.executeNode(ctx, state, after)
		if err != nil {
			return nil, err
		}
		e.markProgress(state, after)

	case domain.NodeTypeLLM:
		if state.Done {
			return state, nil
		}
		next := e.resolver.Next(node.ID)
		if next == nil || next.Type != domain.NodeTypeOutput {
			return state, nil
		}
		state, err = e.executeNode(ctx, state, next)
		if err != nil {
			return nil, err
		}
		e.markProgress(state, next)
	}

	return state, nil
}

// executeNode builds the node's executor and runs it, emitting lifecycle
// events around the execution.
func (e *Engine) executeNode(ctx context.Context, state *domain.ConversationState, node *domain.Node) (*domain.ConversationState, error) {
	exec, err := NewExecutor(*node, e.env)
	if err != nil {
		return nil, err
	}

	e.emitNodeEnter(ctx, node)
	start := time.Now()
	out, err := exec(ctx, state)
	duration := time.Since(start)
	e.emitNodeLeave(ctx, node, duration, err != nil)

	if err != nil {
		e.logger.Error("node execution failed", "node_id", node.ID, "node_type", string(node.Type), "err", err)
		return nil, err
	}
	e.logger.Debug("node executed", "node_id", node.ID, "node_type", string(node.Type), "duration", duration, "done", out.Done)
	return out, nil
}

// markProgress applies the completion policy after a node executed: unless
// the executor already forced Done (Output), the run is done exactly when no
// successor is resolvable.
func (e *Engine) markProgress(state *domain.ConversationState, node *domain.Node) {
	if !state.Done {
		state.Done = e.resolver.Next(node.ID) == nil
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, node *domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter},
		NodeID:    node.ID,
		NodeType:  node.Type,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, node *domain.Node, duration time.Duration, isError bool) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave},
		NodeID:    node.ID,
		NodeType:  node.Type,
		Duration:  duration,
		IsError:   isError,
	})
}

// observedCompleter wraps the backend to time calls and emit completion
// events.
type observedCompleter struct {
	inner ports.Completer
	hooks domain.LifecycleHooks
}

func (o *observedCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	start := time.Now()
	result, err := o.inner.Complete(ctx, req)
	o.hooks.OnCompletionReturn(ctx, &domain.CompletionEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCompletionReturn},
		Duration:  time.Since(start),
		IsError:   err != nil,
	})
	return result, err
}
