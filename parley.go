package parley

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avelhao/parley/internal/logging"
	"github.com/avelhao/parley/internal/runtime"
	"github.com/avelhao/parley/internal/service"
	"github.com/avelhao/parley/pkg/domain"
	"github.com/avelhao/parley/pkg/ports"
)

// Engine is the high-level entry point for the Parley library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime  *runtime.Engine
	workflow *domain.Workflow
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*engineConfig)

type engineConfig struct {
	completer ports.Completer
	renderer  runtime.Renderer
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// WithCompleter injects the completion backend used by LLM nodes.
func WithCompleter(c ports.Completer) Option {
	return func(cfg *engineConfig) {
		cfg.completer = c
	}
}

// WithRenderer sets a custom template renderer.
func WithRenderer(r runtime.Renderer) Option {
	return func(cfg *engineConfig) {
		cfg.renderer = r
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(cfg *engineConfig) {
		cfg.hooks = hooks
	}
}

// New creates an engine for one workflow definition. The definition is
// validated the same way the services validate stored workflows.
func New(wf *domain.Workflow, opts ...Option) (*Engine, error) {
	if err := service.ValidateWorkflow(wf); err != nil {
		return nil, err
	}

	cfg := engineConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := runtime.NewEngine(wf,
		runtime.WithCompleter(cfg.completer),
		runtime.WithRenderer(cfg.renderer),
		runtime.WithLogger(cfg.logger),
		runtime.WithLifecycleHooks(cfg.hooks),
	)
	return &Engine{runtime: rt, workflow: wf, logger: cfg.logger}, nil
}

// Load reads a workflow definition from a YAML file and creates an engine
// for it.
func Load(path string, opts ...Option) (*Engine, error) {
	wf, err := LoadWorkflow(path)
	if err != nil {
		return nil, err
	}
	return New(wf, opts...)
}

// LoadWorkflow reads a YAML workflow definition.
func LoadWorkflow(path string) (*domain.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return ParseWorkflow(data)
}

// ParseWorkflow decodes a YAML workflow definition.
func ParseWorkflow(data []byte) (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Workflow returns the engine's definition.
func (e *Engine) Workflow() *domain.Workflow {
	return e.workflow
}

// Start begins a new conversation, executing the opening turn. A non-empty
// inputText is treated as the user's first message.
func (e *Engine) Start(ctx context.Context, inputText string) (*domain.ConversationState, error) {
	return e.runtime.Start(ctx, inputText)
}

// Step advances a conversation by one external turn.
func (e *Engine) Step(ctx context.Context, state *domain.ConversationState, userText string) (*domain.ConversationState, error) {
	return e.runtime.Step(ctx, state, userText)
}

// Compile returns the graph-walking execution strategy, which honors edge
// conditions and runs to a terminal state in one call.
func (e *Engine) Compile() (*runtime.CompiledGraph, error) {
	return e.runtime.Compile()
}
