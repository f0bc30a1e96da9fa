package runtime

import (
	"context"
	"fmt"

	"github.com/avelhao/parley/internal/condition"
	"github.com/avelhao/parley/pkg/domain"
)

// defaultTransitionBudget bounds one Invoke call. Workflows with cycles
// otherwise never return, since the compiled walk has no external turns.
const defaultTransitionBudget = 64

// CompiledGraph is the secondary execution strategy. Where the manual step
// driver resolves successors without ever reading edge conditions, the
// compiled graph evaluates them (fresh on every hop) and keeps executing
// until the run is done, no transition applies, or the budget runs out. The
// two strategies share the node executors and the condition evaluator but
// not their resolution semantics; they can disagree on branching for the
// same workflow.
type CompiledGraph struct {
	workflow  *domain.Workflow
	resolver  *Resolver
	executors map[string]Executor
	budget    int
}

// Compile builds executors for every node up front, surfacing configuration
// errors for the whole graph before anything runs.
func (e *Engine) Compile() (*CompiledGraph, error) {
	executors := make(map[string]Executor, len(e.workflow.Nodes))
	for _, node := range e.workflow.Nodes {
		exec, err := NewExecutor(node, e.env)
		if err != nil {
			return nil, err
		}
		executors[node.ID] = exec
	}
	return &CompiledGraph{
		workflow:  e.workflow,
		resolver:  e.resolver,
		executors: executors,
		budget:    defaultTransitionBudget,
	}, nil
}

// Invoke runs the compiled graph from the state's position until a terminal
// condition. A nil state starts a fresh run with the workflow's declared
// variables; a non-empty userText is appended as a user message first.
func (g *CompiledGraph) Invoke(ctx context.Context, state *domain.ConversationState, userText string) (*domain.ConversationState, error) {
	if len(g.workflow.Nodes) == 0 {
		return domain.NewConversationState(), nil
	}

	if state == nil {
		state = domain.NewConversationState()
		for k, v := range g.workflow.Variables {
			state.Variables[k] = v
		}
	}
	if userText != "" {
		state.AppendMessage(domain.RoleUser, userText)
	}

	var node *domain.Node
	if state.LastNode == "" {
		node = &g.workflow.Nodes[0]
	} else {
		var err error
		node, err = g.nextFrom(state.LastNode, state)
		if err != nil {
			return nil, err
		}
	}

	for hops := 0; node != nil; hops++ {
		if hops >= g.budget {
			return nil, fmt.Errorf("compiled execution exceeded %d transitions (cycle?)", g.budget)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := g.executors[node.ID](ctx, state)
		if err != nil {
			return nil, err
		}
		state = out
		state.LastNode = node.ID
		if state.Done {
			return state, nil
		}

		node, err = g.nextFrom(node.ID, state)
		if err != nil {
			return nil, err
		}
	}

	state.Done = true
	return state, nil
}

// nextFrom resolves the successor the compiled way: the first edge in
// declaration order that is unconditional or whose condition evaluates true,
// then the linear fallback pointer.
func (g *CompiledGraph) nextFrom(sourceID string, state *domain.ConversationState) (*domain.Node, error) {
	for _, edge := range g.resolver.EdgesFrom(sourceID) {
		if edge.Condition == "" {
			return g.resolver.FindNode(edge.Target), nil
		}
		ok, err := condition.Evaluate(edge.Condition, state)
		if err != nil {
			return nil, err
		}
		if ok {
			return g.resolver.FindNode(edge.Target), nil
		}
	}
	return g.resolver.NextViaFallback(sourceID), nil
}
