package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelhao/parley/internal/runtime"
	"github.com/avelhao/parley/pkg/domain"
)

func TestResolver_FindNode(t *testing.T) {
	wf := &domain.Workflow{
		ID: "wf",
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypePrompt},
			{ID: "b", Type: domain.NodeTypeOutput},
		},
	}
	r := runtime.NewResolver(wf)

	require.NotNil(t, r.FindNode("a"))
	assert.Equal(t, "b", r.FindNode("b").ID)
	assert.Nil(t, r.FindNode("missing"))
}

func TestResolver_EdgesBeforeFallback(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypePrompt, Next: "c"},
			{ID: "b", Type: domain.NodeTypePrompt},
			{ID: "c", Type: domain.NodeTypeOutput},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b"},
		},
	}
	r := runtime.NewResolver(wf)

	// The edge wins over the fallback pointer.
	assert.Equal(t, "b", r.Next("a").ID)
	assert.Equal(t, "b", r.NextViaEdges("a").ID)
	assert.Equal(t, "c", r.NextViaFallback("a").ID)
}

func TestResolver_EdgeConditionNotEvaluated(t *testing.T) {
	// The first edge in declaration order wins even when its condition would
	// be false; condition evaluation belongs to the compiled strategy.
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypePrompt},
			{ID: "b", Type: domain.NodeTypePrompt},
			{ID: "c", Type: domain.NodeTypePrompt},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b", Condition: "x == 'never'"},
			{ID: "e2", Source: "a", Target: "c"},
		},
	}
	r := runtime.NewResolver(wf)

	assert.Equal(t, "b", r.Next("a").ID)
}

func TestResolver_NoSuccessor(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{{ID: "only", Type: domain.NodeTypePrompt}},
	}
	r := runtime.NewResolver(wf)

	assert.Nil(t, r.Next("only"))
	assert.Nil(t, r.Next("missing"))
}

func TestResolver_FallbackToMissingNode(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{{ID: "a", Type: domain.NodeTypePrompt, Next: "ghost"}},
	}
	r := runtime.NewResolver(wf)

	// Referential integrity is the author's responsibility; a dangling Next
	// simply resolves to nothing.
	assert.Nil(t, r.Next("a"))
}
