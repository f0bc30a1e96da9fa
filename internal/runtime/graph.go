package runtime

import "github.com/avelhao/parley/pkg/domain"

// Resolver indexes a workflow's nodes and answers "what runs next" questions.
// Two independent strategies exist: the explicit edge list and the linear
// Next fallback pointer. The step driver consults edges first, then the
// fallback.
type Resolver struct {
	workflow *domain.Workflow
	byID     map[string]int
}

// NewResolver builds an index over the workflow's nodes.
func NewResolver(wf *domain.Workflow) *Resolver {
	byID := make(map[string]int, len(wf.Nodes))
	for i, n := range wf.Nodes {
		byID[n.ID] = i
	}
	return &Resolver{workflow: wf, byID: byID}
}

// FindNode returns the node with the given ID, or nil.
func (r *Resolver) FindNode(id string) *domain.Node {
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	return &r.workflow.Nodes[i]
}

// NextViaEdges returns the target of the first edge (in declaration order)
// whose source matches, without evaluating its condition. Condition
// evaluation belongs to the compiled execution strategy.
func (r *Resolver) NextViaEdges(sourceID string) *domain.Node {
	for _, e := range r.workflow.Edges {
		if e.Source == sourceID {
			return r.FindNode(e.Target)
		}
	}
	return nil
}

// NextViaFallback returns the node referenced by the source node's Next
// pointer, if any.
func (r *Resolver) NextViaFallback(sourceID string) *domain.Node {
	node := r.FindNode(sourceID)
	if node == nil || node.Next == "" {
		return nil
	}
	return r.FindNode(node.Next)
}

// Next resolves the successor of a node: edges first, fallback pointer
// second. Nil means the node has no successor.
func (r *Resolver) Next(sourceID string) *domain.Node {
	if n := r.NextViaEdges(sourceID); n != nil {
		return n
	}
	return r.NextViaFallback(sourceID)
}

// EdgesFrom returns the edges leaving a node in declaration order.
func (r *Resolver) EdgesFrom(sourceID string) []domain.Edge {
	var out []domain.Edge
	for _, e := range r.workflow.Edges {
		if e.Source == sourceID {
			out = append(out, e)
		}
	}
	return out
}
