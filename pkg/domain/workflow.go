package domain

// NodeType identifies the behavior of a workflow node. The set is closed:
// the engine dispatches on it with a single exhaustive switch.
type NodeType string

const (
	// NodeTypePrompt renders a templated message to the user.
	NodeTypePrompt NodeType = "Prompt"
	// NodeTypeLLM sends the last user message through the completion backend
	// and extracts variables from the structured response.
	NodeTypeLLM NodeType = "LLM"
	// NodeTypeIf evaluates a condition and records the chosen branch target.
	NodeTypeIf NodeType = "If"
	// NodeTypeSetVar assigns variables from expressions or static values.
	NodeTypeSetVar NodeType = "SetVar"
	// NodeTypeOutput renders a final message and terminates the run.
	NodeTypeOutput NodeType = "Output"
)

// Node is a single step in a workflow graph. Immutable after load.
type Node struct {
	ID     string         `json:"id" yaml:"id"`
	Type   NodeType       `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`

	// Next is the linear fallback successor, consulted only when no edge
	// leaves this node.
	Next string `json:"next,omitempty" yaml:"next,omitempty"`
}

// Edge connects two nodes. Condition is an optional expression string; the
// manual step driver ignores it and the compiled executor evaluates it.
type Edge struct {
	ID        string `json:"id" yaml:"id"`
	Source    string `json:"source" yaml:"source"`
	Target    string `json:"target" yaml:"target"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Workflow is a complete graph definition.
//
// Referential integrity of edge and Next ids is the author's responsibility;
// the engine only enforces the at-least-one-node invariant.
type Workflow struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Version   int            `json:"version" yaml:"version"`
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	Nodes     []Node         `json:"nodes" yaml:"nodes"`
	Edges     []Edge         `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Validate checks the structural invariant of the definition.
func (w *Workflow) Validate() error {
	if len(w.Nodes) == 0 {
		return ErrEmptyWorkflow
	}
	return nil
}
