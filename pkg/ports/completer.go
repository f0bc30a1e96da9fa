package ports

import "context"

// CompletionRequest carries one prompt to the text-generation backend.
type CompletionRequest struct {
	// Prompt is the rendered user prompt.
	Prompt string
	// System is the system instruction, if any.
	System string
	// JSONMode requests a structured JSON object instead of free text.
	JSONMode bool
}

// Completion is the backend's answer. Object is set only for JSON mode; Text
// carries the raw content in either mode.
type Completion struct {
	Text   string
	Object map[string]any
}

// Completer is the narrow contract of the text-generation backend. A failed
// call or, in JSON mode, non-parseable output fails the enclosing step; the
// engine does not retry. Any timeout must be enforced by the implementation.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
