package domain

// Message roles. Order of messages is chronological execution order; a single
// external step can append more than one message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the conversation transcript.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ConversationState is the single mutable record threaded through node
// executions. It is owned by the step driver for the duration of one call and
// handed back to the caller for persistence; the engine holds no state across
// calls.
type ConversationState struct {
	Messages  []Message      `json:"messages"`
	Variables map[string]any `json:"variables"`
	LastNode  string         `json:"last_node,omitempty"`
	Done      bool           `json:"done"`
}

// NewConversationState returns an empty, ready-to-mutate state.
func NewConversationState() *ConversationState {
	return &ConversationState{
		Messages:  []Message{},
		Variables: make(map[string]any),
	}
}

// Clone returns a copy whose variables map and message slice are independent
// of the receiver. Variable values are shared; executors replace rather than
// mutate them.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	next := *s
	next.Messages = make([]Message, len(s.Messages))
	copy(next.Messages, s.Messages)
	next.Variables = make(map[string]any, len(s.Variables))
	for k, v := range s.Variables {
		next.Variables[k] = v
	}
	return &next
}

// LastMessage returns the most recent message, if any.
func (s *ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastUserMessage scans the transcript backward for the most recent user
// message.
func (s *ConversationState) LastUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// AppendMessage adds a message to the transcript.
func (s *ConversationState) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// Document serializes the state as a plain mapping for expression evaluation:
// messages (role/content/name objects), variables, last_node, done.
func (s *ConversationState) Document() map[string]any {
	messages := make([]any, 0, len(s.Messages))
	for _, m := range s.Messages {
		entry := map[string]any{
			"role":    m.Role,
			"content": m.Content,
		}
		if m.Name != "" {
			entry["name"] = m.Name
		}
		messages = append(messages, entry)
	}

	variables := make(map[string]any, len(s.Variables))
	for k, v := range s.Variables {
		variables[k] = v
	}

	return map[string]any{
		"messages":  messages,
		"variables": variables,
		"last_node": s.LastNode,
		"done":      s.Done,
	}
}
