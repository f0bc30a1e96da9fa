// Package condition compiles condition strings into boolean predicates over
// the conversation state. Two formats are supported:
//
//  1. Simple equality: `variable == "value"`. The string is split at the
//     first `==`; the right side is trimmed of whitespace and surrounding
//     quotes and compared for exact value equality against the variable.
//     There is no numeric coercion: a stored integer never matches a quoted
//     numeric literal.
//  2. A JMESPath expression evaluated against the state serialized as a
//     plain mapping of messages, variables, last_node and done. The result
//     must be a boolean; anything else is a domain.ConditionTypeError.
package condition

import (
	"strings"

	"github.com/jmespath/go-jmespath"

	"github.com/avelhao/parley/pkg/domain"
)

// Router is a compiled predicate over the conversation state.
type Router func(state *domain.ConversationState) (bool, error)

// NewRouter compiles a condition string into a Router. JMESPath syntax errors
// surface here, at compile time.
func NewRouter(cond string) (Router, error) {
	if strings.Contains(cond, "==") {
		parts := strings.SplitN(cond, "==", 2)
		name := strings.TrimSpace(parts[0])
		literal := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		return func(state *domain.ConversationState) (bool, error) {
			value, ok := state.Variables[name]
			if !ok {
				return false, nil
			}
			s, isString := value.(string)
			return isString && s == literal, nil
		}, nil
	}

	compiled, err := jmespath.Compile(cond)
	if err != nil {
		return nil, err
	}

	return func(state *domain.ConversationState) (bool, error) {
		result, err := compiled.Search(state.Document())
		if err != nil {
			return false, err
		}
		b, ok := result.(bool)
		if !ok {
			return false, &domain.ConditionTypeError{Condition: cond, Result: result}
		}
		return b, nil
	}, nil
}

// Evaluate compiles cond fresh and applies it to state. Used where the
// condition must see current state on every call (If nodes, edge conditions).
func Evaluate(cond string, state *domain.ConversationState) (bool, error) {
	router, err := NewRouter(cond)
	if err != nil {
		return false, err
	}
	return router(state)
}
