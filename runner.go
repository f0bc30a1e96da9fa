package parley

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/avelhao/parley/pkg/domain"
)

// Runner handles the interactive conversation loop using provided IO.
// This allows for easy testing and integration with different frontends
// (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms assistant content before outputting it. This
// allows for TUI rendering (markdown to ANSI) without coupling the core
// package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. The caller supplies the IO streams, typically
// os.Stdin and os.Stdout.
func NewRunner(input io.Reader, output io.Writer) *Runner {
	return &Runner{Input: input, Output: output}
}

// Run drives the engine until the conversation reaches a terminal state, the
// input hits EOF, or the user types "exit" or "quit".
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	if !r.Headless {
		fmt.Fprintf(r.Output, "--- %s ---\n", engine.Workflow().Name)
	}

	state, err := engine.Start(ctx, "")
	if err != nil {
		return fmt.Errorf("start error: %w", err)
	}
	shown := r.display(state, 0)

	for !state.Done {
		fmt.Fprint(r.Output, "> ")
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)

		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			break
		}

		state, err = engine.Step(ctx, state, input)
		if err != nil {
			return fmt.Errorf("step error: %w", err)
		}
		shown = r.display(state, shown)
	}
	return nil
}

// display prints the assistant messages appended since the last call and
// returns the new high-water mark.
func (r *Runner) display(state *domain.ConversationState, from int) int {
	for _, msg := range state.Messages[from:] {
		if msg.Role != domain.RoleAssistant {
			continue
		}
		output := msg.Content
		if r.Renderer != nil {
			if rendered, err := r.Renderer(msg.Content); err == nil {
				output = rendered
			}
		}
		fmt.Fprintln(r.Output, strings.TrimSpace(output))
	}
	return len(state.Messages)
}
