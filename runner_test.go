package parley_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/avelhao/parley"
	"github.com/avelhao/parley/pkg/domain"
)

func promptOutputWorkflow() *domain.Workflow {
	return &domain.Workflow{
		Name: "Greeter",
		Nodes: []domain.Node{
			{ID: "ask", Type: domain.NodeTypePrompt, Config: map[string]any{"text": "Hi! What's your name?"}, Next: "thanks"},
			{ID: "thanks", Type: domain.NodeTypeOutput, Config: map[string]any{"text": "Thanks, {{name}}!"}},
		},
	}
}

func TestRunner_ConversationLoop(t *testing.T) {
	engine, err := parley.New(promptOutputWorkflow())
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	runner := parley.NewRunner(strings.NewReader("Alice\n"), &out)
	runner.Headless = true

	if err := runner.Run(context.Background(), engine); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	transcript := out.String()
	if !strings.Contains(transcript, "Hi! What's your name?") {
		t.Errorf("Expected opening prompt in output, got:\n%s", transcript)
	}
	if !strings.Contains(transcript, "Thanks, Alice!") {
		t.Errorf("Expected closing message in output, got:\n%s", transcript)
	}
}

func TestRunner_ExitCommand(t *testing.T) {
	engine, err := parley.New(promptOutputWorkflow())
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	runner := parley.NewRunner(strings.NewReader("exit\n"), &out)
	runner.Headless = true

	if err := runner.Run(context.Background(), engine); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Bye!") {
		t.Errorf("Expected farewell in output, got:\n%s", out.String())
	}
	if strings.Contains(out.String(), "Thanks") {
		t.Error("Did not expect the workflow to advance after exit")
	}
}

func TestRunner_EOFStopsLoop(t *testing.T) {
	engine, err := parley.New(promptOutputWorkflow())
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	runner := parley.NewRunner(strings.NewReader(""), &out)
	runner.Headless = true

	if err := runner.Run(context.Background(), engine); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestRunner_CustomRenderer(t *testing.T) {
	engine, err := parley.New(promptOutputWorkflow())
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	runner := parley.NewRunner(strings.NewReader("Alice\n"), &out)
	runner.Headless = true
	runner.Renderer = func(s string) (string, error) {
		return ">> " + s, nil
	}

	if err := runner.Run(context.Background(), engine); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), ">> Hi! What's your name?") {
		t.Errorf("Expected rendered prompt in output, got:\n%s", out.String())
	}
}

func TestRunner_RequiresIO(t *testing.T) {
	engine, err := parley.New(promptOutputWorkflow())
	if err != nil {
		t.Fatal(err)
	}

	runner := &parley.Runner{}
	if err := runner.Run(context.Background(), engine); err == nil {
		t.Error("Expected an error when IO is missing")
	}
}
