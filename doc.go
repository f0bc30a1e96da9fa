/*
Package parley is a step-driven execution engine for conversational workflows.

A workflow is a directed graph of typed nodes (Prompt, LLM, If, SetVar,
Output) over a shared conversation state: the message transcript plus a
variable map. The engine advances the conversation one external turn at a
time, auto-chaining the Prompt -> LLM -> Output shape inside a single turn so
a user message can be captured, interpreted and answered in one call.

# Concept

Parley separates the workflow definition (Logic) from the conversation state
(Context) and the completion backend (Tools). The engine owns transitions and
templating; the host application owns I/O, persistence and the LLM client.
This keeps the core embeddable in any interface: CLI, HTTP server, or a
larger agent system.

# Key Features

  - Step semantics: every call executes exactly one externally visible turn;
    state in, state out, nothing retained between calls.
  - Fixed chaining: Prompt -> LLM -> Output runs inside one turn; If and
    SetVar always return control to the caller.
  - Two strategies: the manual step driver ignores edge conditions, while the
    compiled graph evaluates them and runs to a terminal state.
  - Hexagonal layout: stores, the completion backend and the HTTP surface are
    adapters behind small ports.

# Usage

	package main

	import (
		"bufio"
		"context"
		"fmt"
		"log"
		"os"

		"github.com/avelhao/parley"
	)

	func main() {
		eng, err := parley.Load("greeter.yaml")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		state, err := eng.Start(ctx, "")
		if err != nil {
			log.Fatal(err)
		}
		if msg, ok := state.LastMessage(); ok {
			fmt.Println(msg.Content)
		}

		scanner := bufio.NewScanner(os.Stdin)
		for !state.Done && scanner.Scan() {
			state, err = eng.Step(ctx, state, scanner.Text())
			if err != nil {
				log.Fatal(err)
			}
			if msg, ok := state.LastMessage(); ok {
				fmt.Println(msg.Content)
			}
		}
	}
*/
package parley
