/*
Package domain contains the core domain models for the Parley engine.

It defines the fundamental entities of the conversational state machine: the
Workflow graph (Nodes, Edges), the ConversationState threaded through node
executions, and the Run/RunStep records handed to the persistence boundary.
This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Workflow: The immutable graph definition (nodes, edges, initial variables).
  - Node: A conversational step (Prompt, LLM, If, SetVar, Output).
  - ConversationState: The runtime snapshot of a run (messages, variables, last node, done).
  - Run / RunStep: Execution records appended by the service layer.
*/
package domain
