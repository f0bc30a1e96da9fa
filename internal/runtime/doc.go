/*
Package runtime is the conversation-step execution engine.

It contains the graph resolver (successor lookup via explicit edges with a
linear fallback pointer), the per-type node executors, the manual step driver
(Start/Step with its fixed auto-chaining policy), and the compiled-graph
executor (the secondary strategy that evaluates edge conditions).

The engine is synchronous and stateless across calls: all conversation state
enters as a parameter and leaves as a return value. Concurrent steps on the
same run must be serialized by the caller.
*/
package runtime
