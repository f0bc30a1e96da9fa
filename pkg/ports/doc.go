/*
Package ports defines the driven-side interfaces of the engine: workflow and
run persistence, and the text-completion backend. Adapters (memory, redis,
openai) implement these contracts; the engine and services depend only on the
interfaces, following Hexagonal Architecture principles.
*/
package ports
