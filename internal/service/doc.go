// Package service implements the application layer on top of the runtime:
// workflow definition management and run orchestration backed by the store
// ports. Services own no state of their own; everything is reconstructed from
// the stores on each call.
package service
