// Package redis implements the store ports on a Redis backend. Records are
// stored as JSON: workflows and runs under plain keys, step history as a
// list, all under a configurable key prefix.
package redis
