// Package memory provides in-process store implementations. They are safe
// for concurrent use and copy values on the way in and out, so callers can
// mutate what they hold without corrupting the store.
package memory
