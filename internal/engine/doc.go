// Package engine turns raw device punches into attendance spans.
//
// A sync run is a single-pass pipeline: freeze the device, fetch its user
// roster and punch backlog, sort the backlog into a deterministic order,
// then push each punch through identity resolution, the raw-log audit
// trail, deduplication, and span reconciliation. All span state for a run
// lives in a RunState that seeds lazily from the store, so the run only
// reads state for employees that actually punched.
//
// The engine talks to persistence through the narrow interfaces in
// stores.go rather than a concrete database handle. Production wires in
// the sqlite store; scenario tests substitute in-memory implementations.
//
// Mutation discipline: one run is processed start to finish before the
// next begins, and all writes happen from the run's goroutine. Runs for
// different devices may execute sequentially in any order; their span
// writes serialize through the store.
package engine
