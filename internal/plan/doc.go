// Package plan defines the migration document persisted between the planning
// and execution phases: a versioned, ordered list of actions serialized as
// JSON. Actions form a closed tagged union; the document is written once by
// the planning phase and replayed exactly once by the execution engine.
package plan
