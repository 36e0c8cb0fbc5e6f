// Package migrate contains the plan execution engine. It loads a versioned
// migration file, describes the planned actions, asks the operator for
// confirmation, and replays the actions in order against the source host,
// destination host, and CI platform.
package migrate
