// Package cli constructs the migrate-bb-to-gh command-line interface, wiring
// the Cobra command hierarchy, configuration loader, sealed configuration
// handling, and structured logging primitives.
package cli
