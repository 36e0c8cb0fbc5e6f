// Package circleci provides the CI-host client used to follow projects,
// move environment variables and contexts between hosting platforms, and
// start verification pipelines after a migration.
package circleci
