// Package github provides the destination-host client used to create
// repositories and teams, manage team membership and repository
// assignments, and inspect repository contents during a migration.
package github
