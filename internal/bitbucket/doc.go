// Package bitbucket implements the source-host collaborator: a thin REST
// client over the Bitbucket Cloud 2.0 API used to resolve projects,
// repositories, branches, and SSH clone links during planning.
package bitbucket
