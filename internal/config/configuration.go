package config

import (
	"errors"

	"github.com/arkus7/migrate-bb-to-gh/internal/bitbucket"
	"github.com/arkus7/migrate-bb-to-gh/internal/circleci"
	"github.com/arkus7/migrate-bb-to-gh/internal/github"
)

const (
	missingBitbucketCredentialsMessage = "bitbucket username, password, and workspace name must be configured"
	missingGitHubCredentialsMessage    = "github username, password, and organization name must be configured"
	missingCircleCITokenMessage        = "circleci token must be configured"
	missingSSHKeysMessage              = "git pull and push ssh keys must be configured"
)

// Validation sentinel errors for incomplete configuration.
var (
	ErrMissingBitbucketCredentials = errors.New(missingBitbucketCredentialsMessage)
	ErrMissingGitHubCredentials    = errors.New(missingGitHubCredentialsMessage)
	ErrMissingCircleCIToken        = errors.New(missingCircleCITokenMessage)
	ErrMissingSSHKeys              = errors.New(missingSSHKeysMessage)
)

// GitConfiguration carries the SSH key material used for mirror transfers.
type GitConfiguration struct {
	PullSSHKey string `mapstructure:"pull_ssh_key"`
	PushSSHKey string `mapstructure:"push_ssh_key"`
}

// Configuration aggregates every collaborator's settings.
type Configuration struct {
	Bitbucket bitbucket.Configuration `mapstructure:"bitbucket"`
	GitHub    github.Configuration    `mapstructure:"github"`
	CircleCI  circleci.Configuration  `mapstructure:"circleci"`
	Git       GitConfiguration        `mapstructure:"git"`
}

// Validate reports the first missing credential group.
func (configuration Configuration) Validate() error {
	if len(configuration.Bitbucket.Username) == 0 || len(configuration.Bitbucket.Password) == 0 || len(configuration.Bitbucket.WorkspaceName) == 0 {
		return ErrMissingBitbucketCredentials
	}
	if len(configuration.GitHub.Username) == 0 || len(configuration.GitHub.Password) == 0 || len(configuration.GitHub.OrganizationName) == 0 {
		return ErrMissingGitHubCredentials
	}
	if len(configuration.CircleCI.Token) == 0 {
		return ErrMissingCircleCIToken
	}
	if len(configuration.Git.PullSSHKey) == 0 || len(configuration.Git.PushSSHKey) == 0 {
		return ErrMissingSSHKeys
	}
	return nil
}
