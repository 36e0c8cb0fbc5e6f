package gitmirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/arkus7/migrate-bb-to-gh/internal/execshell"
)

const (
	configFlagConstant           = "-c"
	sshCommandSettingTemplate    = "core.sshCommand=%s"
	sshCommandTemplateConstant   = "ssh -i '%s' -o IdentitiesOnly=yes -o StrictHostKeyChecking=no -o UserKnownHostsFile='/dev/null' -F '/dev/null'"
	cloneSubcommandConstant      = "clone"
	pushSubcommandConstant       = "push"
	mirrorFlagConstant           = "--mirror"
	cloneFailureTemplateConstant = "mirror clone of %s failed: %w"
	pushFailureTemplateConstant  = "mirror push to %s failed: %w"
	executorNotConfiguredMessage = "shell executor not configured"
)

// ErrExecutorNotConfigured reports a missing shell executor dependency.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Mirror performs full-history transfers between hosting platforms.
type Mirror struct {
	executor GitExecutor
}

// NewMirror constructs a Mirror around the provided git executor.
func NewMirror(executor GitExecutor) (*Mirror, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Mirror{executor: executor}, nil
}

func sshCommandForKey(keyPath string) string {
	return fmt.Sprintf(sshCommandTemplateConstant, keyPath)
}

// CloneMirror clones the source repository with every ref into the target
// directory, authenticating with the given SSH key.
func (mirror *Mirror) CloneMirror(executionContext context.Context, sourceURL string, targetDirectory string, keyPath string) error {
	details := execshell.CommandDetails{
		Arguments: []string{
			configFlagConstant,
			fmt.Sprintf(sshCommandSettingTemplate, sshCommandForKey(keyPath)),
			cloneSubcommandConstant,
			mirrorFlagConstant,
			sourceURL,
			targetDirectory,
		},
	}

	if _, executionError := mirror.executor.ExecuteGit(executionContext, details); executionError != nil {
		return fmt.Errorf(cloneFailureTemplateConstant, sourceURL, executionError)
	}
	return nil
}

// PushMirror pushes every ref of the mirrored directory to the destination
// repository, authenticating with the given SSH key.
func (mirror *Mirror) PushMirror(executionContext context.Context, mirrorDirectory string, destinationURL string, keyPath string) error {
	details := execshell.CommandDetails{
		Arguments: []string{
			configFlagConstant,
			fmt.Sprintf(sshCommandSettingTemplate, sshCommandForKey(keyPath)),
			pushSubcommandConstant,
			mirrorFlagConstant,
			destinationURL,
		},
		WorkingDirectory: mirrorDirectory,
	}

	if _, executionError := mirror.executor.ExecuteGit(executionContext, details); executionError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, destinationURL, executionError)
	}
	return nil
}
