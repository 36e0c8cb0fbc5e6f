package execshell_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkus7/migrate-bb-to-gh/internal/execshell"
)

const (
	cloneStartCaseNameConstant       = "clone_mirror_lifecycle"
	cloneFailureCaseNameConstant     = "clone_mirror_failure_with_standard_error"
	pushStartCaseNameConstant        = "push_mirror_lifecycle_uses_working_directory"
	pushFailureCaseNameConstant      = "push_mirror_failure_without_standard_error"
	genericFailureCaseNameConstant   = "generic_command_failure"
	testMirrorDirectoryConstant      = "/tmp/mirrors/billing-service.git"
	testPushDestinationURLConstant   = "git@github.com:acme-gh/billing-service.git"
	testSSHCommandOverrideConstant   = "core.sshCommand=ssh -i '/tmp/keys/pull_key'"
	testTrimmedStandardErrorConstant = "  remote: access denied\n"
)

func mirrorCloneCommand(standardInputDirectory string) execshell.ShellCommand {
	return execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments: []string{"-c", testSSHCommandOverrideConstant, "clone", "--mirror", testSourceURLConstant, standardInputDirectory},
		},
	}
}

func mirrorPushCommand() execshell.ShellCommand {
	return execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments:        []string{"-c", testSSHCommandOverrideConstant, "push", "--mirror", testPushDestinationURLConstant},
			WorkingDirectory: testMirrorDirectoryConstant,
		},
	}
}

func TestCommandMessageFormatterStartMessages(testInstance *testing.T) {
	testCases := []struct {
		name             string
		command          execshell.ShellCommand
		expectedStart    string
		expectedComplete string
	}{
		{
			name:             cloneStartCaseNameConstant,
			command:          mirrorCloneCommand(testMirrorDirectoryConstant),
			expectedStart:    "Mirroring git@bitbucket.org:acme/billing-service.git into /tmp/mirrors/billing-service.git",
			expectedComplete: "Mirrored git@bitbucket.org:acme/billing-service.git into /tmp/mirrors/billing-service.git",
		},
		{
			name:             pushStartCaseNameConstant,
			command:          mirrorPushCommand(),
			expectedStart:    "Pushing mirror from /tmp/mirrors/billing-service.git to git@github.com:acme-gh/billing-service.git",
			expectedComplete: "Pushed mirror from /tmp/mirrors/billing-service.git to git@github.com:acme-gh/billing-service.git",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			runner := &scriptedCommandRunner{}
			executor, observedLogs := newObservedExecutor(subtestInstance, runner)

			_, executionError := executor.Execute(context.Background(), testCase.command)
			require.NoError(subtestInstance, executionError)

			logEntries := observedLogs.All()
			require.Len(subtestInstance, logEntries, 2)
			require.Equal(subtestInstance, testCase.expectedStart, logEntries[0].Message)
			require.Equal(subtestInstance, testCase.expectedComplete, logEntries[1].Message)
		})
	}
}

func TestCommandMessageFormatterFailureMessages(testInstance *testing.T) {
	testCases := []struct {
		name            string
		command         execshell.ShellCommand
		result          execshell.ExecutionResult
		expectedMessage string
	}{
		{
			name:            cloneFailureCaseNameConstant,
			command:         mirrorCloneCommand(testMirrorDirectoryConstant),
			result:          execshell.ExecutionResult{ExitCode: 128, StandardError: testTrimmedStandardErrorConstant},
			expectedMessage: "Failed to mirror git@bitbucket.org:acme/billing-service.git into /tmp/mirrors/billing-service.git (exit code 128: remote: access denied)",
		},
		{
			name:            pushFailureCaseNameConstant,
			command:         mirrorPushCommand(),
			result:          execshell.ExecutionResult{ExitCode: 1},
			expectedMessage: "Failed to push mirror from /tmp/mirrors/billing-service.git to git@github.com:acme-gh/billing-service.git (exit code 1)",
		},
		{
			name: genericFailureCaseNameConstant,
			command: execshell.ShellCommand{
				Name:    execshell.CommandGit,
				Details: execshell.CommandDetails{Arguments: []string{"fetch", "origin"}},
			},
			result:          execshell.ExecutionResult{ExitCode: 2, StandardError: "could not resolve host"},
			expectedMessage: "git fetch origin failed with exit code 2: could not resolve host",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			failedError := execshell.CommandFailedError{Command: testCase.command, Result: testCase.result}
			require.Equal(subtestInstance, testCase.expectedMessage, failedError.Error())
		})
	}
}

func TestDescribeCommandIncludesWorkingDirectory(testInstance *testing.T) {
	described := execshell.DescribeCommand(mirrorPushCommand())
	require.Contains(testInstance, described, "git -c")
	require.Contains(testInstance, described, "(in /tmp/mirrors/billing-service.git)")
}
