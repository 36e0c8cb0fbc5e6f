package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitCloneSubcommandNameConstant = "clone"
	gitPushSubcommandNameConstant  = "push"
	gitMirrorFlagConstant          = "--mirror"
)

const (
	gitCloneMirrorStartTemplateConstant            = "Mirroring %s into %s"
	gitCloneMirrorSuccessTemplateConstant          = "Mirrored %s into %s"
	gitCloneMirrorFailureTemplateConstant          = "Failed to mirror %s into %s (exit code %d%s)"
	gitCloneMirrorExecutionFailureTemplateConstant = "Unable to mirror %s into %s: %s"
	gitPushMirrorStartTemplateConstant             = "Pushing mirror from %s to %s"
	gitPushMirrorSuccessTemplateConstant           = "Pushed mirror from %s to %s"
	gitPushMirrorFailureTemplateConstant           = "Failed to push mirror from %s to %s (exit code %d%s)"
	gitPushMirrorExecutionFailureTemplateConstant  = "Unable to push mirror from %s to %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// FormatMessage renders the message appropriate for the supplied lifecycle stage.
func (formatter CommandMessageFormatter) FormatMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name == CommandGit {
		subcommand, mirrorFlagPresent := formatter.extractGitSubcommand(command.Details.Arguments)
		if mirrorFlagPresent {
			switch subcommand {
			case gitCloneSubcommandNameConstant:
				return formatter.describeCloneMirrorMessage(command, result, failure, stage)
			case gitPushSubcommandNameConstant:
				return formatter.describePushMirrorMessage(command, result, failure, stage)
			}
		}
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

// FormatCommandLabel renders the binary name followed by its arguments.
func (formatter CommandMessageFormatter) FormatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}

// DescribeWorkingDirectory names the directory a command runs in.
func (formatter CommandMessageFormatter) DescribeWorkingDirectory(command ShellCommand) string {
	trimmedDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedDirectory
}

// DescribeWorkingDirectorySuffix renders the parenthesized working directory suffix when one is configured.
func (formatter CommandMessageFormatter) DescribeWorkingDirectorySuffix(command ShellCommand) string {
	trimmedDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedDirectory)
}

func (formatter CommandMessageFormatter) describeCloneMirrorMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	remoteURL, targetDirectory := formatter.extractClonePositionalArguments(command.Details.Arguments)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCloneMirrorStartTemplateConstant, remoteURL, targetDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneMirrorSuccessTemplateConstant, remoteURL, targetDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneMirrorFailureTemplateConstant, remoteURL, targetDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCloneMirrorExecutionFailureTemplateConstant, remoteURL, targetDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describePushMirrorMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.DescribeWorkingDirectory(command)
	remoteURL := formatter.extractPushRemoteArgument(command.Details.Arguments)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitPushMirrorStartTemplateConstant, workingDirectory, remoteURL)
	case messageStageSuccess:
		return fmt.Sprintf(gitPushMirrorSuccessTemplateConstant, workingDirectory, remoteURL)
	case messageStageFailure:
		return fmt.Sprintf(gitPushMirrorFailureTemplateConstant, workingDirectory, remoteURL, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitPushMirrorExecutionFailureTemplateConstant, workingDirectory, remoteURL, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.FormatCommandLabel(command) + formatter.DescribeWorkingDirectorySuffix(command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

// extractGitSubcommand finds the first non-flag argument after any -c configuration pairs.
func (formatter CommandMessageFormatter) extractGitSubcommand(arguments []string) (string, bool) {
	mirrorFlagPresent := false
	subcommand := emptyStringConstant

	argumentIndex := 0
	for argumentIndex < len(arguments) {
		argument := arguments[argumentIndex]
		switch {
		case argument == "-c":
			argumentIndex += 2
			continue
		case argument == gitMirrorFlagConstant:
			mirrorFlagPresent = true
		case !strings.HasPrefix(argument, "-") && len(subcommand) == 0:
			subcommand = argument
		}
		argumentIndex++
	}

	return subcommand, mirrorFlagPresent
}

func (formatter CommandMessageFormatter) extractClonePositionalArguments(arguments []string) (string, string) {
	positionalArguments := formatter.collectPositionalArguments(arguments)
	remoteURL := fallbackUnknownValueLabelConstant
	targetDirectory := fallbackUnknownValueLabelConstant
	if len(positionalArguments) > 1 {
		remoteURL = positionalArguments[1]
	}
	if len(positionalArguments) > 2 {
		targetDirectory = positionalArguments[2]
	}
	return remoteURL, targetDirectory
}

func (formatter CommandMessageFormatter) extractPushRemoteArgument(arguments []string) string {
	positionalArguments := formatter.collectPositionalArguments(arguments)
	if len(positionalArguments) > 1 {
		return positionalArguments[1]
	}
	return fallbackUnknownValueLabelConstant
}

func (formatter CommandMessageFormatter) collectPositionalArguments(arguments []string) []string {
	positionalArguments := make([]string, 0, len(arguments))
	argumentIndex := 0
	for argumentIndex < len(arguments) {
		argument := arguments[argumentIndex]
		if argument == "-c" {
			argumentIndex += 2
			continue
		}
		if !strings.HasPrefix(argument, "-") {
			positionalArguments = append(positionalArguments, argument)
		}
		argumentIndex++
	}
	return positionalArguments
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardErrorText string) string {
	trimmedStandardError := strings.TrimSpace(standardErrorText)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}
