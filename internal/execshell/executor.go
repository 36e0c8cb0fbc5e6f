package execshell

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor requires a logger"
	commandRunnerNotConfiguredMessageConstant = "shell executor requires a command runner"
	commandLogMessageFieldNameConstant        = "command"
	workingDirectoryLogFieldNameConstant      = "working_directory"
	exitCodeLogFieldNameConstant              = "exit_code"
)

// Exported sentinel errors describing misconfigured executors.
var (
	ErrLoggerNotConfigured        = errors.New(loggerNotConfiguredMessageConstant)
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandName identifies the external binary being executed.
type CommandName string

// CommandGit names the git binary used for mirror operations.
const CommandGit CommandName = "git"

// CommandDetails captures the arguments and environment for one invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs a binary name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a completed process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes a shell command and reports its result.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a process that started but exited with a non-zero status.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error renders the failure with the exit code and captured standard error text.
func (failedError CommandFailedError) Error() string {
	formatter := CommandMessageFormatter{}
	return formatter.FormatMessage(failedError.Command, failedError.Result, nil, messageStageFailure)
}

// CommandExecutionError reports a process that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error renders the execution failure including the underlying cause.
func (executionError CommandExecutionError) Error() string {
	formatter := CommandMessageFormatter{}
	return formatter.FormatMessage(executionError.Command, ExecutionResult{}, executionError.Cause, messageStageExecutionFailure)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ShellExecutor runs external commands with lifecycle logging.
type ShellExecutor struct {
	logger               *zap.Logger
	runner               CommandRunner
	observer             CommandEventObserver
	formatter            CommandMessageFormatter
	humanReadableLogging bool
}

// NewShellExecutor validates dependencies and constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, humanReadableLogging bool) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:               logger,
		runner:               runner,
		observer:             noopCommandEventObserver{},
		formatter:            CommandMessageFormatter{},
		humanReadableLogging: humanReadableLogging,
	}

	return executor, nil
}

// SetCommandEventObserver registers an observer notified about command lifecycle events.
func (executor *ShellExecutor) SetCommandEventObserver(observer CommandEventObserver) {
	if executor == nil {
		return
	}
	if observer == nil {
		executor.observer = noopCommandEventObserver{}
		return
	}
	executor.observer = observer
}

// ExecuteGit runs the git binary with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// Execute runs the supplied command, logging its lifecycle and translating failures into typed errors.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logCommandEvent(command, ExecutionResult{}, nil, messageStageStart)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logCommandEvent(command, ExecutionResult{}, runError, messageStageExecutionFailure)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	if executionResult.ExitCode != 0 {
		executor.logCommandEvent(command, executionResult, nil, messageStageFailure)
		executor.observer.CommandCompleted(command, executionResult)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logCommandEvent(command, executionResult, nil, messageStageSuccess)
	executor.observer.CommandCompleted(command, executionResult)

	return executionResult, nil
}

func (executor *ShellExecutor) logCommandEvent(command ShellCommand, result ExecutionResult, failure error, stage messageStage) {
	message := executor.formatter.FormatMessage(command, result, failure, stage)

	if executor.humanReadableLogging {
		executor.logger.Info(message)
		return
	}

	logFields := []zap.Field{
		zap.String(commandLogMessageFieldNameConstant, executor.formatter.FormatCommandLabel(command)),
		zap.String(workingDirectoryLogFieldNameConstant, executor.formatter.DescribeWorkingDirectory(command)),
	}
	if stage == messageStageFailure {
		logFields = append(logFields, zap.Int(exitCodeLogFieldNameConstant, result.ExitCode))
	}
	if failure != nil {
		logFields = append(logFields, zap.Error(failure))
	}

	switch stage {
	case messageStageFailure, messageStageExecutionFailure:
		executor.logger.Warn(message, logFields...)
	default:
		executor.logger.Debug(message, logFields...)
	}
}

// DescribeCommand renders the full command line for diagnostics.
func DescribeCommand(command ShellCommand) string {
	formatter := CommandMessageFormatter{}
	return fmt.Sprintf(commandLabelTemplateConstant, formatter.FormatCommandLabel(command), formatter.DescribeWorkingDirectorySuffix(command))
}
