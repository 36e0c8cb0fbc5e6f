package migrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arkus7/migrate-bb-to-gh/internal/circleci"
	"github.com/arkus7/migrate-bb-to-gh/internal/config"
	"github.com/arkus7/migrate-bb-to-gh/internal/execshell"
	"github.com/arkus7/migrate-bb-to-gh/internal/github"
	"github.com/arkus7/migrate-bb-to-gh/internal/gitmirror"
	"github.com/arkus7/migrate-bb-to-gh/internal/utils"
)

const (
	migrateCommandUseConstant               = "migrate <migration-file>"
	migrateCommandShortDescriptionConstant  = "Execute a repository migration plan"
	migrateCommandLongDescriptionConstant   = "migrate loads a versioned migration file, prints every planned action, and, after confirmation, replays the actions in order against Bitbucket, GitHub, and CircleCI."
	circleCIGroupUseConstant                = "circleci"
	circleCIGroupShortDescriptionConstant   = "CircleCI-focused migration commands"
	circleCIMigrateUseConstant              = "migrate <migration-file>"
	circleCIMigrateShortDescription         = "Execute a CI migration plan"
	exportDelayFlagNameConstant             = "export-retry-delay"
	exportDelayFlagUsageConstant            = "Delay between environment variable export attempts."
	commandLoggerMissingMessageConstant     = "logger provider not configured"
	commandPrompterMissingMessageConstant   = "prompter provider not configured"
	configurationInvalidTemplateConstant    = "configuration invalid: %w"
	executorCreationErrorTemplateConstant   = "unable to construct shell executor: %w"
	mirrorCreationErrorTemplateConstant     = "unable to construct repository mirror: %w"
	serviceCreationErrorTemplateConstant    = "unable to construct migration service: %w"
	migrationAbortedMessageConstant         = "Migration aborted\n"
	defaultExportRetryDelayFlagValueSeconds = 2
)

// Command builder sentinel errors.
var (
	ErrCommandLoggerMissing   = errors.New(commandLoggerMissingMessageConstant)
	ErrCommandPrompterMissing = errors.New(commandPrompterMissingMessageConstant)
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider constructs a migration engine from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (*Service, error)

// CommandBuilder assembles the migrate commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() config.Configuration
	Prompter                     utils.ConfirmationPrompter
	ServiceProvider              ServiceProvider
	ToolVersion                  string

	exportRetryDelay time.Duration
}

// Build constructs the top-level migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	if builder.LoggerProvider == nil {
		return nil, ErrCommandLoggerMissing
	}
	if builder.Prompter == nil {
		return nil, ErrCommandPrompterMissing
	}

	command := &cobra.Command{
		Use:           migrateCommandUseConstant,
		Short:         migrateCommandShortDescriptionConstant,
		Long:          migrateCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE:          builder.runMigrate,
	}
	builder.registerFlags(command)

	return command, nil
}

// BuildCircleCIGroup constructs the circleci command group with its migrate subcommand.
func (builder *CommandBuilder) BuildCircleCIGroup() (*cobra.Command, error) {
	if builder.LoggerProvider == nil {
		return nil, ErrCommandLoggerMissing
	}
	if builder.Prompter == nil {
		return nil, ErrCommandPrompterMissing
	}

	groupCommand := &cobra.Command{
		Use:           circleCIGroupUseConstant,
		Short:         circleCIGroupShortDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	migrateCommand := &cobra.Command{
		Use:           circleCIMigrateUseConstant,
		Short:         circleCIMigrateShortDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE:          builder.runMigrate,
	}
	builder.registerFlags(migrateCommand)
	groupCommand.AddCommand(migrateCommand)

	return groupCommand, nil
}

func (builder *CommandBuilder) registerFlags(command *cobra.Command) {
	command.Flags().DurationVar(&builder.exportRetryDelay, exportDelayFlagNameConstant, defaultExportRetryDelayFlagValueSeconds*time.Second, exportDelayFlagUsageConstant)
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, arguments []string) error {
	logger := builder.LoggerProvider()
	if logger == nil {
		logger = zap.NewNop()
	}

	configuration := builder.ConfigurationProvider()
	if validationError := configuration.Validate(); validationError != nil {
		return fmt.Errorf(configurationInvalidTemplateConstant, validationError)
	}

	service, serviceError := builder.resolveService(command, logger, configuration)
	if serviceError != nil {
		return serviceError
	}

	executionError := service.Execute(command.Context(), arguments[0])
	if errors.Is(executionError, ErrConfirmationDeclined) {
		fmt.Fprint(command.OutOrStdout(), migrationAbortedMessageConstant)
		return nil
	}
	return executionError
}

func (builder *CommandBuilder) resolveService(command *cobra.Command, logger *zap.Logger, configuration config.Configuration) (*Service, error) {
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), humanReadableLogging)
	if executorError != nil {
		return nil, fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}

	repositoryMirror, mirrorError := gitmirror.NewMirror(shellExecutor)
	if mirrorError != nil {
		return nil, fmt.Errorf(mirrorCreationErrorTemplateConstant, mirrorError)
	}

	dependencies := ServiceDependencies{
		Logger:      logger,
		Output:      utils.NewFlushingWriter(command.OutOrStdout()),
		Prompter:    builder.Prompter,
		Destination: github.NewClient(configuration.GitHub),
		CI: circleci.NewClient(configuration.CircleCI, logger, circleci.ClientOptions{
			ExportRetryDelay: builder.exportRetryDelay,
		}),
		Mirror:           repositoryMirror,
		Credentials:      NewSSHKeyStore(configuration.Git.PullSSHKey, configuration.Git.PushSSHKey, logger),
		OrganizationName: configuration.GitHub.OrganizationName,
		ToolVersion:      builder.ToolVersion,
	}

	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}

	service, creationError := NewService(dependencies)
	if creationError != nil {
		return nil, fmt.Errorf(serviceCreationErrorTemplateConstant, creationError)
	}
	return service, nil
}
