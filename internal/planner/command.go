package planner

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arkus7/migrate-bb-to-gh/internal/bitbucket"
	"github.com/arkus7/migrate-bb-to-gh/internal/circleci"
	"github.com/arkus7/migrate-bb-to-gh/internal/config"
	"github.com/arkus7/migrate-bb-to-gh/internal/github"
	"github.com/arkus7/migrate-bb-to-gh/internal/plan"
	"github.com/arkus7/migrate-bb-to-gh/internal/utils"
)

const (
	planGroupUseConstant                  = "plan"
	planGroupShortDescriptionConstant     = "Generate and inspect migration plans"
	showCommandUseConstant                = "show <migration-file>"
	showCommandShortDescription           = "Describe the actions of a migration plan without executing them"
	projectsCommandUseConstant            = "projects"
	projectsCommandShortDescription       = "List the source workspace's projects"
	reposCommandUseConstant               = "repos <project-key>"
	reposCommandShortDescription          = "Generate a repository migration plan for a source project"
	ciPlanCommandUseConstant              = "circleci <project-key>"
	ciPlanCommandShortDescription         = "Generate a CI migration plan for a source project"
	outputFlagNameConstant                = "output"
	outputFlagUsageConstant               = "Path of the generated migration file."
	teamFlagNameConstant                  = "team"
	teamFlagUsageConstant                 = "Team granted access to the migrated repositories."
	defaultRepositoryPlanFileNameConstant = "migration.json"
	defaultCIPlanFileNameConstant         = "circleci-migration.json"
	projectListItemTemplateConstant       = "%s\n"
	planWrittenTemplateConstant           = "Plan with %d actions written to %s\n"
	plannerLoggerMissingMessageConstant   = "logger provider not configured"
	plannerPrompterMissingMessage         = "prompter not configured"
	plannerCreationErrorTemplateConstant  = "unable to construct planner: %w"
)

// Command builder sentinel errors.
var (
	ErrCommandLoggerMissing   = errors.New(plannerLoggerMissingMessageConstant)
	ErrCommandPrompterMissing = errors.New(plannerPrompterMissingMessage)
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the plan command group.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() config.Configuration
	Prompter              utils.ConfirmationPrompter
	ToolVersion           string

	outputFlagValue string
	teamFlagValue   string
}

// Build constructs the plan command group with its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	if builder.LoggerProvider == nil {
		return nil, ErrCommandLoggerMissing
	}
	if builder.Prompter == nil {
		return nil, ErrCommandPrompterMissing
	}

	groupCommand := &cobra.Command{
		Use:           planGroupUseConstant,
		Short:         planGroupShortDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	showCommand := &cobra.Command{
		Use:           showCommandUseConstant,
		Short:         showCommandShortDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE:          builder.runShow,
	}

	projectsCommand := &cobra.Command{
		Use:           projectsCommandUseConstant,
		Short:         projectsCommandShortDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runProjects,
	}

	reposCommand := &cobra.Command{
		Use:           reposCommandUseConstant,
		Short:         reposCommandShortDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE:          builder.runRepositoryPlan,
	}
	reposCommand.Flags().StringVar(&builder.outputFlagValue, outputFlagNameConstant, defaultRepositoryPlanFileNameConstant, outputFlagUsageConstant)
	reposCommand.Flags().StringVar(&builder.teamFlagValue, teamFlagNameConstant, "", teamFlagUsageConstant)

	ciPlanCommand := &cobra.Command{
		Use:           ciPlanCommandUseConstant,
		Short:         ciPlanCommandShortDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE:          builder.runCIPlan,
	}
	ciPlanCommand.Flags().StringVar(&builder.outputFlagValue, outputFlagNameConstant, defaultCIPlanFileNameConstant, outputFlagUsageConstant)

	groupCommand.AddCommand(showCommand)
	groupCommand.AddCommand(projectsCommand)
	groupCommand.AddCommand(reposCommand)
	groupCommand.AddCommand(ciPlanCommand)

	return groupCommand, nil
}

func (builder *CommandBuilder) runShow(command *cobra.Command, arguments []string) error {
	document, loadError := plan.Load(arguments[0], builder.ToolVersion)
	if loadError != nil {
		return loadError
	}

	fmt.Fprintln(command.OutOrStdout(), plan.DescribeActions(document.Actions))
	return nil
}

func (builder *CommandBuilder) runProjects(command *cobra.Command, arguments []string) error {
	configuration := builder.ConfigurationProvider()
	sourceClient := bitbucket.NewClient(configuration.Bitbucket)

	projects, listError := sourceClient.GetProjects(command.Context())
	if listError != nil {
		return listError
	}

	for _, project := range projects {
		fmt.Fprintf(command.OutOrStdout(), projectListItemTemplateConstant, project.String())
	}
	return nil
}

func (builder *CommandBuilder) runRepositoryPlan(command *cobra.Command, arguments []string) error {
	planner, _, plannerError := builder.resolvePlanner()
	if plannerError != nil {
		return plannerError
	}

	plannedActions, planError := planner.BuildRepositoryPlan(command.Context(), arguments[0], builder.teamFlagValue)
	if planError != nil {
		return planError
	}

	return builder.writePlan(command, plannedActions)
}

func (builder *CommandBuilder) runCIPlan(command *cobra.Command, arguments []string) error {
	planner, sourceClient, plannerError := builder.resolvePlanner()
	if plannerError != nil {
		return plannerError
	}

	sourceRepositories, listError := sourceClient.GetProjectRepositories(command.Context(), arguments[0])
	if listError != nil {
		return listError
	}

	plannedActions, planError := planner.BuildCIPlan(command.Context(), sourceRepositories)
	if planError != nil {
		return planError
	}

	return builder.writePlan(command, plannedActions)
}

func (builder *CommandBuilder) resolvePlanner() (*Planner, *bitbucket.Client, error) {
	logger := builder.LoggerProvider()
	if logger == nil {
		logger = zap.NewNop()
	}

	configuration := builder.ConfigurationProvider()
	sourceClient := bitbucket.NewClient(configuration.Bitbucket)

	planner, creationError := NewPlanner(Dependencies{
		Logger:           logger,
		Source:           sourceClient,
		Destination:      github.NewClient(configuration.GitHub),
		CI:               circleci.NewClient(configuration.CircleCI, logger, circleci.ClientOptions{}),
		OrganizationName: configuration.GitHub.OrganizationName,
	})
	if creationError != nil {
		return nil, nil, fmt.Errorf(plannerCreationErrorTemplateConstant, creationError)
	}

	return planner, sourceClient, nil
}

func (builder *CommandBuilder) writePlan(command *cobra.Command, plannedActions []plan.Action) error {
	document := plan.NewDocument(builder.ToolVersion, plannedActions)
	if saveError := document.Save(builder.outputFlagValue, builder.Prompter); saveError != nil {
		return saveError
	}

	fmt.Fprintf(command.OutOrStdout(), planWrittenTemplateConstant, len(plannedActions), builder.outputFlagValue)
	return nil
}
