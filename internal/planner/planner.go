package planner

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arkus7/migrate-bb-to-gh/internal/bitbucket"
	"github.com/arkus7/migrate-bb-to-gh/internal/circleci"
	"github.com/arkus7/migrate-bb-to-gh/internal/github"
	"github.com/arkus7/migrate-bb-to-gh/internal/plan"
)

const (
	sourceNotConfiguredMessageConstant      = "source client not configured"
	destinationNotConfiguredMessageConstant = "destination client not configured"
	ciNotConfiguredMessageConstant          = "ci client not configured"
	projectNotFoundTemplateConstant         = "project %s has no repositories in the workspace"
	allRepositoriesExistTemplateConstant    = "all repositories of project %s already exist in the destination organization"
	cloneLinkErrorTemplateConstant          = "repository %s: %w"
	configDecodeErrorTemplateConstant       = "unable to decode CI configuration of %s: %w"
	base64EncodingNameConstant              = "base64"
	repositoryPlannedMessageConstant        = "Repository scheduled for migration"
	repositorySkippedMessageConstant        = "Repository already exists on the destination, skipping"
	contextPlannedMessageConstant           = "Context scheduled for creation"
	noCIConfigurationMessageConstant        = "Repository has no CI configuration"
	contextVariablesUnavailableMessage      = "Unable to list source context variables"
)

// Planner dependency sentinel errors.
var (
	ErrSourceNotConfigured      = errors.New(sourceNotConfiguredMessageConstant)
	ErrDestinationNotConfigured = errors.New(destinationNotConfiguredMessageConstant)
	ErrCINotConfigured          = errors.New(ciNotConfiguredMessageConstant)
)

// SourceClient is the source-host surface used for planning.
type SourceClient interface {
	GetProjects(executionContext context.Context) ([]bitbucket.Project, error)
	GetProjectRepositories(executionContext context.Context, projectKey string) ([]bitbucket.Repository, error)
}

// DestinationClient is the destination-host surface used for planning.
type DestinationClient interface {
	GetTeams(executionContext context.Context) ([]github.Team, error)
	GetRepositories(executionContext context.Context) ([]github.Repository, error)
	GetFileContents(executionContext context.Context, fullRepositoryName string, filePath string) (*github.FileContents, error)
}

// CIClient is the CI-platform surface used for planning.
type CIClient interface {
	GetContexts(executionContext context.Context, provider circleci.VCSProvider) ([]circleci.Context, error)
	GetContextVariables(executionContext context.Context, contextID string) ([]circleci.ContextVariable, error)
	GetEnvironmentVariables(executionContext context.Context, provider circleci.VCSProvider, fullRepositoryName string) ([]circleci.ProjectVariable, error)
}

// Dependencies enumerates the planner's collaborators.
type Dependencies struct {
	Logger           *zap.Logger
	Source           SourceClient
	Destination      DestinationClient
	CI               CIClient
	OrganizationName string
}

// Planner builds plan documents from live source-host and CI state.
type Planner struct {
	dependencies Dependencies
}

// NewPlanner validates the dependencies and constructs the planner.
func NewPlanner(dependencies Dependencies) (*Planner, error) {
	if dependencies.Source == nil {
		return nil, ErrSourceNotConfigured
	}
	if dependencies.Destination == nil {
		return nil, ErrDestinationNotConfigured
	}
	if dependencies.CI == nil {
		return nil, ErrCINotConfigured
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}

	return &Planner{dependencies: dependencies}, nil
}

// BuildRepositoryPlan schedules every repository of a source project for
// mirroring: one migrate_repositories action covering the whole project, a
// team granted access to the migrated repositories, and one default-branch
// action per repository. Repositories already present in the destination
// organization are skipped.
func (planner *Planner) BuildRepositoryPlan(executionContext context.Context, projectKey string, teamName string) ([]plan.Action, error) {
	sourceRepositories, listError := planner.dependencies.Source.GetProjectRepositories(executionContext, projectKey)
	if listError != nil {
		return nil, listError
	}
	if len(sourceRepositories) == 0 {
		return nil, fmt.Errorf(projectNotFoundTemplateConstant, projectKey)
	}

	existingRepositoryNames, existingError := planner.destinationRepositoryNames(executionContext)
	if existingError != nil {
		return nil, existingError
	}

	remainingRepositories := make([]bitbucket.Repository, 0, len(sourceRepositories))
	for _, sourceRepository := range sourceRepositories {
		if _, alreadyMigrated := existingRepositoryNames[sourceRepository.Name]; alreadyMigrated {
			planner.dependencies.Logger.Info(repositorySkippedMessageConstant,
				zap.String("repository", sourceRepository.FullName),
			)
			continue
		}
		remainingRepositories = append(remainingRepositories, sourceRepository)
	}
	if len(remainingRepositories) == 0 {
		return nil, fmt.Errorf(allRepositoriesExistTemplateConstant, projectKey)
	}
	sourceRepositories = remainingRepositories

	plannedRepositories := make([]plan.Repository, 0, len(sourceRepositories))
	repositoryFullNames := make([]string, 0, len(sourceRepositories))
	for _, sourceRepository := range sourceRepositories {
		cloneURL, cloneLinkError := sourceRepository.SSHCloneURL()
		if cloneLinkError != nil {
			return nil, fmt.Errorf(cloneLinkErrorTemplateConstant, sourceRepository.FullName, cloneLinkError)
		}

		plannedRepositories = append(plannedRepositories, plan.Repository{
			CloneLink: cloneURL,
			Name:      sourceRepository.Name,
			FullName:  sourceRepository.FullName,
		})
		repositoryFullNames = append(repositoryFullNames, planner.destinationFullName(sourceRepository.Name))

		planner.dependencies.Logger.Info(repositoryPlannedMessageConstant,
			zap.String("repository", sourceRepository.FullName),
		)
	}

	plannedActions := []plan.Action{
		{MigrateRepositories: &plan.MigrateRepositoriesAction{Repositories: plannedRepositories}},
	}
	if len(teamName) > 0 {
		teamExists, teamLookupError := planner.teamExists(executionContext, teamName)
		if teamLookupError != nil {
			return nil, teamLookupError
		}
		if !teamExists {
			plannedActions = append(plannedActions, plan.Action{
				CreateTeam: &plan.CreateTeamAction{Name: teamName, Repositories: repositoryFullNames},
			})
		}
	}
	for _, sourceRepository := range sourceRepositories {
		if len(sourceRepository.MainBranch.Name) == 0 {
			continue
		}
		plannedActions = append(plannedActions, plan.Action{
			SetRepositoryDefaultBranch: &plan.SetRepositoryDefaultBranchAction{
				RepositoryName: sourceRepository.Name,
				Branch:         sourceRepository.MainBranch.Name,
			},
		})
	}

	return plannedActions, nil
}

// BuildCIPlan schedules the CI migration of already mirrored repositories:
// contexts referenced by each repository's CI configuration are recreated on
// the destination organization (variable names carried over, values left for
// the operator to fill in), project environment variables are exported, and a
// verification pipeline is started on the default branch.
func (planner *Planner) BuildCIPlan(executionContext context.Context, sourceRepositories []bitbucket.Repository) ([]plan.Action, error) {
	destinationContexts, destinationContextsError := planner.dependencies.CI.GetContexts(executionContext, circleci.VCSProviderGitHub)
	if destinationContextsError != nil {
		return nil, destinationContextsError
	}
	existingContextNames := map[string]struct{}{}
	for _, destinationContext := range destinationContexts {
		existingContextNames[destinationContext.Name] = struct{}{}
	}

	sourceContextsByName, sourceContextsError := planner.sourceContextsByName(executionContext)
	if sourceContextsError != nil {
		return nil, sourceContextsError
	}

	plannedActions := []plan.Action{}
	plannedContextNames := map[string]struct{}{}
	for _, sourceRepository := range sourceRepositories {
		usedContextNames, usageError := planner.usedContextNames(executionContext, sourceRepository)
		if usageError != nil {
			return nil, usageError
		}

		for _, contextName := range usedContextNames {
			if _, alreadyExists := existingContextNames[contextName]; alreadyExists {
				continue
			}
			if _, alreadyPlanned := plannedContextNames[contextName]; alreadyPlanned {
				continue
			}
			plannedContextNames[contextName] = struct{}{}

			plannedActions = append(plannedActions, plan.Action{
				CreateContext: &plan.CreateContextAction{
					Name:      contextName,
					Variables: planner.contextVariableTemplates(executionContext, sourceContextsByName, contextName),
				},
			})
			planner.dependencies.Logger.Info(contextPlannedMessageConstant,
				zap.String("context", contextName),
			)
		}

		exportActions, exportError := planner.environmentExportActions(executionContext, sourceRepository)
		if exportError != nil {
			return nil, exportError
		}
		plannedActions = append(plannedActions, exportActions...)

		if len(sourceRepository.MainBranch.Name) > 0 {
			plannedActions = append(plannedActions, plan.Action{
				StartPipeline: &plan.StartPipelineAction{
					RepositoryName: sourceRepository.Name,
					Branch:         sourceRepository.MainBranch.Name,
				},
			})
		}
	}

	return plannedActions, nil
}

func (planner *Planner) destinationRepositoryNames(executionContext context.Context) (map[string]struct{}, error) {
	destinationRepositories, listError := planner.dependencies.Destination.GetRepositories(executionContext)
	if listError != nil {
		return nil, listError
	}

	repositoryNames := make(map[string]struct{}, len(destinationRepositories))
	for _, destinationRepository := range destinationRepositories {
		repositoryNames[destinationRepository.Name] = struct{}{}
	}
	return repositoryNames, nil
}

func (planner *Planner) teamExists(executionContext context.Context, teamName string) (bool, error) {
	existingTeams, listError := planner.dependencies.Destination.GetTeams(executionContext)
	if listError != nil {
		return false, listError
	}
	for _, existingTeam := range existingTeams {
		if existingTeam.Name == teamName {
			return true, nil
		}
	}
	return false, nil
}

func (planner *Planner) sourceContextsByName(executionContext context.Context) (map[string]circleci.Context, error) {
	sourceContexts, listError := planner.dependencies.CI.GetContexts(executionContext, circleci.VCSProviderBitbucket)
	if listError != nil {
		return nil, listError
	}

	contextsByName := map[string]circleci.Context{}
	for _, sourceContext := range sourceContexts {
		contextsByName[sourceContext.Name] = sourceContext
	}
	return contextsByName, nil
}

// usedContextNames reads the repository's CI configuration from the
// destination host, where the repository already lives after mirroring.
func (planner *Planner) usedContextNames(executionContext context.Context, sourceRepository bitbucket.Repository) ([]string, error) {
	destinationFullName := planner.destinationFullName(sourceRepository.Name)
	configurationFile, fetchError := planner.dependencies.Destination.GetFileContents(executionContext, destinationFullName, circleci.ConfigFilePath)
	if fetchError != nil {
		return nil, fetchError
	}
	if configurationFile == nil {
		planner.dependencies.Logger.Info(noCIConfigurationMessageConstant,
			zap.String("repository", destinationFullName),
		)
		return nil, nil
	}

	configurationContents := []byte(configurationFile.Content)
	if configurationFile.Encoding == base64EncodingNameConstant {
		decodedContents, decodeError := base64.StdEncoding.DecodeString(configurationFile.Content)
		if decodeError != nil {
			return nil, fmt.Errorf(configDecodeErrorTemplateConstant, destinationFullName, decodeError)
		}
		configurationContents = decodedContents
	}

	return circleci.UsedContexts(configurationContents)
}

// contextVariableTemplates carries variable names from the matching source
// context. Values cannot be read back through the API, so they stay empty in
// the generated plan.
func (planner *Planner) contextVariableTemplates(executionContext context.Context, sourceContextsByName map[string]circleci.Context, contextName string) []plan.EnvVar {
	sourceContext, knownOnSource := sourceContextsByName[contextName]
	if !knownOnSource {
		return nil
	}

	sourceVariables, listError := planner.dependencies.CI.GetContextVariables(executionContext, sourceContext.ID)
	if listError != nil {
		planner.dependencies.Logger.Warn(contextVariablesUnavailableMessage, zap.Error(listError))
		return nil
	}

	variableTemplates := make([]plan.EnvVar, 0, len(sourceVariables))
	for _, sourceVariable := range sourceVariables {
		variableTemplates = append(variableTemplates, plan.EnvVar{Name: sourceVariable.Variable})
	}
	return variableTemplates
}

func (planner *Planner) environmentExportActions(executionContext context.Context, sourceRepository bitbucket.Repository) ([]plan.Action, error) {
	projectVariables, listError := planner.dependencies.CI.GetEnvironmentVariables(executionContext, circleci.VCSProviderBitbucket, sourceRepository.FullName)
	if listError != nil {
		return nil, listError
	}
	if len(projectVariables) == 0 {
		return nil, nil
	}

	variableNames := make([]string, 0, len(projectVariables))
	for _, projectVariable := range projectVariables {
		variableNames = append(variableNames, projectVariable.Name)
	}

	return []plan.Action{
		{
			MoveEnvironmentalVariables: &plan.MoveEnvironmentalVariablesAction{
				FromRepositoryName:       sourceRepository.FullName,
				ToRepositoryName:         planner.destinationFullName(sourceRepository.Name),
				EnvironmentVariableNames: variableNames,
			},
		},
	}, nil
}

func (planner *Planner) destinationFullName(repositoryName string) string {
	return planner.dependencies.OrganizationName + "/" + repositoryName
}
