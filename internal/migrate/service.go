package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arkus7/migrate-bb-to-gh/internal/circleci"
	"github.com/arkus7/migrate-bb-to-gh/internal/github"
	"github.com/arkus7/migrate-bb-to-gh/internal/plan"
	"github.com/arkus7/migrate-bb-to-gh/internal/utils"
)

const (
	loggerNotConfiguredMessageConstant       = "logger not configured"
	prompterNotConfiguredMessageConstant     = "confirmation prompter not configured"
	outputNotConfiguredMessageConstant       = "output writer not configured"
	destinationNotConfiguredMessageConstant  = "destination client not configured"
	ciNotConfiguredMessageConstant           = "ci client not configured"
	mirrorNotConfiguredMessageConstant       = "repository mirror not configured"
	credentialsNotConfiguredMessageConstant  = "credential store not configured"
	organizationNotConfiguredMessageConstant = "destination organization not configured"
	confirmationDeclinedMessageConstant      = "migration not confirmed"
	migrationPromptConstant                  = "Are you sure you want to migrate? [y/N] "
	elapsedReportTemplateConstant            = "Migration took %d seconds\n"
	mirrorDirectoryPatternConstant           = "migrate-bb-to-gh-mirror-*"
	mirrorSubdirectoryNameConstant           = "mirror.git"
	destinationCloneURLTemplateConstant      = "git@github.com:%s.git"
	repositoryFailureTemplateConstant        = "repository %s: %w"
	repositoryFailuresSummaryTemplate        = "%d of %d repositories failed to migrate:\n%v\n"
	repositoryMigratedMessageConstant        = "Repository migrated"
	repositoryFailedMessageConstant          = "Repository migration failed"
	mirrorDirectoryKeptMessageConstant       = "Mirror directory kept for inspection"
	actionStartedMessageConstant             = "Executing action"
	planLoadedMessageConstant                = "Migration plan loaded"
	actionFailureTemplateConstant            = "action %d (%s) failed: %v"
	fullNameSeparatorConstant                = "/"
)

// Dependency sentinel errors surfaced by NewService.
var (
	ErrLoggerNotConfigured       = errors.New(loggerNotConfiguredMessageConstant)
	ErrPrompterNotConfigured     = errors.New(prompterNotConfiguredMessageConstant)
	ErrOutputNotConfigured       = errors.New(outputNotConfiguredMessageConstant)
	ErrDestinationNotConfigured  = errors.New(destinationNotConfiguredMessageConstant)
	ErrCINotConfigured           = errors.New(ciNotConfiguredMessageConstant)
	ErrMirrorNotConfigured       = errors.New(mirrorNotConfiguredMessageConstant)
	ErrCredentialsNotConfigured  = errors.New(credentialsNotConfiguredMessageConstant)
	ErrOrganizationNotConfigured = errors.New(organizationNotConfiguredMessageConstant)
)

// ErrConfirmationDeclined reports that the operator rejected the migration prompt.
var ErrConfirmationDeclined = errors.New(confirmationDeclinedMessageConstant)

// ActionError wraps a failure of one plan action with its position and variant tag.
type ActionError struct {
	ActionIndex int
	ActionTag   string
	Cause       error
}

// Error describes the failed action.
func (actionError ActionError) Error() string {
	return fmt.Sprintf(actionFailureTemplateConstant, actionError.ActionIndex+1, actionError.ActionTag, actionError.Cause)
}

// Unwrap exposes the underlying cause.
func (actionError ActionError) Unwrap() error {
	return actionError.Cause
}

// State tracks the engine through one migration run.
type State string

// Engine states in run order, plus the two terminal failure states.
const (
	StateIdle       State = "idle"
	StatePlanLoaded State = "plan_loaded"
	StateConfirmed  State = "confirmed"
	StateExecuting  State = "executing"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
	StateFailed     State = "failed"
)

// DestinationClient is the destination-host collaborator surface used by the engine.
type DestinationClient interface {
	CreateRepository(executionContext context.Context, repositoryName string) (*github.Repository, error)
	CreateTeam(executionContext context.Context, teamName string, repositoryNames []string) (*github.Team, error)
	UpdateTeamMembership(executionContext context.Context, teamSlug string, userName string) error
	AssignRepositoryToTeam(executionContext context.Context, teamSlug string, permission plan.TeamRepositoryPermission, fullRepositoryName string) error
	SetRepositoryDefaultBranch(executionContext context.Context, fullRepositoryName string, branchName string) error
}

// CIClient is the CI-platform collaborator surface used by the engine.
type CIClient interface {
	CreateContext(executionContext context.Context, provider circleci.VCSProvider, contextName string) (*circleci.Context, error)
	AddContextVariable(executionContext context.Context, contextID string, variable plan.EnvVar) error
	ExportEnvironmentVariables(executionContext context.Context, fromRepositoryName string, toRepositoryName string, variableNames []string) error
	FollowProject(executionContext context.Context, provider circleci.VCSProvider, fullRepositoryName string, branch string) error
}

// RepositoryMirror transfers full repository histories.
type RepositoryMirror interface {
	CloneMirror(executionContext context.Context, sourceURL string, targetDirectory string, keyPath string) error
	PushMirror(executionContext context.Context, mirrorDirectory string, destinationURL string, keyPath string) error
}

// StagedKeys exposes the staged key locations and their teardown.
type StagedKeys interface {
	PullKeyPath() string
	PushKeyPath() string
	Cleanup()
}

// CredentialStore stages the SSH keys for the duration of a run.
type CredentialStore interface {
	StageKeys() (StagedKeys, error)
}

// ServiceDependencies enumerates the engine's collaborators.
type ServiceDependencies struct {
	Logger           *zap.Logger
	Output           io.Writer
	Prompter         utils.ConfirmationPrompter
	Destination      DestinationClient
	CI               CIClient
	Mirror           RepositoryMirror
	Credentials      CredentialStore
	OrganizationName string
	ToolVersion      string
}

// Service executes migration plans.
type Service struct {
	dependencies ServiceDependencies
	currentState State
}

// NewService validates the dependencies and constructs the engine.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Output == nil {
		return nil, ErrOutputNotConfigured
	}
	if dependencies.Prompter == nil {
		return nil, ErrPrompterNotConfigured
	}
	if dependencies.Destination == nil {
		return nil, ErrDestinationNotConfigured
	}
	if dependencies.CI == nil {
		return nil, ErrCINotConfigured
	}
	if dependencies.Mirror == nil {
		return nil, ErrMirrorNotConfigured
	}
	if dependencies.Credentials == nil {
		return nil, ErrCredentialsNotConfigured
	}
	if len(dependencies.OrganizationName) == 0 {
		return nil, ErrOrganizationNotConfigured
	}

	return &Service{dependencies: dependencies, currentState: StateIdle}, nil
}

// State reports the engine's position in the current run.
func (service *Service) State() State {
	return service.currentState
}

// Execute loads the migration file, describes it, asks for confirmation, and
// replays every action in order. Declined confirmation aborts the run before
// any side effect.
func (service *Service) Execute(executionContext context.Context, planPath string) error {
	document, loadError := plan.Load(planPath, service.dependencies.ToolVersion)
	if loadError != nil {
		service.currentState = StateFailed
		return loadError
	}
	service.currentState = StatePlanLoaded
	service.dependencies.Logger.Info(planLoadedMessageConstant,
		zap.String("path", planPath),
		zap.Int("actions", len(document.Actions)),
	)

	fmt.Fprintln(service.dependencies.Output, plan.DescribeActions(document.Actions))

	confirmed, confirmationError := service.dependencies.Prompter.Confirm(migrationPromptConstant)
	if confirmationError != nil {
		service.currentState = StateFailed
		return confirmationError
	}
	if !confirmed {
		service.currentState = StateAborted
		return ErrConfirmationDeclined
	}
	service.currentState = StateConfirmed

	service.currentState = StateExecuting
	startTime := time.Now()
	for actionIndex, action := range document.Actions {
		actionTag, tagError := action.Tag()
		if tagError != nil {
			service.currentState = StateFailed
			return ActionError{ActionIndex: actionIndex, ActionTag: actionTag, Cause: tagError}
		}
		service.dependencies.Logger.Info(actionStartedMessageConstant,
			zap.Int("position", actionIndex+1),
			zap.String("type", actionTag),
		)

		if executionError := service.executeAction(executionContext, action); executionError != nil {
			service.currentState = StateFailed
			return ActionError{ActionIndex: actionIndex, ActionTag: actionTag, Cause: executionError}
		}
	}

	service.currentState = StateCompleted
	fmt.Fprintf(service.dependencies.Output, elapsedReportTemplateConstant, int64(time.Since(startTime).Seconds()))
	return nil
}

func (service *Service) executeAction(executionContext context.Context, action plan.Action) error {
	switch {
	case action.MigrateRepositories != nil:
		return service.migrateRepositories(executionContext, *action.MigrateRepositories)
	case action.CreateTeam != nil:
		return service.createTeam(executionContext, *action.CreateTeam)
	case action.AddMembersToTeam != nil:
		return service.addMembersToTeam(executionContext, *action.AddMembersToTeam)
	case action.AssignRepositoriesToTeam != nil:
		return service.assignRepositoriesToTeam(executionContext, *action.AssignRepositoriesToTeam)
	case action.SetRepositoryDefaultBranch != nil:
		return service.setRepositoryDefaultBranch(executionContext, *action.SetRepositoryDefaultBranch)
	case action.MoveEnvironmentalVariables != nil:
		return service.moveEnvironmentalVariables(executionContext, *action.MoveEnvironmentalVariables)
	case action.CreateContext != nil:
		return service.createContext(executionContext, *action.CreateContext)
	case action.StartPipeline != nil:
		return service.startPipeline(executionContext, *action.StartPipeline)
	default:
		_, tagError := action.Tag()
		return tagError
	}
}

// migrateRepositories stages the SSH keys once, then mirrors every listed
// repository concurrently. A repository failure is contained and summarized;
// the run itself continues.
func (service *Service) migrateRepositories(executionContext context.Context, action plan.MigrateRepositoriesAction) error {
	stagedKeys, stagingError := service.dependencies.Credentials.StageKeys()
	if stagingError != nil {
		return stagingError
	}
	defer stagedKeys.Cleanup()

	repositoryOutcomes := make([]error, len(action.Repositories))
	var taskGroup errgroup.Group
	for repositoryIndex, repository := range action.Repositories {
		taskGroup.Go(func() error {
			if migrationError := service.migrateOneRepository(executionContext, repository, stagedKeys); migrationError != nil {
				repositoryOutcomes[repositoryIndex] = fmt.Errorf(repositoryFailureTemplateConstant, repository.FullName, migrationError)
				service.dependencies.Logger.Error(repositoryFailedMessageConstant,
					zap.String("repository", repository.FullName),
					zap.Error(migrationError),
				)
				return nil
			}
			service.dependencies.Logger.Info(repositoryMigratedMessageConstant,
				zap.String("repository", repository.FullName),
			)
			return nil
		})
	}
	if waitError := taskGroup.Wait(); waitError != nil {
		return waitError
	}

	containedFailures := make([]error, 0, len(repositoryOutcomes))
	for _, outcome := range repositoryOutcomes {
		if outcome != nil {
			containedFailures = append(containedFailures, outcome)
		}
	}
	if len(containedFailures) > 0 {
		fmt.Fprintf(service.dependencies.Output, repositoryFailuresSummaryTemplate,
			len(containedFailures), len(action.Repositories), errors.Join(containedFailures...))
	}
	return nil
}

func (service *Service) migrateOneRepository(executionContext context.Context, repository plan.Repository, stagedKeys StagedKeys) error {
	parentDirectory, temporaryError := os.MkdirTemp("", mirrorDirectoryPatternConstant)
	if temporaryError != nil {
		return temporaryError
	}
	mirrorDirectory := filepath.Join(parentDirectory, mirrorSubdirectoryNameConstant)

	keepDirectory := true
	defer func() {
		if !keepDirectory {
			_ = os.RemoveAll(parentDirectory)
			return
		}
		service.dependencies.Logger.Warn(mirrorDirectoryKeptMessageConstant,
			zap.String("repository", repository.FullName),
			zap.String("directory", parentDirectory),
		)
	}()

	if cloneError := service.dependencies.Mirror.CloneMirror(executionContext, repository.CloneLink, mirrorDirectory, stagedKeys.PullKeyPath()); cloneError != nil {
		return cloneError
	}

	createdRepository, creationError := service.dependencies.Destination.CreateRepository(executionContext, repository.Name)
	if creationError != nil {
		return creationError
	}

	destinationURL := fmt.Sprintf(destinationCloneURLTemplateConstant, createdRepository.FullName)
	if pushError := service.dependencies.Mirror.PushMirror(executionContext, mirrorDirectory, destinationURL, stagedKeys.PushKeyPath()); pushError != nil {
		return pushError
	}

	keepDirectory = false
	return nil
}

func (service *Service) createTeam(executionContext context.Context, action plan.CreateTeamAction) error {
	_, creationError := service.dependencies.Destination.CreateTeam(executionContext, action.Name, action.Repositories)
	return creationError
}

func (service *Service) addMembersToTeam(executionContext context.Context, action plan.AddMembersToTeamAction) error {
	for _, memberName := range action.Members {
		if membershipError := service.dependencies.Destination.UpdateTeamMembership(executionContext, action.TeamSlug, memberName); membershipError != nil {
			return membershipError
		}
	}
	return nil
}

func (service *Service) assignRepositoriesToTeam(executionContext context.Context, action plan.AssignRepositoriesToTeamAction) error {
	for _, repositoryName := range action.Repositories {
		qualifiedName := service.qualifyRepositoryName(repositoryName)
		if assignmentError := service.dependencies.Destination.AssignRepositoryToTeam(executionContext, action.TeamSlug, action.Permission, qualifiedName); assignmentError != nil {
			return assignmentError
		}
	}
	return nil
}

func (service *Service) setRepositoryDefaultBranch(executionContext context.Context, action plan.SetRepositoryDefaultBranchAction) error {
	return service.dependencies.Destination.SetRepositoryDefaultBranch(executionContext, service.qualifyRepositoryName(action.RepositoryName), action.Branch)
}

func (service *Service) moveEnvironmentalVariables(executionContext context.Context, action plan.MoveEnvironmentalVariablesAction) error {
	return service.dependencies.CI.ExportEnvironmentVariables(executionContext, action.FromRepositoryName, action.ToRepositoryName, action.EnvironmentVariableNames)
}

func (service *Service) createContext(executionContext context.Context, action plan.CreateContextAction) error {
	createdContext, creationError := service.dependencies.CI.CreateContext(executionContext, circleci.VCSProviderGitHub, action.Name)
	if creationError != nil {
		return creationError
	}
	for _, variable := range action.Variables {
		if variableError := service.dependencies.CI.AddContextVariable(executionContext, createdContext.ID, variable); variableError != nil {
			return variableError
		}
	}
	return nil
}

func (service *Service) startPipeline(executionContext context.Context, action plan.StartPipelineAction) error {
	return service.dependencies.CI.FollowProject(executionContext, circleci.VCSProviderGitHub, service.qualifyRepositoryName(action.RepositoryName), action.Branch)
}

// qualifyRepositoryName prefixes bare repository names with the destination
// organization. Names that already carry an owner are passed through.
func (service *Service) qualifyRepositoryName(repositoryName string) string {
	if strings.Contains(repositoryName, fullNameSeparatorConstant) {
		return repositoryName
	}
	return service.dependencies.OrganizationName + fullNameSeparatorConstant + repositoryName
}
