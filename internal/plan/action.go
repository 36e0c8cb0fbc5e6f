package plan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	actionTagMigrateRepositoriesConstant        = "migrate_repositories"
	actionTagCreateTeamConstant                 = "create_team"
	actionTagAddMembersToTeamConstant           = "add_members_to_team"
	actionTagAssignRepositoriesToTeamConstant   = "assign_repositories_to_team"
	actionTagSetRepositoryDefaultBranchConstant = "set_repository_default_branch"
	actionTagMoveEnvironmentalVariablesConstant = "move_environmental_variables"
	actionTagCreateContextConstant              = "create_context"
	actionTagStartPipelineConstant              = "start_pipeline"
)

const (
	describeListItemTemplateConstant                  = "  - %s"
	describeListItemSeparatorConstant                 = "\n"
	describeMigrateRepositoriesTemplateConstant       = "Migrate %d repositories:\n%s"
	describeCreateTeamTemplateConstant                = "Create team named '%s' with access to %d repositories:\n%s"
	describeAddMembersTemplateConstant                = "Add %d members to %s team:\n%s"
	describeAssignRepositoriesTemplateConstant        = "Assign %d repositories to team %s (%s):\n%s"
	describeSetDefaultBranchTemplateConstant          = "Set default branch of '%s' repository to '%s'"
	describeMoveEnvironmentalVariablesTemplate        = "Move environmental variables from '%s' project in Bitbucket to '%s' project Github\n  Envs: %s"
	describeCreateContextTemplateConstant             = "Create context named '%s' with %d variables:\n%s"
	describeCreateContextVariableItemTemplateConstant = "  %s=%s"
	describeCreateContextVariableSeparatorConstant    = ",\n"
	describeStartPipelineTemplateConstant             = "Start pipeline for %s on branch %s"
	environmentVariableNamesJoinSeparatorConstant     = ", "
	emptyActionMessageConstant                        = "action has no variant set"
	multipleVariantsMessageTemplateConstant           = "action declares multiple variants: %s"
	unknownActionTagTemplateConstant                  = "unknown action type %q"
	actionVariantTagsJoinSeparatorConstant            = ", "
)

// TeamRepositoryPermission enumerates the permission levels a team may receive on a repository.
type TeamRepositoryPermission string

// Exported permission levels mirroring the destination host's vocabulary.
const (
	PermissionPull     TeamRepositoryPermission = "pull"
	PermissionTriage   TeamRepositoryPermission = "triage"
	PermissionPush     TeamRepositoryPermission = "push"
	PermissionMaintain TeamRepositoryPermission = "maintain"
	PermissionAdmin    TeamRepositoryPermission = "admin"
)

var permissionDisplayNameMapping = map[TeamRepositoryPermission]string{
	PermissionPull:     "read",
	PermissionTriage:   "triage",
	PermissionPush:     "write",
	PermissionMaintain: "maintain",
	PermissionAdmin:    "admin",
}

// DisplayName renders the operator-facing label for the permission level.
func (permission TeamRepositoryPermission) DisplayName() string {
	displayName, known := permissionDisplayNameMapping[permission]
	if !known {
		return string(permission)
	}
	return displayName
}

// Repository identifies one source repository scheduled for mirroring.
type Repository struct {
	CloneLink string `json:"clone_link"`
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
}

// EnvVar pairs an environment variable name with its value.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MigrateRepositoriesAction mirrors the listed repositories to the destination host.
type MigrateRepositoriesAction struct {
	Repositories []Repository `json:"repositories"`
}

// CreateTeamAction creates a destination-host team granted access to the listed repositories.
type CreateTeamAction struct {
	Name         string   `json:"name"`
	Repositories []string `json:"repositories"`
}

// AddMembersToTeamAction adds each member to the named team.
type AddMembersToTeamAction struct {
	TeamName string   `json:"team_name"`
	TeamSlug string   `json:"team_slug"`
	Members  []string `json:"members"`
}

// AssignRepositoriesToTeamAction grants the team a permission level on each repository.
type AssignRepositoriesToTeamAction struct {
	TeamName     string                   `json:"team_name"`
	TeamSlug     string                   `json:"team_slug"`
	Permission   TeamRepositoryPermission `json:"permission"`
	Repositories []string                 `json:"repositories"`
}

// SetRepositoryDefaultBranchAction changes the destination repository's default branch.
type SetRepositoryDefaultBranchAction struct {
	RepositoryName string `json:"repository_name"`
	Branch         string `json:"branch"`
}

// MoveEnvironmentalVariablesAction exports CI environment variables between projects.
type MoveEnvironmentalVariablesAction struct {
	FromRepositoryName       string   `json:"from_repository_name"`
	ToRepositoryName         string   `json:"to_repository_name"`
	EnvironmentVariableNames []string `json:"env_vars"`
}

// CreateContextAction creates a CI execution context and populates its variables.
type CreateContextAction struct {
	Name      string   `json:"name"`
	Variables []EnvVar `json:"variables"`
}

// StartPipelineAction triggers a first CI run for a repository branch.
type StartPipelineAction struct {
	RepositoryName string `json:"repository_name"`
	Branch         string `json:"branch"`
}

// Action is the closed tagged union of migration steps. Exactly one variant
// pointer is non-nil; the JSON form is an object with a single snake_case key
// naming the variant.
type Action struct {
	MigrateRepositories        *MigrateRepositoriesAction
	CreateTeam                 *CreateTeamAction
	AddMembersToTeam           *AddMembersToTeamAction
	AssignRepositoriesToTeam   *AssignRepositoriesToTeamAction
	SetRepositoryDefaultBranch *SetRepositoryDefaultBranchAction
	MoveEnvironmentalVariables *MoveEnvironmentalVariablesAction
	CreateContext              *CreateContextAction
	StartPipeline              *StartPipelineAction
}

// Tag reports the snake_case variant tag of the populated variant.
func (action Action) Tag() (string, error) {
	populatedTags := action.populatedVariantTags()
	switch len(populatedTags) {
	case 1:
		return populatedTags[0], nil
	case 0:
		return "", fmt.Errorf(emptyActionMessageConstant)
	default:
		return "", fmt.Errorf(multipleVariantsMessageTemplateConstant, strings.Join(populatedTags, actionVariantTagsJoinSeparatorConstant))
	}
}

func (action Action) populatedVariantTags() []string {
	populatedTags := make([]string, 0, 1)
	if action.MigrateRepositories != nil {
		populatedTags = append(populatedTags, actionTagMigrateRepositoriesConstant)
	}
	if action.CreateTeam != nil {
		populatedTags = append(populatedTags, actionTagCreateTeamConstant)
	}
	if action.AddMembersToTeam != nil {
		populatedTags = append(populatedTags, actionTagAddMembersToTeamConstant)
	}
	if action.AssignRepositoriesToTeam != nil {
		populatedTags = append(populatedTags, actionTagAssignRepositoriesToTeamConstant)
	}
	if action.SetRepositoryDefaultBranch != nil {
		populatedTags = append(populatedTags, actionTagSetRepositoryDefaultBranchConstant)
	}
	if action.MoveEnvironmentalVariables != nil {
		populatedTags = append(populatedTags, actionTagMoveEnvironmentalVariablesConstant)
	}
	if action.CreateContext != nil {
		populatedTags = append(populatedTags, actionTagCreateContextConstant)
	}
	if action.StartPipeline != nil {
		populatedTags = append(populatedTags, actionTagStartPipelineConstant)
	}
	return populatedTags
}

// MarshalJSON encodes the action as an externally tagged single-key object.
func (action Action) MarshalJSON() ([]byte, error) {
	variantTag, tagError := action.Tag()
	if tagError != nil {
		return nil, tagError
	}

	var variantPayload any
	switch variantTag {
	case actionTagMigrateRepositoriesConstant:
		variantPayload = action.MigrateRepositories
	case actionTagCreateTeamConstant:
		variantPayload = action.CreateTeam
	case actionTagAddMembersToTeamConstant:
		variantPayload = action.AddMembersToTeam
	case actionTagAssignRepositoriesToTeamConstant:
		variantPayload = action.AssignRepositoriesToTeam
	case actionTagSetRepositoryDefaultBranchConstant:
		variantPayload = action.SetRepositoryDefaultBranch
	case actionTagMoveEnvironmentalVariablesConstant:
		variantPayload = action.MoveEnvironmentalVariables
	case actionTagCreateContextConstant:
		variantPayload = action.CreateContext
	case actionTagStartPipelineConstant:
		variantPayload = action.StartPipeline
	}

	return json.Marshal(map[string]any{variantTag: variantPayload})
}

// UnmarshalJSON decodes an externally tagged single-key object into the matching variant.
func (action *Action) UnmarshalJSON(encodedAction []byte) error {
	var taggedObject map[string]json.RawMessage
	if decodeError := json.Unmarshal(encodedAction, &taggedObject); decodeError != nil {
		return decodeError
	}
	if len(taggedObject) == 0 {
		return fmt.Errorf(emptyActionMessageConstant)
	}
	if len(taggedObject) > 1 {
		encounteredTags := make([]string, 0, len(taggedObject))
		for variantTag := range taggedObject {
			encounteredTags = append(encounteredTags, variantTag)
		}
		sort.Strings(encounteredTags)
		return fmt.Errorf(multipleVariantsMessageTemplateConstant, strings.Join(encounteredTags, actionVariantTagsJoinSeparatorConstant))
	}

	*action = Action{}
	for variantTag, variantPayload := range taggedObject {
		switch variantTag {
		case actionTagMigrateRepositoriesConstant:
			action.MigrateRepositories = &MigrateRepositoriesAction{}
			return json.Unmarshal(variantPayload, action.MigrateRepositories)
		case actionTagCreateTeamConstant:
			action.CreateTeam = &CreateTeamAction{}
			return json.Unmarshal(variantPayload, action.CreateTeam)
		case actionTagAddMembersToTeamConstant:
			action.AddMembersToTeam = &AddMembersToTeamAction{}
			return json.Unmarshal(variantPayload, action.AddMembersToTeam)
		case actionTagAssignRepositoriesToTeamConstant:
			action.AssignRepositoriesToTeam = &AssignRepositoriesToTeamAction{}
			return json.Unmarshal(variantPayload, action.AssignRepositoriesToTeam)
		case actionTagSetRepositoryDefaultBranchConstant:
			action.SetRepositoryDefaultBranch = &SetRepositoryDefaultBranchAction{}
			return json.Unmarshal(variantPayload, action.SetRepositoryDefaultBranch)
		case actionTagMoveEnvironmentalVariablesConstant:
			action.MoveEnvironmentalVariables = &MoveEnvironmentalVariablesAction{}
			return json.Unmarshal(variantPayload, action.MoveEnvironmentalVariables)
		case actionTagCreateContextConstant:
			action.CreateContext = &CreateContextAction{}
			return json.Unmarshal(variantPayload, action.CreateContext)
		case actionTagStartPipelineConstant:
			action.StartPipeline = &StartPipelineAction{}
			return json.Unmarshal(variantPayload, action.StartPipeline)
		default:
			return fmt.Errorf(unknownActionTagTemplateConstant, variantTag)
		}
	}

	return nil
}

// Describe renders a deterministic human-readable summary of the action without performing I/O.
func (action Action) Describe() string {
	switch {
	case action.MigrateRepositories != nil:
		repositoryNames := make([]string, 0, len(action.MigrateRepositories.Repositories))
		for _, repository := range action.MigrateRepositories.Repositories {
			repositoryNames = append(repositoryNames, repository.FullName)
		}
		return fmt.Sprintf(describeMigrateRepositoriesTemplateConstant, len(repositoryNames), formatItemList(repositoryNames))
	case action.CreateTeam != nil:
		return fmt.Sprintf(describeCreateTeamTemplateConstant, action.CreateTeam.Name, len(action.CreateTeam.Repositories), formatItemList(action.CreateTeam.Repositories))
	case action.AddMembersToTeam != nil:
		return fmt.Sprintf(describeAddMembersTemplateConstant, len(action.AddMembersToTeam.Members), action.AddMembersToTeam.TeamName, formatItemList(action.AddMembersToTeam.Members))
	case action.AssignRepositoriesToTeam != nil:
		assignment := action.AssignRepositoriesToTeam
		return fmt.Sprintf(describeAssignRepositoriesTemplateConstant, len(assignment.Repositories), assignment.TeamName, assignment.Permission.DisplayName(), formatItemList(assignment.Repositories))
	case action.SetRepositoryDefaultBranch != nil:
		return fmt.Sprintf(describeSetDefaultBranchTemplateConstant, action.SetRepositoryDefaultBranch.RepositoryName, action.SetRepositoryDefaultBranch.Branch)
	case action.MoveEnvironmentalVariables != nil:
		move := action.MoveEnvironmentalVariables
		return fmt.Sprintf(describeMoveEnvironmentalVariablesTemplate, move.FromRepositoryName, move.ToRepositoryName, strings.Join(move.EnvironmentVariableNames, environmentVariableNamesJoinSeparatorConstant))
	case action.CreateContext != nil:
		variableLines := make([]string, 0, len(action.CreateContext.Variables))
		for _, variable := range action.CreateContext.Variables {
			variableLines = append(variableLines, fmt.Sprintf(describeCreateContextVariableItemTemplateConstant, variable.Name, variable.Value))
		}
		return fmt.Sprintf(describeCreateContextTemplateConstant, action.CreateContext.Name, len(action.CreateContext.Variables), strings.Join(variableLines, describeCreateContextVariableSeparatorConstant))
	case action.StartPipeline != nil:
		return fmt.Sprintf(describeStartPipelineTemplateConstant, action.StartPipeline.RepositoryName, action.StartPipeline.Branch)
	default:
		return emptyActionMessageConstant
	}
}

func formatItemList(items []string) string {
	itemLines := make([]string, 0, len(items))
	for _, item := range items {
		itemLines = append(itemLines, fmt.Sprintf(describeListItemTemplateConstant, item))
	}
	return strings.Join(itemLines, describeListItemSeparatorConstant)
}
