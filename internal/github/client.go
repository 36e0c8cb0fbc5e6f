package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/arkus7/migrate-bb-to-gh/internal/httpapi"
	"github.com/arkus7/migrate-bb-to-gh/internal/plan"
)

const (
	defaultBaseURLConstant                 = "https://api.github.com"
	userAgentHeaderNameConstant            = "User-Agent"
	userAgentHeaderValueConstant           = "migrate-bb-to-gh"
	organizationTeamsTemplateConstant      = "%s/orgs/%s/teams"
	teamMembershipTemplateConstant         = "%s/orgs/%s/teams/%s/memberships/%s"
	teamRepositoryTemplateConstant         = "%s/orgs/%s/teams/%s/repos/%s"
	organizationRepositoriesConstant       = "%s/orgs/%s/repos"
	organizationRepositoriesPageTemplate   = "%s/orgs/%s/repos?per_page=%d&page=%d"
	repositoryEndpointTemplateConstant     = "%s/repos/%s"
	organizationRepositoryTemplateConstant = "%s/repos/%s/%s"
	repositoryBranchesTemplateConstant     = "%s/repos/%s/branches?per_page=%d&page=%d"
	repositoryContentsTemplateConstant     = "%s/repos/%s/contents/%s"
	listPageSizeConstant                   = 100
	closedTeamPrivacyConstant              = "closed"
	secretTeamPrivacyConstant              = "secret"
	memberRoleConstant                     = "member"
)

// Configuration carries the credentials and organization identity for the GitHub client.
type Configuration struct {
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	OrganizationName string `mapstructure:"organization_name"`
}

// Team describes one organization team.
type Team struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Privacy string `json:"privacy"`
}

// Repository describes one organization repository.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
}

// Branch names one repository branch.
type Branch struct {
	Name string `json:"name"`
}

// FileContents carries one file fetched through the contents endpoint.
type FileContents struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Client is the GitHub destination-host collaborator.
type Client struct {
	configuration Configuration
	restClient    *httpapi.Client
	baseURL       string
}

// NewClient constructs a GitHub client using basic authentication.
func NewClient(configuration Configuration) *Client {
	restClient := httpapi.NewClient(httpapi.ClientConfiguration{
		BasicAuth:      &httpapi.BasicAuth{Username: configuration.Username, Password: configuration.Password},
		DefaultHeaders: map[string]string{userAgentHeaderNameConstant: userAgentHeaderValueConstant},
	})

	return &Client{
		configuration: configuration,
		restClient:    restClient,
		baseURL:       defaultBaseURLConstant,
	}
}

// SetBaseURL overrides the API endpoint, primarily for tests.
func (client *Client) SetBaseURL(baseURL string) {
	client.baseURL = baseURL
}

// GetTeams lists the organization's teams, excluding secret teams.
func (client *Client) GetTeams(executionContext context.Context) ([]Team, error) {
	requestURL := fmt.Sprintf(organizationTeamsTemplateConstant, client.baseURL, client.configuration.OrganizationName)

	var teams []Team
	if requestError := client.restClient.Get(executionContext, requestURL, &teams); requestError != nil {
		return nil, requestError
	}

	visibleTeams := make([]Team, 0, len(teams))
	for _, candidateTeam := range teams {
		if candidateTeam.Privacy == secretTeamPrivacyConstant {
			continue
		}
		visibleTeams = append(visibleTeams, candidateTeam)
	}

	return visibleTeams, nil
}

// GetRepositories lists every repository of the organization across all pages.
func (client *Client) GetRepositories(executionContext context.Context) ([]Repository, error) {
	collectedRepositories := []Repository{}
	for pageNumber := 1; ; pageNumber++ {
		requestURL := fmt.Sprintf(organizationRepositoriesPageTemplate, client.baseURL, client.configuration.OrganizationName, listPageSizeConstant, pageNumber)

		var pageRepositories []Repository
		if requestError := client.restClient.Get(executionContext, requestURL, &pageRepositories); requestError != nil {
			return nil, requestError
		}
		if len(pageRepositories) == 0 {
			return collectedRepositories, nil
		}
		collectedRepositories = append(collectedRepositories, pageRepositories...)
	}
}

type createTeamRequest struct {
	Name            string   `json:"name"`
	Privacy         string   `json:"privacy"`
	RepositoryNames []string `json:"repo_names"`
}

// CreateTeam creates a closed team seeded with the given repositories.
func (client *Client) CreateTeam(executionContext context.Context, teamName string, repositoryNames []string) (*Team, error) {
	requestURL := fmt.Sprintf(organizationTeamsTemplateConstant, client.baseURL, client.configuration.OrganizationName)
	requestBody := createTeamRequest{
		Name:            teamName,
		Privacy:         closedTeamPrivacyConstant,
		RepositoryNames: repositoryNames,
	}

	var createdTeam Team
	if requestError := client.restClient.Post(executionContext, requestURL, requestBody, &createdTeam); requestError != nil {
		return nil, requestError
	}

	return &createdTeam, nil
}

type teamMembershipRequest struct {
	Role string `json:"role"`
}

// UpdateTeamMembership invites a user into a team with the member role.
func (client *Client) UpdateTeamMembership(executionContext context.Context, teamSlug string, userName string) error {
	requestURL := fmt.Sprintf(teamMembershipTemplateConstant, client.baseURL, client.configuration.OrganizationName, teamSlug, userName)
	requestBody := teamMembershipRequest{Role: memberRoleConstant}
	return client.restClient.Put(executionContext, requestURL, requestBody, nil)
}

type teamRepositoryRequest struct {
	Permission string `json:"permission"`
}

// AssignRepositoryToTeam grants a team the given permission over a repository.
func (client *Client) AssignRepositoryToTeam(executionContext context.Context, teamSlug string, permission plan.TeamRepositoryPermission, fullRepositoryName string) error {
	requestURL := fmt.Sprintf(teamRepositoryTemplateConstant, client.baseURL, client.configuration.OrganizationName, teamSlug, fullRepositoryName)
	requestBody := teamRepositoryRequest{Permission: string(permission)}
	return client.restClient.Put(executionContext, requestURL, requestBody, nil)
}

type createRepositoryRequest struct {
	Name    string `json:"name"`
	Private bool   `json:"private"`
}

// CreateRepository creates a private repository inside the organization.
// When a repository with the same name already exists, the existing
// repository is fetched and returned instead.
func (client *Client) CreateRepository(executionContext context.Context, repositoryName string) (*Repository, error) {
	requestURL := fmt.Sprintf(organizationRepositoriesConstant, client.baseURL, client.configuration.OrganizationName)
	requestBody := createRepositoryRequest{Name: repositoryName, Private: true}

	var createdRepository Repository
	creationError := client.restClient.Post(executionContext, requestURL, requestBody, &createdRepository)
	if creationError == nil {
		return &createdRepository, nil
	}
	if !httpapi.IsStatus(creationError, http.StatusUnprocessableEntity) {
		return nil, creationError
	}

	return client.getOrganizationRepository(executionContext, repositoryName)
}

func (client *Client) getOrganizationRepository(executionContext context.Context, repositoryName string) (*Repository, error) {
	requestURL := fmt.Sprintf(organizationRepositoryTemplateConstant, client.baseURL, client.configuration.OrganizationName, repositoryName)

	var repository Repository
	if requestError := client.restClient.Get(executionContext, requestURL, &repository); requestError != nil {
		return nil, requestError
	}

	return &repository, nil
}

type defaultBranchRequest struct {
	DefaultBranch string `json:"default_branch"`
}

// SetRepositoryDefaultBranch updates a repository's default branch.
func (client *Client) SetRepositoryDefaultBranch(executionContext context.Context, fullRepositoryName string, branchName string) error {
	requestURL := fmt.Sprintf(repositoryEndpointTemplateConstant, client.baseURL, fullRepositoryName)
	requestBody := defaultBranchRequest{DefaultBranch: branchName}
	return client.restClient.Patch(executionContext, requestURL, requestBody, nil)
}

// GetRepositoryBranches lists every branch of a repository across all pages.
func (client *Client) GetRepositoryBranches(executionContext context.Context, fullRepositoryName string) ([]Branch, error) {
	collectedBranches := []Branch{}
	for pageNumber := 1; ; pageNumber++ {
		requestURL := fmt.Sprintf(repositoryBranchesTemplateConstant, client.baseURL, fullRepositoryName, listPageSizeConstant, pageNumber)

		var pageBranches []Branch
		if requestError := client.restClient.Get(executionContext, requestURL, &pageBranches); requestError != nil {
			return nil, requestError
		}
		if len(pageBranches) == 0 {
			return collectedBranches, nil
		}
		collectedBranches = append(collectedBranches, pageBranches...)
	}
}

// GetFileContents fetches one file from a repository, returning nil when the
// file does not exist.
func (client *Client) GetFileContents(executionContext context.Context, fullRepositoryName string, filePath string) (*FileContents, error) {
	trimmedPath := strings.TrimPrefix(filePath, "/")
	requestURL := fmt.Sprintf(repositoryContentsTemplateConstant, client.baseURL, fullRepositoryName, trimmedPath)

	var contents FileContents
	requestError := client.restClient.Get(executionContext, requestURL, &contents)
	if requestError != nil {
		if httpapi.IsStatus(requestError, http.StatusNotFound) {
			return nil, nil
		}
		return nil, requestError
	}

	return &contents, nil
}
