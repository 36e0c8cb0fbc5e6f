package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/arkus7/migrate-bb-to-gh/internal/httpapi"
)

const (
	defaultBaseURLConstant                = "https://api.bitbucket.org/2.0"
	projectsEndpointTemplateConstant      = "%s/workspaces/%s/projects"
	projectRepositoriesTemplateConstant   = `%s/repositories/%s?q=project.key="%s"&pagelen=%d`
	repositoryBranchesTemplateConstant    = "%s/repositories/%s/refs/branches?pagelen=%d"
	repositoryEndpointTemplateConstant    = "%s/repositories/%s"
	defaultPageLengthConstant             = 100
	sshCloneLinkNameConstant              = "ssh"
	repositoryLookupErrorTemplateConstant = "repository %s was not found in the Bitbucket workspace: %w"
	missingSSHCloneLinkTemplateConstant   = "missing SSH clone url for %s"
)

// Configuration carries the credentials and workspace identity for the Bitbucket client.
type Configuration struct {
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	WorkspaceName string `mapstructure:"workspace_name"`
}

// Project identifies one Bitbucket project within the workspace.
type Project struct {
	UUID string `json:"uuid"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// String renders the project name with its key for operator-facing listings.
func (project Project) String() string {
	return fmt.Sprintf("%s (Key: %s)", project.Name, project.Key)
}

// Branch names one repository branch.
type Branch struct {
	Name string `json:"name"`
}

// CloneLink pairs a transport name with its clone URL.
type CloneLink struct {
	Name string `json:"name"`
	HRef string `json:"href"`
}

// RepositoryLinks groups the clone links advertised for a repository.
type RepositoryLinks struct {
	Clone []CloneLink `json:"clone"`
}

// Repository captures the source repository metadata needed for planning.
type Repository struct {
	Links      RepositoryLinks `json:"links"`
	FullName   string          `json:"full_name"`
	Name       string          `json:"name"`
	MainBranch Branch          `json:"mainbranch"`
}

// SSHCloneURL returns the repository's SSH clone link when one is advertised.
func (repository Repository) SSHCloneURL() (string, error) {
	for _, cloneLink := range repository.Links.Clone {
		if cloneLink.Name == sshCloneLinkNameConstant {
			return cloneLink.HRef, nil
		}
	}
	return "", fmt.Errorf(missingSSHCloneLinkTemplateConstant, repository.FullName)
}

type pageResponse[Item any] struct {
	Values []Item  `json:"values"`
	Next   *string `json:"next"`
}

// Client is the Bitbucket source-host collaborator.
type Client struct {
	configuration Configuration
	restClient    *httpapi.Client
	baseURL       string
}

// NewClient constructs a Bitbucket client using basic authentication.
func NewClient(configuration Configuration) *Client {
	restClient := httpapi.NewClient(httpapi.ClientConfiguration{
		BasicAuth: &httpapi.BasicAuth{Username: configuration.Username, Password: configuration.Password},
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

// GetProjects lists every project in the configured workspace across all pages.
func (client *Client) GetProjects(executionContext context.Context) ([]Project, error) {
	initialURL := fmt.Sprintf(projectsEndpointTemplateConstant, client.baseURL, client.configuration.WorkspaceName)
	return collectAllPages[Project](executionContext, client, initialURL)
}

// GetProjectRepositories lists the repositories belonging to a project key.
func (client *Client) GetProjectRepositories(executionContext context.Context, projectKey string) ([]Repository, error) {
	requestURL := fmt.Sprintf(projectRepositoriesTemplateConstant, client.baseURL, client.configuration.WorkspaceName, url.QueryEscape(projectKey), defaultPageLengthConstant)

	var response pageResponse[Repository]
	if requestError := client.restClient.Get(executionContext, requestURL, &response); requestError != nil {
		return nil, requestError
	}

	return response.Values, nil
}

// GetRepositoryBranches lists every branch of a repository across all pages.
func (client *Client) GetRepositoryBranches(executionContext context.Context, fullRepositoryName string) ([]Branch, error) {
	initialURL := fmt.Sprintf(repositoryBranchesTemplateConstant, client.baseURL, fullRepositoryName, defaultPageLengthConstant)
	return collectAllPages[Branch](executionContext, client, initialURL)
}

// GetRepository fetches one repository's metadata, returning nil when the repository does not exist.
func (client *Client) GetRepository(executionContext context.Context, fullRepositoryName string) (*Repository, error) {
	requestURL := fmt.Sprintf(repositoryEndpointTemplateConstant, client.baseURL, fullRepositoryName)

	var repository Repository
	requestError := client.restClient.Get(executionContext, requestURL, &repository)
	if requestError != nil {
		if httpapi.IsStatus(requestError, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf(repositoryLookupErrorTemplateConstant, fullRepositoryName, requestError)
	}

	return &repository, nil
}

func collectAllPages[Item any](executionContext context.Context, client *Client, initialURL string) ([]Item, error) {
	collectedItems := []Item{}
	requestURL := initialURL
	for {
		var response pageResponse[Item]
		if requestError := client.restClient.Get(executionContext, requestURL, &response); requestError != nil {
			return nil, requestError
		}
		collectedItems = append(collectedItems, response.Values...)

		if response.Next == nil || len(*response.Next) == 0 {
			return collectedItems, nil
		}
		requestURL = *response.Next
	}
}
