package circleci

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/arkus7/migrate-bb-to-gh/internal/httpapi"
	"github.com/arkus7/migrate-bb-to-gh/internal/plan"
)

const (
	defaultBaseURLConstant                = "https://circleci.com/api"
	tokenHeaderNameConstant               = "Circle-Token"
	contextsEndpointTemplateConstant      = "%s/v2/context?owner-id=%s"
	contextsPageTokenTemplateConstant     = "%s/v2/context?owner-id=%s&page-token=%s"
	contextVariablesTemplateConstant      = "%s/v2/context/%s/environment-variable"
	createContextEndpointTemplateConstant = "%s/v2/context"
	addContextVariableTemplateConstant    = "%s/v2/context/%s/environment-variable/%s"
	projectVariablesTemplateConstant      = "%s/v2/project/%s/%s/envvar"
	exportEnvironmentTemplateConstant     = "%s/v1.1/project/%s/%s/info/export-environment"
	followProjectTemplateConstant         = "%s/v1.1/project/%s/%s/follow"
	organizationOwnerTypeConstant         = "organization"
	githubRepositoryURLTemplateConstant   = "https://github.com/%s"
	defaultExportAttemptLimitConstant     = 5
	defaultExportRetryDelayConstant       = 2 * time.Second
	exportAttemptMessageConstant          = "Requested environment variable export"
	exportIncompleteMessageConstant       = "Exported variable count is below the requested count"
	exportExhaustedMessageConstant        = "Export attempts exhausted; continuing with the variables that arrived"
)

// VCSProvider names the version control system a CircleCI project belongs to.
type VCSProvider string

// Supported version control systems.
const (
	VCSProviderBitbucket VCSProvider = "bitbucket"
	VCSProviderGitHub    VCSProvider = "gh"
)

// Configuration carries the token and organization identities for the CircleCI client.
type Configuration struct {
	Token                   string `mapstructure:"token"`
	BitbucketOrganizationID string `mapstructure:"bitbucket_org_id"`
	GitHubOrganizationID    string `mapstructure:"github_org_id"`
}

// OrganizationID resolves the CircleCI organization identifier for a provider.
func (configuration Configuration) OrganizationID(provider VCSProvider) string {
	if provider == VCSProviderBitbucket {
		return configuration.BitbucketOrganizationID
	}
	return configuration.GitHubOrganizationID
}

// Context describes one CircleCI context.
type Context struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ContextVariable names one variable stored inside a context.
type ContextVariable struct {
	Variable  string `json:"variable"`
	ContextID string `json:"context_id"`
}

// ProjectVariable names one project-level environment variable.
type ProjectVariable struct {
	Name string `json:"name"`
}

type pagedResponse[Item any] struct {
	Items         []Item  `json:"items"`
	NextPageToken *string `json:"next_page_token"`
}

// ClientOptions tune retry behavior for environment variable export.
type ClientOptions struct {
	ExportAttemptLimit int
	ExportRetryDelay   time.Duration
}

// Client is the CircleCI collaborator.
type Client struct {
	configuration      Configuration
	restClient         *httpapi.Client
	baseURL            string
	logger             *zap.Logger
	exportAttemptLimit int
	exportRetryDelay   time.Duration
}

// NewClient constructs a CircleCI client authenticated through the token header.
func NewClient(configuration Configuration, logger *zap.Logger, options ClientOptions) *Client {
	restClient := httpapi.NewClient(httpapi.ClientConfiguration{
		DefaultHeaders: map[string]string{tokenHeaderNameConstant: configuration.Token},
	})

	exportAttemptLimit := options.ExportAttemptLimit
	if exportAttemptLimit <= 0 {
		exportAttemptLimit = defaultExportAttemptLimitConstant
	}
	exportRetryDelay := options.ExportRetryDelay
	if exportRetryDelay <= 0 {
		exportRetryDelay = defaultExportRetryDelayConstant
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		configuration:      configuration,
		restClient:         restClient,
		baseURL:            defaultBaseURLConstant,
		logger:             logger,
		exportAttemptLimit: exportAttemptLimit,
		exportRetryDelay:   exportRetryDelay,
	}
}

// SetBaseURL overrides the API endpoint, primarily for tests.
func (client *Client) SetBaseURL(baseURL string) {
	client.baseURL = baseURL
}

// GetContexts lists every context owned by the organization on the given provider.
func (client *Client) GetContexts(executionContext context.Context, provider VCSProvider) ([]Context, error) {
	organizationID := client.configuration.OrganizationID(provider)
	requestURL := fmt.Sprintf(contextsEndpointTemplateConstant, client.baseURL, organizationID)

	collectedContexts := []Context{}
	for {
		var response pagedResponse[Context]
		if requestError := client.restClient.Get(executionContext, requestURL, &response); requestError != nil {
			return nil, requestError
		}
		collectedContexts = append(collectedContexts, response.Items...)

		if response.NextPageToken == nil || len(*response.NextPageToken) == 0 {
			return collectedContexts, nil
		}
		requestURL = fmt.Sprintf(contextsPageTokenTemplateConstant, client.baseURL, organizationID, url.QueryEscape(*response.NextPageToken))
	}
}

// GetContextVariables lists the variable names stored in a context.
func (client *Client) GetContextVariables(executionContext context.Context, contextID string) ([]ContextVariable, error) {
	requestURL := fmt.Sprintf(contextVariablesTemplateConstant, client.baseURL, contextID)

	var response pagedResponse[ContextVariable]
	if requestError := client.restClient.Get(executionContext, requestURL, &response); requestError != nil {
		return nil, requestError
	}

	return response.Items, nil
}

type contextOwner struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type createContextRequest struct {
	Name  string       `json:"name"`
	Owner contextOwner `json:"owner"`
}

// CreateContext creates an organization-owned context on the given provider.
func (client *Client) CreateContext(executionContext context.Context, provider VCSProvider, contextName string) (*Context, error) {
	requestURL := fmt.Sprintf(createContextEndpointTemplateConstant, client.baseURL)
	requestBody := createContextRequest{
		Name: contextName,
		Owner: contextOwner{
			ID:   client.configuration.OrganizationID(provider),
			Type: organizationOwnerTypeConstant,
		},
	}

	var createdContext Context
	if requestError := client.restClient.Post(executionContext, requestURL, requestBody, &createdContext); requestError != nil {
		return nil, requestError
	}

	return &createdContext, nil
}

type contextVariableValueRequest struct {
	Value string `json:"value"`
}

// AddContextVariable stores one variable inside a context.
func (client *Client) AddContextVariable(executionContext context.Context, contextID string, variable plan.EnvVar) error {
	requestURL := fmt.Sprintf(addContextVariableTemplateConstant, client.baseURL, contextID, url.PathEscape(variable.Name))
	requestBody := contextVariableValueRequest{Value: variable.Value}
	return client.restClient.Put(executionContext, requestURL, requestBody, nil)
}

// GetEnvironmentVariables lists the project-level variables of a repository.
// An unknown project yields an empty list.
func (client *Client) GetEnvironmentVariables(executionContext context.Context, provider VCSProvider, fullRepositoryName string) ([]ProjectVariable, error) {
	requestURL := fmt.Sprintf(projectVariablesTemplateConstant, client.baseURL, provider, fullRepositoryName)

	var response pagedResponse[ProjectVariable]
	requestError := client.restClient.Get(executionContext, requestURL, &response)
	if requestError != nil {
		if httpapi.IsStatus(requestError, http.StatusNotFound) {
			return []ProjectVariable{}, nil
		}
		return nil, requestError
	}

	return response.Items, nil
}

type exportEnvironmentRequest struct {
	Projects             []string `json:"projects"`
	EnvironmentVariables []string `json:"env-vars"`
}

// ExportEnvironmentVariables asks CircleCI to copy project variables from a
// Bitbucket-hosted project to a GitHub-hosted one. The export endpoint is
// eventually consistent, so the request is repeated until the destination
// project reports at least the requested variable count or the attempt limit
// is reached. Exhausting the attempts is not an error.
func (client *Client) ExportEnvironmentVariables(executionContext context.Context, fromRepositoryName string, toRepositoryName string, variableNames []string) error {
	if len(variableNames) == 0 {
		return nil
	}

	requestURL := fmt.Sprintf(exportEnvironmentTemplateConstant, client.baseURL, VCSProviderBitbucket, fromRepositoryName)
	requestBody := exportEnvironmentRequest{
		Projects:             []string{fmt.Sprintf(githubRepositoryURLTemplateConstant, toRepositoryName)},
		EnvironmentVariables: variableNames,
	}

	for attemptNumber := 1; attemptNumber <= client.exportAttemptLimit; attemptNumber++ {
		if requestError := client.restClient.Post(executionContext, requestURL, requestBody, nil); requestError != nil {
			return requestError
		}
		client.logger.Info(exportAttemptMessageConstant,
			zap.String("from", fromRepositoryName),
			zap.String("to", toRepositoryName),
			zap.Int("attempt", attemptNumber),
		)

		exportedVariables, listError := client.GetEnvironmentVariables(executionContext, VCSProviderGitHub, toRepositoryName)
		if listError != nil {
			return listError
		}
		if len(exportedVariables) >= len(variableNames) {
			return nil
		}

		client.logger.Warn(exportIncompleteMessageConstant,
			zap.Int("requested", len(variableNames)),
			zap.Int("exported", len(exportedVariables)),
			zap.Int("attempt", attemptNumber),
		)
		if attemptNumber < client.exportAttemptLimit {
			select {
			case <-executionContext.Done():
				return executionContext.Err()
			case <-time.After(client.exportRetryDelay):
			}
		}
	}

	client.logger.Warn(exportExhaustedMessageConstant,
		zap.String("from", fromRepositoryName),
		zap.String("to", toRepositoryName),
	)
	return nil
}

type followProjectRequest struct {
	Branch string `json:"branch"`
}

type followProjectResponse struct {
	Following bool `json:"following"`
}

// FollowProject follows a repository on the given provider, which starts the
// first pipeline for the named branch on newly migrated projects.
func (client *Client) FollowProject(executionContext context.Context, provider VCSProvider, fullRepositoryName string, branch string) error {
	requestURL := fmt.Sprintf(followProjectTemplateConstant, client.baseURL, provider, fullRepositoryName)
	requestBody := followProjectRequest{Branch: branch}

	var response followProjectResponse
	return client.restClient.Post(executionContext, requestURL, requestBody, &response)
}
