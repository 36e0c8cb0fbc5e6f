package circleci_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arkus7/migrate-bb-to-gh/internal/circleci"
	"github.com/arkus7/migrate-bb-to-gh/internal/plan"
)

const (
	testTokenConstant              = "test-token"
	testBitbucketOrgIDConstant     = "bb-org-id"
	testGitHubOrgIDConstant        = "gh-org-id"
	testSourceRepositoryConstant   = "acme/billing-service"
	testTargetRepositoryConstant   = "acme-gh/billing-service"
	testExportAttemptLimitConstant = 5
	testContextNameConstant        = "deploy-production"
	testPipelineBranchConstant     = "develop"
	testVariableNameConstant       = "API_TOKEN"
	testVariableValueConstant      = "secret-value"
)

type exportServerState struct {
	mutex             sync.Mutex
	exportRequests    int
	exportedVariables int
	variablesPerPoll  int
}

func newExportServer(testInstance *testing.T, state *exportServerState) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		state.mutex.Lock()
		defer state.mutex.Unlock()

		require.Equal(testInstance, testTokenConstant, request.Header.Get("Circle-Token"))

		switch {
		case request.Method == http.MethodPost:
			state.exportRequests++
			state.exportedVariables += state.variablesPerPoll
			responseWriter.WriteHeader(http.StatusOK)
		default:
			variableItems := make([]map[string]string, 0, state.exportedVariables)
			for variableIndex := 0; variableIndex < state.exportedVariables; variableIndex++ {
				variableItems = append(variableItems, map[string]string{"name": testVariableNameConstant})
			}
			require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(map[string]any{"items": variableItems}))
		}
	}))
}

func newClientForServer(testInstance *testing.T, serverURL string) *circleci.Client {
	client := circleci.NewClient(
		circleci.Configuration{
			Token:                   testTokenConstant,
			BitbucketOrganizationID: testBitbucketOrgIDConstant,
			GitHubOrganizationID:    testGitHubOrgIDConstant,
		},
		zaptest.NewLogger(testInstance),
		circleci.ClientOptions{ExportRetryDelay: time.Nanosecond},
	)
	client.SetBaseURL(serverURL)
	return client
}

func TestExportEnvironmentVariablesStopsOnceAllArrive(testInstance *testing.T) {
	state := &exportServerState{variablesPerPoll: 2}
	server := newExportServer(testInstance, state)
	defer server.Close()

	client := newClientForServer(testInstance, server.URL)

	exportError := client.ExportEnvironmentVariables(context.Background(), testSourceRepositoryConstant, testTargetRepositoryConstant, []string{"A", "B"})
	require.NoError(testInstance, exportError)
	require.Equal(testInstance, 1, state.exportRequests)
}

func TestExportEnvironmentVariablesRetriesExactlyFiveTimesThenSucceeds(testInstance *testing.T) {
	state := &exportServerState{variablesPerPoll: 0}
	server := newExportServer(testInstance, state)
	defer server.Close()

	client := newClientForServer(testInstance, server.URL)

	exportError := client.ExportEnvironmentVariables(context.Background(), testSourceRepositoryConstant, testTargetRepositoryConstant, []string{"A", "B", "C"})
	require.NoError(testInstance, exportError)
	require.Equal(testInstance, testExportAttemptLimitConstant, state.exportRequests)
}

func TestExportEnvironmentVariablesMakesNoRequestsForEmptyList(testInstance *testing.T) {
	state := &exportServerState{variablesPerPoll: 0}
	server := newExportServer(testInstance, state)
	defer server.Close()

	client := newClientForServer(testInstance, server.URL)

	exportError := client.ExportEnvironmentVariables(context.Background(), testSourceRepositoryConstant, testTargetRepositoryConstant, nil)
	require.NoError(testInstance, exportError)
	require.Equal(testInstance, 0, state.exportRequests)
}

func TestFollowProjectSendsBranchInRequestBody(testInstance *testing.T) {
	var capturedPath string
	var capturedBody struct {
		Branch string `json:"branch"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, http.MethodPost, request.Method)
		capturedPath = request.URL.Path
		require.NoError(testInstance, json.NewDecoder(request.Body).Decode(&capturedBody))
		require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(map[string]bool{"following": true}))
	}))
	defer server.Close()

	client := newClientForServer(testInstance, server.URL)

	followError := client.FollowProject(context.Background(), circleci.VCSProviderGitHub, testTargetRepositoryConstant, testPipelineBranchConstant)
	require.NoError(testInstance, followError)
	require.Equal(testInstance, "/v1.1/project/gh/"+testTargetRepositoryConstant+"/follow", capturedPath)
	require.Equal(testInstance, testPipelineBranchConstant, capturedBody.Branch)
}

func TestGetContextsFollowsPageTokens(testInstance *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		requestCount++
		require.Equal(testInstance, testGitHubOrgIDConstant, request.URL.Query().Get("owner-id"))

		switch request.URL.Query().Get("page-token") {
		case "":
			nextToken := "token-2"
			require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(map[string]any{
				"items":           []map[string]string{{"id": "ctx-1", "name": "first"}},
				"next_page_token": nextToken,
			}))
		default:
			require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(map[string]any{
				"items": []map[string]string{{"id": "ctx-2", "name": "second"}},
			}))
		}
	}))
	defer server.Close()

	client := newClientForServer(testInstance, server.URL)

	contexts, listError := client.GetContexts(context.Background(), circleci.VCSProviderGitHub)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, 2, requestCount)
	require.Equal(testInstance, []circleci.Context{{ID: "ctx-1", Name: "first"}, {ID: "ctx-2", Name: "second"}}, contexts)
}

func TestGetEnvironmentVariablesTreatsUnknownProjectAsEmpty(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newClientForServer(testInstance, server.URL)

	variables, listError := client.GetEnvironmentVariables(context.Background(), circleci.VCSProviderGitHub, testTargetRepositoryConstant)
	require.NoError(testInstance, listError)
	require.Empty(testInstance, variables)
}

func TestCreateContextAndAddVariable(testInstance *testing.T) {
	var capturedOwnerID string
	var capturedVariablePath string
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		switch request.Method {
		case http.MethodPost:
			var requestBody struct {
				Name  string `json:"name"`
				Owner struct {
					ID   string `json:"id"`
					Type string `json:"type"`
				} `json:"owner"`
			}
			require.NoError(testInstance, json.NewDecoder(request.Body).Decode(&requestBody))
			capturedOwnerID = requestBody.Owner.ID
			require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(map[string]string{"id": "ctx-9", "name": requestBody.Name}))
		case http.MethodPut:
			capturedVariablePath = request.URL.Path
			responseWriter.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client := newClientForServer(testInstance, server.URL)

	createdContext, creationError := client.CreateContext(context.Background(), circleci.VCSProviderGitHub, testContextNameConstant)
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, testGitHubOrgIDConstant, capturedOwnerID)
	require.Equal(testInstance, testContextNameConstant, createdContext.Name)

	addError := client.AddContextVariable(context.Background(), createdContext.ID, plan.EnvVar{Name: testVariableNameConstant, Value: testVariableValueConstant})
	require.NoError(testInstance, addError)
	require.Equal(testInstance, "/v2/context/ctx-9/environment-variable/"+testVariableNameConstant, capturedVariablePath)
}
