package bitbucket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkus7/migrate-bb-to-gh/internal/bitbucket"
)

const (
	testUserNameConstant      = "migration-bot"
	testPasswordConstant      = "app-password"
	testWorkspaceNameConstant = "acme"
	testProjectKeyConstant    = "BILL"
	testRepositoryConstant    = "acme/billing-service"
	testSSHCloneLinkConstant  = "git@bitbucket.org:acme/billing-service.git"
)

func newClientForServer(serverURL string) *bitbucket.Client {
	client := bitbucket.NewClient(bitbucket.Configuration{
		Username:      testUserNameConstant,
		Password:      testPasswordConstant,
		WorkspaceName: testWorkspaceNameConstant,
	})
	client.SetBaseURL(serverURL)
	return client
}

func TestGetProjectsFollowsPagination(testInstance *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		userName, password, hasBasicAuth := request.BasicAuth()
		require.True(testInstance, hasBasicAuth)
		require.Equal(testInstance, testUserNameConstant, userName)
		require.Equal(testInstance, testPasswordConstant, password)

		switch request.URL.Query().Get("page") {
		case "":
			nextPageURL := server.URL + request.URL.Path + "?page=2"
			require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(map[string]any{
				"values": []map[string]string{{"uuid": "u-1", "key": testProjectKeyConstant, "name": "Billing"}},
				"next":   nextPageURL,
			}))
		default:
			require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(map[string]any{
				"values": []map[string]string{{"uuid": "u-2", "key": "MAIL", "name": "Mail"}},
			}))
		}
	}))
	defer server.Close()

	client := newClientForServer(server.URL)

	projects, listError := client.GetProjects(context.Background())
	require.NoError(testInstance, listError)
	require.Len(testInstance, projects, 2)
	require.Equal(testInstance, testProjectKeyConstant, projects[0].Key)
	require.Equal(testInstance, "Billing (Key: BILL)", projects[0].String())
}

func TestGetProjectRepositoriesFiltersByProjectKey(testInstance *testing.T) {
	var capturedQuery string
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		capturedQuery = request.URL.Query().Get("q")
		require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(map[string]any{
			"values": []map[string]any{
				{
					"name":       "billing-service",
					"full_name":  testRepositoryConstant,
					"mainbranch": map[string]string{"name": "develop"},
					"links": map[string]any{
						"clone": []map[string]string{
							{"name": "https", "href": "https://bitbucket.org/acme/billing-service.git"},
							{"name": "ssh", "href": testSSHCloneLinkConstant},
						},
					},
				},
			},
		}))
	}))
	defer server.Close()

	client := newClientForServer(server.URL)

	repositories, listError := client.GetProjectRepositories(context.Background(), testProjectKeyConstant)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, `project.key="BILL"`, capturedQuery)
	require.Len(testInstance, repositories, 1)
	require.Equal(testInstance, "develop", repositories[0].MainBranch.Name)

	cloneURL, cloneLinkError := repositories[0].SSHCloneURL()
	require.NoError(testInstance, cloneLinkError)
	require.Equal(testInstance, testSSHCloneLinkConstant, cloneURL)
}

func TestGetRepositoryReturnsNilWhenMissing(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newClientForServer(server.URL)

	repository, lookupError := client.GetRepository(context.Background(), testRepositoryConstant)
	require.NoError(testInstance, lookupError)
	require.Nil(testInstance, repository)
}

func TestSSHCloneURLReportsMissingLink(testInstance *testing.T) {
	repository := bitbucket.Repository{FullName: testRepositoryConstant}

	_, cloneLinkError := repository.SSHCloneURL()
	require.Error(testInstance, cloneLinkError)
	require.Contains(testInstance, cloneLinkError.Error(), testRepositoryConstant)
}
