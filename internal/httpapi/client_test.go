package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkus7/migrate-bb-to-gh/internal/httpapi"
)

const (
	testHeaderNameConstant    = "Circle-Token"
	testHeaderValueConstant   = "test-token"
	testUserNameConstant      = "migration-bot"
	testPasswordConstant      = "app-password"
	testResponseValueConstant = "hello"
)

type testPayload struct {
	Value string `json:"value"`
}

func TestClientSendsAuthAndDefaultHeaders(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		userName, password, hasBasicAuth := request.BasicAuth()
		require.True(testInstance, hasBasicAuth)
		require.Equal(testInstance, testUserNameConstant, userName)
		require.Equal(testInstance, testPasswordConstant, password)
		require.Equal(testInstance, testHeaderValueConstant, request.Header.Get(testHeaderNameConstant))

		require.NoError(testInstance, json.NewEncoder(responseWriter).Encode(testPayload{Value: testResponseValueConstant}))
	}))
	defer server.Close()

	client := httpapi.NewClient(httpapi.ClientConfiguration{
		BasicAuth:      &httpapi.BasicAuth{Username: testUserNameConstant, Password: testPasswordConstant},
		DefaultHeaders: map[string]string{testHeaderNameConstant: testHeaderValueConstant},
	})

	var decodedPayload testPayload
	require.NoError(testInstance, client.Get(context.Background(), server.URL, &decodedPayload))
	require.Equal(testInstance, testResponseValueConstant, decodedPayload.Value)
}

func TestClientEncodesRequestBodies(testInstance *testing.T) {
	var capturedPayload testPayload
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, "application/json", request.Header.Get("Content-Type"))
		require.NoError(testInstance, json.NewDecoder(request.Body).Decode(&capturedPayload))
		responseWriter.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := httpapi.NewClient(httpapi.ClientConfiguration{})

	require.NoError(testInstance, client.Post(context.Background(), server.URL, testPayload{Value: testResponseValueConstant}, nil))
	require.Equal(testInstance, testResponseValueConstant, capturedPayload.Value)
}

func TestClientReturnsStatusErrorForNonSuccessResponses(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(responseWriter, `{"message":"already exists"}`)
	}))
	defer server.Close()

	client := httpapi.NewClient(httpapi.ClientConfiguration{})

	requestError := client.Post(context.Background(), server.URL, testPayload{}, nil)
	require.Error(testInstance, requestError)
	require.True(testInstance, httpapi.IsStatus(requestError, http.StatusUnprocessableEntity))
	require.False(testInstance, httpapi.IsStatus(requestError, http.StatusNotFound))

	var statusError httpapi.StatusError
	require.ErrorAs(testInstance, requestError, &statusError)
	require.Contains(testInstance, statusError.Body, "already exists")
}

func TestClientToleratesEmptySuccessBodies(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := httpapi.NewClient(httpapi.ClientConfiguration{})

	var decodedPayload testPayload
	require.NoError(testInstance, client.Get(context.Background(), server.URL, &decodedPayload))
	require.Empty(testInstance, decodedPayload.Value)
}
