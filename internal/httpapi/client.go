package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	httpGetMethodConstant                 = http.MethodGet
	httpPostMethodConstant                = http.MethodPost
	httpPutMethodConstant                 = http.MethodPut
	httpPatchMethodConstant               = http.MethodPatch
	contentTypeHeaderNameConstant         = "Content-Type"
	acceptHeaderNameConstant              = "Accept"
	jsonContentTypeConstant               = "application/json"
	requestCreationErrorTemplateConstant  = "unable to create %s request for %s: %w"
	requestExecutionErrorTemplateConstant = "request %s %s failed: %w"
	requestBodyEncodingErrorTemplate      = "unable to encode request body for %s: %w"
	responseDecodingErrorTemplateConstant = "unable to decode response from %s: %w"
	statusErrorTemplateConstant           = "%s %s returned status %d: %s"
	defaultRequestTimeoutConstant         = 30 * time.Second
	responseBodySampleLimitConstant       = 2048
)

// BasicAuth carries username/password credentials attached to every request.
type BasicAuth struct {
	Username string
	Password string
}

// ClientConfiguration describes authentication and header defaults for a REST client.
type ClientConfiguration struct {
	BasicAuth      *BasicAuth
	DefaultHeaders map[string]string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client issues JSON requests with consistent authentication and error translation.
type Client struct {
	httpClient     *http.Client
	basicAuth      *BasicAuth
	defaultHeaders map[string]string
}

// StatusError reports a response outside the 2xx range with a body sample for diagnostics.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error renders the failing request with its status code and body sample.
func (statusError StatusError) Error() string {
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.Method, statusError.URL, statusError.StatusCode, statusError.Body)
}

// IsStatus reports whether the error chain contains a StatusError with the given code.
func IsStatus(candidateError error, statusCode int) bool {
	var statusError StatusError
	if errors.As(candidateError, &statusError) {
		return statusError.StatusCode == statusCode
	}
	return false
}

// NewClient constructs a Client from the supplied configuration.
func NewClient(configuration ClientConfiguration) *Client {
	httpClient := configuration.HTTPClient
	if httpClient == nil {
		timeout := configuration.Timeout
		if timeout == 0 {
			timeout = defaultRequestTimeoutConstant
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	duplicatedHeaders := make(map[string]string, len(configuration.DefaultHeaders))
	for headerName, headerValue := range configuration.DefaultHeaders {
		duplicatedHeaders[headerName] = headerValue
	}

	return &Client{
		httpClient:     httpClient,
		basicAuth:      configuration.BasicAuth,
		defaultHeaders: duplicatedHeaders,
	}
}

// Get issues a GET request and decodes the JSON response into target when target is non-nil.
func (client *Client) Get(executionContext context.Context, requestURL string, target any) error {
	return client.sendRequest(executionContext, httpGetMethodConstant, requestURL, nil, target)
}

// Post issues a POST request with an optional JSON body and decodes the response into target.
func (client *Client) Post(executionContext context.Context, requestURL string, requestBody any, target any) error {
	return client.sendRequest(executionContext, httpPostMethodConstant, requestURL, requestBody, target)
}

// Put issues a PUT request with an optional JSON body and decodes the response into target.
func (client *Client) Put(executionContext context.Context, requestURL string, requestBody any, target any) error {
	return client.sendRequest(executionContext, httpPutMethodConstant, requestURL, requestBody, target)
}

// Patch issues a PATCH request with an optional JSON body and decodes the response into target.
func (client *Client) Patch(executionContext context.Context, requestURL string, requestBody any, target any) error {
	return client.sendRequest(executionContext, httpPatchMethodConstant, requestURL, requestBody, target)
}

func (client *Client) sendRequest(executionContext context.Context, method string, requestURL string, requestBody any, target any) error {
	var encodedBody io.Reader
	if requestBody != nil {
		bodyBuffer := &bytes.Buffer{}
		if encodeError := json.NewEncoder(bodyBuffer).Encode(requestBody); encodeError != nil {
			return fmt.Errorf(requestBodyEncodingErrorTemplate, requestURL, encodeError)
		}
		encodedBody = bodyBuffer
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, requestURL, encodedBody)
	if requestError != nil {
		return fmt.Errorf(requestCreationErrorTemplateConstant, method, requestURL, requestError)
	}

	request.Header.Set(acceptHeaderNameConstant, jsonContentTypeConstant)
	if requestBody != nil {
		request.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)
	}
	for headerName, headerValue := range client.defaultHeaders {
		request.Header.Set(headerName, headerValue)
	}
	if client.basicAuth != nil {
		request.SetBasicAuth(client.basicAuth.Username, client.basicAuth.Password)
	}

	response, executionError := client.httpClient.Do(request)
	if executionError != nil {
		return fmt.Errorf(requestExecutionErrorTemplateConstant, method, requestURL, executionError)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		bodySample, _ := io.ReadAll(io.LimitReader(response.Body, responseBodySampleLimitConstant))
		return StatusError{
			Method:     method,
			URL:        requestURL,
			StatusCode: response.StatusCode,
			Body:       string(bytes.TrimSpace(bodySample)),
		}
	}

	if target == nil {
		return nil
	}

	if decodeError := json.NewDecoder(response.Body).Decode(target); decodeError != nil {
		if errors.Is(decodeError, io.EOF) {
			return nil
		}
		return fmt.Errorf(responseDecodingErrorTemplateConstant, requestURL, decodeError)
	}

	return nil
}
