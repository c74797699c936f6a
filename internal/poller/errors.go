package poller

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrLoopRunning is returned by [Loop.Run] when the loop is already running.
var ErrLoopRunning = errors.New("poll loop is already running")

// EndpointAccessError reports that the status endpoint could not be reached:
// DNS, connection, TLS or timeout failures.
type EndpointAccessError struct {
	// Endpoint is the URL that was requested.
	Endpoint string

	// Err is the transport failure.
	Err error
}

func (e *EndpointAccessError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *EndpointAccessError) Unwrap() error {
	return e.Err
}

// EndpointStatusError reports a non-200 response from the status endpoint.
type EndpointStatusError struct {
	// Endpoint is the URL that was requested.
	Endpoint string

	// Params are the query parameters that were sent.
	Params url.Values

	// StatusCode is the HTTP status code received.
	StatusCode int
}

func (e *EndpointStatusError) Error() string {
	return fmt.Sprintf("no valid response from %s with params %s: status code %d",
		e.Endpoint, e.Params.Encode(), e.StatusCode)
}

// ResponseDecodeError reports a 200 response whose body is not valid JSON.
type ResponseDecodeError struct {
	// Endpoint is the URL that was requested.
	Endpoint string

	// Err is the decoding failure.
	Err error
}

func (e *ResponseDecodeError) Error() string {
	return fmt.Sprintf("response from %s is not valid JSON: %v", e.Endpoint, e.Err)
}

func (e *ResponseDecodeError) Unwrap() error {
	return e.Err
}
