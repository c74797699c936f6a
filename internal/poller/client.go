package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; a single endpoint is polled so these stay small
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 2
	defaultMaxConnsPerHost     = 2
	defaultIdleConnTimeout     = 60 * time.Second
)

// Doer is the HTTP capability the poller depends on. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response holds the result of an HTTP request made by [Client].
//
// Response captures the body (limited to 1MB), status code, latency, and
// any transport error.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request.
	// nil indicates the request completed (though status may indicate an error).
	Error error
}

// Client is an HTTP client wrapper for polling the status endpoint.
//
// Client uses per-request timeouts via context rather than a global timeout.
// Response bodies are limited to 1MB.
type Client struct {
	doer Doer
}

// NewClient creates a [Client] backed by a pooled *http.Client.
//
// Timeouts are applied per request via the context in [Client.Get], not as
// a global client timeout.
func NewClient() *Client {
	return &Client{
		doer: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// NewClientWithDoer creates a [Client] that sends requests through d.
func NewClientWithDoer(d Doer) *Client {
	if d == nil {
		return NewClient()
	}
	return &Client{doer: d}
}

// Get performs a GET request and returns a structured [Response].
//
// query is encoded onto rawURL, replacing any query string it already has
// for the same keys. The timeout is applied via context cancellation; zero
// means no timeout beyond ctx.
//
// Get always returns a Response; errors are captured in the Error field
// rather than returned separately.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, headers map[string]string, timeout time.Duration) Response {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	u, err := url.Parse(rawURL)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("invalid url: %w", err),
		}
	}
	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			q[key] = values
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close closes idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil receiver. After Close, the client
// remains usable but new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.doer == nil {
		return
	}
	if closer, ok := c.doer.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}
