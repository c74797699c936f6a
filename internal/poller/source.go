package poller

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jpalmerr/statusbot/internal/homework"
)

// DefaultEndpoint is the homework status API.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// cursorParam is the query parameter carrying the poll cursor.
const cursorParam = "from_date"

// Fetcher performs one query against the status endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, cursor int64) (any, error)
}

// Source is the [Fetcher] for the homework status API.
type Source struct {
	client   *Client
	endpoint string
	token    string
	timeout  time.Duration
}

// NewSource creates a [Source] that authenticates with an OAuth token.
//
// A nil client gets a pooled default [Client]. timeout bounds each request;
// zero leaves it to ctx.
func NewSource(client *Client, endpoint, token string, timeout time.Duration) *Source {
	if client == nil {
		client = NewClient()
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Source{
		client:   client,
		endpoint: endpoint,
		token:    token,
		timeout:  timeout,
	}
}

// Endpoint returns the URL being polled.
func (s *Source) Endpoint() string {
	return s.endpoint
}

// Fetch queries the endpoint for work items changed since cursor.
//
// It never retries. Failures are returned as [*EndpointAccessError],
// [*EndpointStatusError] or [*ResponseDecodeError].
func (s *Source) Fetch(ctx context.Context, cursor int64) (any, error) {
	params := url.Values{cursorParam: []string{strconv.FormatInt(cursor, 10)}}
	headers := map[string]string{
		"Authorization": "OAuth " + s.token,
		"Accept":        "application/json",
	}

	resp := s.client.Get(ctx, s.endpoint, params, headers, s.timeout)
	if resp.Error != nil {
		return nil, &EndpointAccessError{Endpoint: s.endpoint, Err: resp.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &EndpointStatusError{Endpoint: s.endpoint, Params: params, StatusCode: resp.StatusCode}
	}

	raw, err := homework.Decode(resp.Body)
	if err != nil {
		return nil, &ResponseDecodeError{Endpoint: s.endpoint, Err: err}
	}
	return raw, nil
}

// Close releases idle connections held by the underlying client.
func (s *Source) Close() {
	s.client.Close()
}
