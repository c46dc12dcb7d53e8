// Package graphql provides a minimal GraphQL-over-HTTP client for the state
// service line inventory endpoint.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client performs GraphQL queries.
type Client interface {
	Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second limit on queries. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for the given GraphQL endpoint URL.
func NewClient(url string, opts ...Option) Client {
	c := &httpClient{
		url: url,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query posts a query and returns the raw "data" object. GraphQL-level
// errors are returned as a single wrapped error.
func (c *httpClient) Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "graphql: rate limiter")
		}
	}

	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, eris.Wrap(err, "graphql: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "graphql: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "graphql: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "graphql: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("graphql: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "graphql: unmarshal response")
	}

	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Message
		}
		return nil, eris.Errorf("graphql: query failed: %s", strings.Join(msgs, "; "))
	}

	return result.Data, nil
}
