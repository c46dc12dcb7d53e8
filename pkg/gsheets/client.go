// Package gsheets provides read access to Google Sheets worksheets through
// the spreadsheets.values endpoint.
package gsheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4"

// Client reads worksheet values.
type Client interface {
	Values(ctx context.Context, spreadsheetID, worksheet string) ([][]string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second limit on reads. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Sheets client authenticated with an API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type valueRange struct {
	Values [][]json.RawMessage `json:"values"`
}

// Values fetches every formatted cell of a worksheet as strings. Trailing
// empty cells are absent from the API response; rows come back ragged.
func (c *httpClient) Values(ctx context.Context, spreadsheetID, worksheet string) ([][]string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "gsheets: rate limiter")
		}
	}

	u := c.baseURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) + "/values/" + url.PathEscape(worksheet) +
		"?key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gsheets: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gsheets: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gsheets: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("gsheets: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var vr valueRange
	if err := json.Unmarshal(respBody, &vr); err != nil {
		return nil, eris.Wrap(err, "gsheets: unmarshal response")
	}

	rows := make([][]string, len(vr.Values))
	for i, raw := range vr.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = cellString(cell)
		}
		rows[i] = row
	}
	return rows, nil
}

// cellString renders one cell value. The values endpoint returns strings for
// formatted cells but bare numbers/bools for unformatted ones.
func cellString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if v == nil {
		return ""
	}

	b, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(b)
}
