// Package agol is a client for ArcGIS Online hosted feature services: token
// auth, layer queries, and truncate-and-load editing.
package agol

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client performs feature service operations. Layer URLs are full REST
// endpoints including the layer index.
type Client interface {
	QueryLayer(ctx context.Context, layerURL string, opts QueryOptions) ([]Feature, error)
	Truncate(ctx context.Context, layerURL string) error
	AddFeatures(ctx context.Context, layerURL string, features []Feature) (int, error)
}

// Feature is one row of a feature layer: attributes plus an optional Esri
// JSON geometry, kept raw so callers choose their geometry representation.
type Feature struct {
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Attributes map[string]any  `json:"attributes"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second limit on REST calls. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithToken seeds a static token and disables generateToken calls. Used by
// tests and by callers that manage credentials externally.
func WithToken(token string) Option {
	return func(c *httpClient) {
		c.token = token
		c.tokenExpiry = time.Now().Add(24 * time.Hour)
		c.static = true
	}
}

type httpClient struct {
	portalURL string
	username  string
	password  string
	http      *http.Client
	limiter   *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	static      bool
}

// NewClient creates a client that authenticates against the given portal
// (e.g. "https://example.maps.arcgis.com") with username/password.
func NewClient(portalURL, username, password string, opts ...Option) Client {
	c := &httpClient{
		portalURL: strings.TrimRight(portalURL, "/"),
		username:  username,
		password:  password,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// esriError is the error object ArcGIS embeds in HTTP-200 responses.
type esriError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *esriError) wrap(action string) error {
	msg := e.Message
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	return eris.Errorf("agol: %s failed (code %d): %s", action, e.Code, msg)
}

// ensureToken returns a valid token, generating one when missing or within
// a minute of expiry.
func (c *httpClient) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}
	if c.static {
		return "", eris.New("agol: static token expired")
	}

	form := url.Values{
		"username":   {c.username},
		"password":   {c.password},
		"referer":    {c.portalURL},
		"expiration": {"60"},
		"f":          {"json"},
	}

	var result struct {
		Token   string     `json:"token"`
		Expires int64      `json:"expires"` // epoch milliseconds
		Error   *esriError `json:"error"`
	}
	if err := c.postForm(ctx, c.portalURL+"/sharing/rest/generateToken", form, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", result.Error.wrap("generateToken")
	}
	if result.Token == "" {
		return "", eris.New("agol: generateToken returned no token")
	}

	c.token = result.Token
	c.tokenExpiry = time.UnixMilli(result.Expires)
	return c.token, nil
}

// postForm posts a form and decodes the JSON response body into out.
func (c *httpClient) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "agol: rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "agol: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "agol: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "agol: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("agol: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "agol: unmarshal response")
	}
	return nil
}
