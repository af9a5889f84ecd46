// Package foursquare provides place search via the Foursquare Places v3 API.
package foursquare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opendata-madrid/places-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://api.foursquare.com/v3"

	// defaultLimit is the API's per-request ceiling; there is no pagination
	// here, one request returns at most this many places.
	defaultLimit = 50

	// searchFields is the fixed projection every search requests.
	searchFields = "fsq_id,name,location,categories,distance,geocodes"
)

// Client performs Foursquare Places API operations.
type Client interface {
	// Search runs a single bounded place search around a point.
	Search(ctx context.Context, q SearchQuery) ([]map[string]any, error)
}

// SearchQuery bounds one place search.
type SearchQuery struct {
	Lat          float64
	Lon          float64
	RadiusMeters int
	CategoryCode int
	Limit        int // defaults to 50, the API ceiling
}

// BadResponseError reports a response that does not match the v3 search
// contract.
type BadResponseError struct {
	Status int
	Reason string
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("foursquare: bad response (status %d): %s", e.Status, e.Reason)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry configuration for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a Foursquare Places client. The token goes into the
// Authorization header verbatim, as v3 service keys expect.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("foursquare", "search")
	}
	return c
}

// Search issues a GET against /places/search and decodes the results array.
// Rows come back as loose maps so downstream normalization decides which
// fields matter; unknown fields survive. A response without a results list is
// a *BadResponseError. Rate-limited and server-side failures are retried
// with backoff.
func (c *httpClient) Search(ctx context.Context, q SearchQuery) ([]map[string]any, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]map[string]any, error) {
		return c.search(ctx, q)
	})
}

// search runs one attempt.
func (c *httpClient) search(ctx context.Context, q SearchQuery) ([]map[string]any, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	params := url.Values{
		"ll":         {formatCoord(q.Lat) + "," + formatCoord(q.Lon)},
		"radius":     {strconv.Itoa(q.RadiusMeters)},
		"categories": {strconv.Itoa(q.CategoryCode)},
		"fields":     {searchFields},
		"sort":       {"DISTANCE"},
		"limit":      {strconv.Itoa(limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: read response")
	}

	if resp.StatusCode != http.StatusOK {
		berr := &BadResponseError{
			Status: resp.StatusCode,
			Reason: truncate(string(body), 200),
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(berr, resp.StatusCode)
		}
		return nil, berr
	}

	var envelope struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &BadResponseError{Status: resp.StatusCode, Reason: "body is not a JSON object"}
	}
	if envelope.Results == nil {
		return nil, &BadResponseError{Status: resp.StatusCode, Reason: "results field missing"}
	}

	var rows []map[string]any
	if err := json.Unmarshal(envelope.Results, &rows); err != nil {
		return nil, &BadResponseError{Status: resp.StatusCode, Reason: "results is not a list of objects"}
	}

	return rows, nil
}

// formatCoord renders a coordinate with the shortest exact representation.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
