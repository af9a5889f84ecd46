// Package nominatim provides free-form place-name geocoding via the
// OpenStreetMap Nominatim search API.
package nominatim

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
	"golang.org/x/time/rate"

	"github.com/opendata-madrid/places-cli/internal/resilience"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// DefaultUserAgent identifies the tool to Nominatim, whose usage policy
// rejects anonymous clients.
const DefaultUserAgent = "places-cli/1.0"

// Client resolves free-form place names to coordinates.
type Client interface {
	// Lookup geocodes a single free-form query.
	Lookup(ctx context.Context, query string) (*Place, error)
}

// Place is the top match for a query.
type Place struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Limiter paces requests. *rate.Limiter satisfies it; tests inject a fake so
// pacing is observable without wall-clock waits.
type Limiter interface {
	Wait(ctx context.Context) error
}

// LookupMissError reports a query the provider returned no match for.
type LookupMissError struct {
	Query string
}

func (e *LookupMissError) Error() string {
	return fmt.Sprintf("nominatim: no match for %q", e.Query)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API endpoint, for tests or self-hosted
// instances.
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

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second pacing. The default is 1 req/s,
// the public Nominatim ceiling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLimiter replaces the pacing limiter wholesale.
func WithLimiter(l Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithRetry overrides the retry configuration for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   Limiter
	retry     resilience.RetryConfig
}

// NewClient creates a Nominatim client with the given options.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   defaultBaseURL,
		userAgent: DefaultUserAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("nominatim", "search")
	}
	return c
}

// searchResult is one element of the /search JSON array. Nominatim returns
// coordinates as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Lookup geocodes a single free-form query. An empty result set returns
// *LookupMissError. Transient failures (429, 5xx, network timeouts) are
// retried with backoff; every attempt waits on the client's limiter first.
func (c *httpClient) Lookup(ctx context.Context, query string) (*Place, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Place, error) {
		return c.lookup(ctx, query)
	})
}

// lookup runs one paced attempt.
func (c *httpClient) lookup(ctx context.Context, query string) (*Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("nominatim: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "nominatim: unmarshal response")
	}

	if len(results) == 0 {
		return nil, &LookupMissError{Query: query}
	}

	top := results[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: parse lat %q", top.Lat)
	}
	lon, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: parse lon %q", top.Lon)
	}

	return &Place{Lat: lat, Lon: lon, DisplayName: top.DisplayName}, nil
}
