// Package basisregisters provides a client for the Basisregisters Vlaanderen
// v2 address-match and building-registry endpoints.
package basisregisters

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/rwidev/MatchAddressFlanders/internal/resilience"
)

// Default production endpoints.
const (
	DefaultAdresmatchURL     = "https://api.basisregisters.vlaanderen.be/v2/adresmatch"
	DefaultGebouwenURL       = "https://api.basisregisters.vlaanderen.be/v2/gebouwen"
	DefaultGebouweenhedenURL = "https://api.basisregisters.vlaanderen.be/v2/gebouweenheden"
)

// Client calls the registry endpoints sequentially under a shared rate
// limiter. It is not safe for concurrent use; the pipelines process one
// record at a time by design.
type Client struct {
	http              *http.Client
	limiter           *rate.Limiter
	auth              string
	retry             resilience.Config
	adresmatchURL     string
	gebouwenURL       string
	gebouweenhedenURL string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outbound calls per second. Zero or negative disables
// gating entirely.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = newLimiter(rps)
	}
}

// WithBearerToken sends "Bearer <token>" in the Authorization header.
// An empty token leaves the header unset.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.auth = "Bearer " + token
		}
	}
}

// WithAuthorization sends a verbatim Authorization header value.
func WithAuthorization(header string) Option {
	return func(c *Client) {
		c.auth = header
	}
}

// WithRetry sets the retry policy for building-registry calls.
func WithRetry(cfg resilience.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithAdresmatchURL overrides the adresmatch endpoint.
func WithAdresmatchURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.adresmatchURL = u
		}
	}
}

// WithGebouwenURL overrides the gebouwen endpoint base.
func WithGebouwenURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.gebouwenURL = u
		}
	}
}

// WithGebouweenhedenURL overrides the gebouweenheden endpoint base.
func WithGebouweenhedenURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.gebouweenhedenURL = u
		}
	}
}

// NewClient creates a registry client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:              &http.Client{Timeout: 20 * time.Second},
		limiter:           newLimiter(0),
		retry:             resilience.DefaultConfig(),
		adresmatchURL:     DefaultAdresmatchURL,
		gebouwenURL:       DefaultGebouwenURL,
		gebouweenhedenURL: DefaultGebouweenhedenURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newLimiter builds a min-interval pacer: burst 1 spaces calls 1/rps apart.
func newLimiter(rps float64) *rate.Limiter {
	if rps > 0 {
		return rate.NewLimiter(rate.Limit(rps), 1)
	}
	return rate.NewLimiter(rate.Inf, 0)
}

// getOnce performs a single rate-limited GET. Non-2xx responses become an
// *resilience.HTTPError carrying a body snippet of at most snippetLen bytes.
func (c *Client) getOnce(ctx context.Context, rawURL string, params url.Values, snippetLen int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "basisregisters: rate limit")
	}

	reqURL := rawURL
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "basisregisters: build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "basisregisters: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "basisregisters: read body")
	}

	if resp.StatusCode >= 400 {
		return nil, &resilience.HTTPError{
			StatusCode: resp.StatusCode,
			URL:        rawURL,
			Snippet:    truncate(string(body), snippetLen),
		}
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
