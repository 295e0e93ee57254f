package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nao1215/acprobe/internal/model"
)

// Default client settings.
const (
	DefaultRateLimitCooldown = 10 * time.Second
	DefaultErrorDelay        = 1 * time.Second
	DefaultMaxCooldown       = 5 * time.Minute
	DefaultMaxBodySize       = 5 * 1024 * 1024
)

// Client queries an autocomplete API over HTTP.
//
// Requests have the form
//
//	GET {baseURL}/{version}/autocomplete?query={prefix}&max_results={n}
//
// and a successful response is a JSON object whose "results" member is an
// array of strings. Client is safe to read (Requests) from other goroutines
// while Fetch runs, but Fetch itself is meant to be called sequentially.
type Client struct {
	// endpoint is the fully built path without the query string.
	endpoint string

	// maxResults is sent as max_results on every request.
	maxResults int

	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string

	cooldown      time.Duration
	errorDelay    time.Duration
	maxRetries    int
	backoffFactor float64
	maxCooldown   time.Duration
	maxBodySize   int64

	// requests counts HTTP attempts, retries included.
	requests atomic.Int64

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRateLimitCooldown sets the wait after an HTTP 429.
func WithRateLimitCooldown(d time.Duration) Option {
	return func(c *Client) {
		c.cooldown = d
	}
}

// WithErrorDelay sets the wait after any other non-200 status.
func WithErrorDelay(d time.Duration) Option {
	return func(c *Client) {
		c.errorDelay = d
	}
}

// WithMaxRateLimitRetries caps the number of retries after HTTP 429 for a
// single query. Zero retries forever.
func WithMaxRateLimitRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackoff grows the cooldown by factor after every consecutive 429,
// never beyond maxCooldown. A factor of 1 keeps the cooldown fixed.
func WithBackoff(factor float64, maxCooldown time.Duration) Option {
	return func(c *Client) {
		if factor >= 1 {
			c.backoffFactor = factor
		}
		if maxCooldown > 0 {
			c.maxCooldown = maxCooldown
		}
	}
}

// WithMaxBodySize limits how many bytes of a response body are read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, version model.APIVersion, maxResults int, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	if !version.Valid() {
		return nil, fmt.Errorf("%w: %d", model.ErrUnknownAPIVersion, int(version))
	}

	c := &Client{
		endpoint:      u.String() + "/" + version.String() + "/autocomplete",
		maxResults:    maxResults,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        slog.Default(),
		cooldown:      DefaultRateLimitCooldown,
		errorDelay:    DefaultErrorDelay,
		backoffFactor: 1,
		maxCooldown:   DefaultMaxCooldown,
		maxBodySize:   DefaultMaxBodySize,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Requests returns the number of HTTP attempts made so far.
func (c *Client) Requests() int64 {
	return c.requests.Load()
}

// Endpoint returns the request path without the query string.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch returns the suggestions for query.
//
// HTTP 429 is retried with the same request after the cooldown. Any other
// non-200 status is logged and answered with an empty slice after the
// error delay. Transport faults and unusable bodies are logged and
// answered with an empty slice immediately.
//
// The error is non-nil only when ctx is done or the retry limit for 429
// responses is reached (ErrRateLimitExhausted).
func (c *Client) Fetch(ctx context.Context, query string) ([]string, error) {
	reqURL := c.requestURL(query)
	cooldown := c.cooldown

	for retries := 0; ; retries++ {
		status, body, err := c.do(ctx, reqURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Error("Request failed", "query", query, "error", err)
			return nil, nil
		}

		switch {
		case status == http.StatusTooManyRequests:
			if c.maxRetries > 0 && retries >= c.maxRetries {
				c.logger.Error("Rate limit retries exhausted", "query", query, "retries", retries)
				return nil, fmt.Errorf("%w: query %q after %d retries", ErrRateLimitExhausted, query, retries)
			}
			c.logger.Warn("Rate limited, waiting before retry",
				"query", query, "cooldown", cooldown, "retry", retries+1)
			if err := c.sleep(ctx, cooldown); err != nil {
				return nil, err
			}
			cooldown = c.nextCooldown(cooldown)
			continue

		case status != http.StatusOK:
			c.logger.Error("Unexpected status code", "query", query, "status", status)
			if err := c.sleep(ctx, c.errorDelay); err != nil {
				return nil, err
			}
			return nil, nil
		}

		return c.decode(query, body), nil
	}
}

// requestURL builds the request URL. Spaces are encoded as %20 rather
// than "+" so that prefixes containing the separator reach the server
// unchanged.
func (c *Client) requestURL(query string) string {
	q := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return c.endpoint + "?query=" + q + "&max_results=" + strconv.Itoa(c.maxResults)
}

// do performs one HTTP attempt and returns the status and body.
func (c *Client) do(ctx context.Context, reqURL string) (int, []byte, error) {
	c.requests.Add(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// decode extracts the "results" array from a response body.
func (c *Client) decode(query string, body []byte) []string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("Malformed response body", "query", query, "error", err)
		return nil
	}

	raw, ok := payload["results"]
	if !ok {
		c.logger.Warn("Response has no results field",
			"query", query, "keys", slices.Sorted(maps.Keys(payload)))
		return nil
	}

	var results []string
	if err := json.Unmarshal(raw, &results); err != nil || results == nil {
		c.logger.Warn("Response results field is not a list of strings",
			"query", query, "keys", slices.Sorted(maps.Keys(payload)))
		return nil
	}

	if len(results) > 0 && c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("Sample suggestions",
			"query", query,
			"first", results[:min(3, len(results))],
			"last", results[len(results)-1])
	}
	return results
}

func (c *Client) nextCooldown(current time.Duration) time.Duration {
	if c.backoffFactor <= 1 {
		return current
	}
	next := time.Duration(float64(current) * c.backoffFactor)
	if next > c.maxCooldown {
		return c.maxCooldown
	}
	return next
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
