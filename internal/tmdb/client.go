package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"cinereco/internal/logging"
)

const maxBodyBytes = 16 << 20

// ErrCircuitOpen is returned while the breaker rejects requests after repeated failures.
var ErrCircuitOpen = errors.New("tmdb circuit open")

// Response is a raw catalog response. Non-success statuses are preserved so
// callers decide how to treat them.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil {
		return errors.New("decode tmdb response: nil response")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}

// Client provides rate-limit aware access to the TMDB API. It is safe for
// concurrent use; every request shares one HTTP client and breaker.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	retry      RetryPolicy
	breaker    *gobreaker.CircuitBreaker[*Response]
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
	now        func() time.Time

	breakerFailures uint32
	breakerCooldown time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the HTTP 429 retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy.normalized()
	}
}

// WithLogger sets the logger used for rate-limit and breaker events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBreaker configures how many consecutive failures open the circuit and
// how long it stays open.
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.breakerFailures = uint32(failures)
		}
		if cooldown > 0 {
			c.breakerCooldown = cooldown
		}
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:          apiKey,
		baseURL:         strings.TrimRight(baseURL, "/"),
		language:        strings.TrimSpace(language),
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		retry:           DefaultRetryPolicy(),
		logger:          logging.NewNop(),
		sleep:           SleepWithContext,
		now:             time.Now,
		breakerFailures: 5,
		breakerCooldown: time.Minute,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Timeout:     client.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= client.breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logging.WarnWithContext(client.logger, "tmdb circuit opened",
					"circuit_open",
					logging.String("from", from.String()),
					logging.Duration("cooldown", client.breakerCooldown),
					logging.String(logging.FieldErrorHint, "check network connectivity and TMDB status"),
					logging.String(logging.FieldImpact, "catalog requests fail fast until the cooldown elapses"),
				)
				return
			}
			client.logger.Info("tmdb circuit state changed",
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	})
	return client, nil
}

// Fetch issues GET baseURL+path with params plus the API key and language.
// HTTP 429 is retried with exponential backoff until the retry policy is
// exhausted, which yields ErrRateLimited. Every other status is returned as-is.
func (c *Client) Fetch(ctx context.Context, path string, params url.Values) (*Response, error) {
	endpoint, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	query := url.Values{}
	for key, values := range params {
		query[key] = append([]string(nil), values...)
	}
	query.Set("api_key", c.apiKey)
	if c.language != "" && query.Get("language") == "" {
		query.Set("language", c.language)
	}
	endpoint.RawQuery = query.Encode()

	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.fetchWithRetry(ctx, endpoint.String(), path)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, path, err)
	}
	return resp, err
}

func (c *Client) fetchWithRetry(ctx context.Context, target, path string) (*Response, error) {
	policy := c.retry
	for attempt := 1; ; attempt++ {
		resp, err := c.do(ctx, target)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		if attempt >= policy.MaxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrRateLimited, path, attempt)
		}
		wait := policy.Backoff(attempt)
		if hinted := retryAfter(resp.Header, c.now()); hinted > wait {
			wait = min(hinted, policy.MaxBackoff)
		}
		logging.WarnWithContext(c.logger, "tmdb rate limited; backing off",
			"rate_limited",
			logging.String("path", path),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", policy.MaxAttempts),
			logging.Duration("backoff", wait),
			logging.String(logging.FieldErrorHint, "lower fetch.detail_concurrency or fetch.page_concurrency"),
			logging.String(logging.FieldImpact, "request delayed until the backoff elapses"),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) do(ctx context.Context, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read tmdb response (latency=%v): %w", latency, err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// MovieDetails fetches one movie with keywords, credits and videos appended.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) (*Response, error) {
	if movieID <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	params := url.Values{}
	params.Set("include_adult", "false")
	params.Set("append_to_response", "keywords,credits,videos")
	return c.Fetch(ctx, fmt.Sprintf("/movie/%d", movieID), params)
}
