// Package transport provides the authenticated, rate-limit-aware HTTP
// client the board API client is built on. Retry policy lives here so the
// callers above it never see a transient 429 or 5xx that a short backoff
// would have absorbed.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/meridianlabs/boardsync/pkg/errors"
	"github.com/meridianlabs/boardsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 2 * time.Second
	maxBackoff         = 30 * time.Second
)

// Client provides HTTP client functionality with authentication and
// bounded retries for rate limiting and transient server errors.
type Client struct {
	http        *http.Client
	auth        Authenticator
	token       string
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithMaxAttempts sets the total number of attempts per request,
// including the first. Minimum is 1.
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts >= 1 {
			c.maxAttempts = attempts
		}
	}
}

// WithBackoff sets the base delay of the exponential retry schedule.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a transport client with the given authenticator and token.
func New(auth Authenticator, token string, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http:        &http.Client{Timeout: DefaultHTTPTimeout},
		auth:        auth,
		token:       token,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs an HTTP request with authentication applied, retrying on
// 429 and 5xx responses. The request body must be rewindable, which is
// why Post buffers it; callers passing their own request bear that
// responsibility via req.GetBody.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.token != "" {
		c.auth.Apply(req, c.token)
	}
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("Content-Type") == "" &&
		(req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch) {
		req.Header.Set("Content-Type", "application/json")
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.ErrCanceled
			}
			lastErr = &errors.APIError{Endpoint: req.URL.Path, Message: "request failed", Err: err}
			if attempt < c.maxAttempts {
				if werr := c.wait(ctx, c.delay(attempt, nil)); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, lastErr
		}

		if !retryable(resp.StatusCode) {
			return resp, nil
		}

		apiErr := &errors.APIError{
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
		delay := c.delay(attempt, resp)
		drain(resp)
		lastErr = apiErr

		if attempt == c.maxAttempts {
			break
		}

		logging.Warn().
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("endpoint", req.URL.Path).
			Msg("retrying request")

		if err := c.wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &errors.APIError{Endpoint: url, Message: "failed to build request", Err: err}
	}
	return c.Do(ctx, req)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &errors.APIError{Endpoint: url, Message: "failed to build request", Err: err}
	}
	return c.Do(ctx, req)
}

// retryable reports whether a status code warrants another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// delay computes the backoff before the next attempt. A Retry-After
// header wins over the exponential schedule.
func (c *Client) delay(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
				d := time.Duration(secs) * time.Second
				if d > maxBackoff {
					return maxBackoff
				}
				return d
			}
		}
	}

	d := c.backoff << (attempt - 1)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// wait sleeps for the given delay, honoring cancellation.
func (c *Client) wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.ErrCanceled
	case <-timer.C:
		return nil
	}
}

// rewind resets the request body for another attempt.
func rewind(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return &errors.APIError{Endpoint: req.URL.Path, Message: "failed to rewind request body", Err: err}
	}
	req.Body = body
	return nil
}

// drain discards and closes a response body so the connection can be
// reused across retries.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
