// Package api is the typed HTTP client for the NovusAI backend. It deals in
// request/response shapes and error classification only; session policy
// (when to clear a credential, how to surface a failure) lives with the
// callers.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"novusai.org/internal/ids"
	"novusai.org/internal/obs"
)

// TokenSource supplies the current bearer credential; "" means none.
type TokenSource interface {
	Get() string
}

// Client calls the remote backend.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpc.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound calls with a token bucket.
func WithRateLimit(perSec, burst int) Option {
	return func(c *Client) {
		if perSec > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// New creates a client with sensible defaults.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one request with bearer auth, correlation id, rate limiting and
// metrics. Non-2xx responses are classified and returned as errors; the
// caller owns the response body on success.
func (c *Client) do(ctx context.Context, endpoint, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Get(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	req.Header.Set("X-Request-ID", ids.NewRequest())

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		obs.ObserveAPIRequest(endpoint, "network_error", time.Since(start))
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		cerr := classifyResponse(resp)
		obs.ObserveAPIRequest(endpoint, outcomeLabel(cerr), time.Since(start))
		return nil, fmt.Errorf("%s: %w", endpoint, cerr)
	}
	obs.ObserveAPIRequest(endpoint, "ok", time.Since(start))
	return resp, nil
}
