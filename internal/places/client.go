// Package places talks to OpenStreetMap services: Overpass for points of
// interest around a coordinate and Nominatim for reverse geocoding.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bstardust/memorable/internal/retry"
	"github.com/bstardust/memorable/pkg/common"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	defaultUserAgent   = "memorable/1.0"
	defaultMaxRetries  = 2
	maxErrorBody       = 512
)

// Option customizes a service client.
type Option func(*client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header. OSM services reject requests
// without one.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg retry.Config) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	retry      retry.Config
}

func newClient(baseURL string, opts []Option) client {
	c := client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retry:      retry.Default().WithMaxRetries(defaultMaxRetries),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), strings.TrimSpace(e.Body))
}

// getJSON issues the request built by newRequest and decodes a JSON body into
// out, retrying transient failures. Errors come back as NetworkFailure, or
// Timeout when the deadline expired.
func (c *client) getJSON(ctx context.Context, op string, newRequest func(ctx context.Context) (*http.Request, error), out any) error {
	err := retry.Do(ctx, op, c.retry, func(ctx context.Context) error {
		req, err := newRequest(ctx)
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return common.NewNetworkError(op, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			statusErr := common.NewNetworkError(op, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)})
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(common.NewNetworkError(op, fmt.Errorf("decode response: %w", err)))
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrNetworkFailure) || errors.Is(err, common.ErrTimeout) {
		return err
	}
	return common.NewNetworkError(op, err)
}
