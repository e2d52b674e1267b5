// Package fetch retrieves JSON documents over HTTP with retry,
// per-host circuit breaking, and typed failure kinds.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/mkhalili/arbiter/pkg/logger"
	"github.com/mkhalili/arbiter/pkg/metrics"
)

// RetryPolicy configures exponential backoff.
type RetryPolicy struct {
	Retries      int
	InitialDelay time.Duration
	Factor       float64
}

// DefaultRetryPolicy matches the service defaults: two retries from
// 300ms, doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:      2,
		InitialDelay: 300 * time.Millisecond,
		Factor:       2,
	}
}

const defaultTransportTimeout = 15 * time.Second

// Client fetches JSON with retry and breaker accounting. The breaker
// map is the only mutable state; everything else is set at build time.
type Client struct {
	http          *http.Client
	retry         RetryPolicy
	breakerPolicy BreakerPolicy
	breakers      *BreakerMap
	now           func() time.Time
	logger        logger.Logger
}

// New creates a fetch client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		http:          &http.Client{Timeout: defaultTransportTimeout},
		retry:         DefaultRetryPolicy(),
		breakerPolicy: DefaultBreakerPolicy(),
		breakers:      NewBreakerMap(),
		now:           time.Now,
		logger:        logger.Get().Named("fetch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breakers exposes the breaker map for health reporting.
func (c *Client) Breakers() *BreakerMap {
	return c.breakers
}

// JSON fetches url and decodes the response body. A breaker open for
// the host fails immediately with ErrCircuitOpen and no request. Any
// non-2xx status, transport error, or decode error counts as an
// attempt failure; exhausting retries records one terminal failure
// against the host.
func (c *Client) JSON(ctx context.Context, rawURL string, headers map[string]string) (any, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := parsed.Hostname()
	cell := c.breakers.get(host)

	if cell.isOpen(c.now(), c.breakerPolicy.Cooldown) {
		metrics.RecordCircuitOpen(host)
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, host)
	}

	payload, began, err := c.attemptAll(ctx, rawURL, headers)
	if err != nil {
		// Cancellations count against the breaker only when a
		// request was actually issued.
		if began {
			cell.recordFailure(c.now(), c.breakerPolicy.FailureThreshold)
		}
		return nil, err
	}

	cell.recordSuccess()
	return payload, nil
}

// attemptAll runs the initial attempt plus retries with exponential
// backoff; began reports whether any request reached the wire.
func (c *Client) attemptAll(ctx context.Context, rawURL string, headers map[string]string) (payload any, began bool, err error) {
	for attempt := 0; attempt <= c.retry.Retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.retry.InitialDelay) * math.Pow(c.retry.Factor, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, began, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
			case <-time.After(delay):
			}
		}
		if ctx.Err() != nil {
			return nil, began, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		}

		var attemptBegan bool
		payload, attemptBegan, err = c.attempt(ctx, rawURL, headers)
		began = began || attemptBegan
		if err == nil {
			return payload, began, nil
		}
		c.logger.Debug(ctx, "fetch attempt failed",
			logger.String("url", rawURL),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
	}
	return nil, began, err
}

// attempt issues one request and decodes the body.
func (c *Client) attempt(ctx context.Context, rawURL string, headers map[string]string) (any, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	metrics.ObserveFetchLatency(c.now().Sub(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil, true, fmt.Errorf("%w: %d from %s", ErrHTTPStatus, resp.StatusCode, rawURL)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return payload, true, nil
}
