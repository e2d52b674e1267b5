package fetch

import (
	"net/http"
	"time"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetryPolicy sets the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		if p.Retries >= 0 && p.InitialDelay > 0 && p.Factor >= 1 {
			c.retry = p
		}
	}
}

// WithBreakerPolicy sets the per-host breaker policy.
func WithBreakerPolicy(p BreakerPolicy) Option {
	return func(c *Client) {
		if p.FailureThreshold > 0 && p.Cooldown > 0 {
			c.breakerPolicy = p
		}
	}
}

// WithBreakerMap shares an existing breaker map, e.g. between the
// outcome and statistic pipelines of one process.
func WithBreakerMap(m *BreakerMap) Option {
	return func(c *Client) {
		if m != nil {
			c.breakers = m
		}
	}
}

// WithClock overrides the time source; delays still honor context
// cancellation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}
