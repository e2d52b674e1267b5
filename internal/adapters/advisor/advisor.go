// Package advisor calls an optional LLM endpoint that re-summarizes a
// deterministic resolution. The advisor is a suggestion channel only;
// it can never change the resolution itself.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkhalili/arbiter/pkg/logger"
)

// Review is what the advisor sees: the deterministic outcome plus the
// evidence that produced it.
type Review struct {
	Query      string   `json:"query"`
	Structured any      `json:"structured"`
	GroupKey   string   `json:"groupKey,omitempty"`
	Resolution string   `json:"resolution"`
	Confidence float64  `json:"confidence"`
	Providers  []string `json:"providers"`
}

// Opinion is the advisor's suggestion. All fields are optional.
type Opinion struct {
	Reasoning  string   `json:"reasoning,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Resolution string   `json:"resolution,omitempty"`

	// Raw preserves the unparsed model output for the audit payload.
	Raw string `json:"-"`
}

// Advisor reviews a deterministic resolution.
type Advisor interface {
	// Review returns nil without error when no advisor is configured.
	Review(ctx context.Context, req Review) (*Opinion, error)
}

// Option applies a configuration option to the HTTPAdvisor.
type Option func(*HTTPAdvisor)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(a *HTTPAdvisor) {
		if h != nil {
			a.http = h
		}
	}
}

const advisorTimeout = 30 * time.Second

// HTTPAdvisor posts the review to a JSON endpoint.
type HTTPAdvisor struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  logger.Logger
}

// NewHTTP creates an advisor client for the given endpoint.
func NewHTTP(baseURL, apiKey string, opts ...Option) *HTTPAdvisor {
	a := &HTTPAdvisor{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: advisorTimeout},
		logger:  logger.Get().Named("advisor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Review posts the review and parses the opinion.
func (a *HTTPAdvisor) Review(ctx context.Context, req Review) (*Opinion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("advisor call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read advisor response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("advisor status %d", resp.StatusCode)
	}

	var opinion Opinion
	if err := json.Unmarshal(raw, &opinion); err != nil {
		return nil, fmt.Errorf("decode advisor response: %w", err)
	}
	opinion.Raw = string(raw)
	return &opinion, nil
}

// Noop is the advisor used when no endpoint is configured.
type Noop struct{}

// Review always reports that no opinion is available.
func (Noop) Review(context.Context, Review) (*Opinion, error) {
	return nil, nil
}
