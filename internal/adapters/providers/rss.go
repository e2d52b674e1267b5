package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/pkg/logger"
)

// Default sports news feeds, overridable via SPORTS_RSS_FEEDS.
var defaultRSSFeeds = []string{
	"https://www.espn.com/espn/rss/news",
	"https://feeds.bbci.co.uk/sport/rss.xml",
	"https://www.skysports.com/rss/12040",
}

const (
	rssTier    = 3
	rssTimeout = 15 * time.Second
)

// RSSOption applies a configuration option to the RSS client.
type RSSOption func(*RSSClient)

// WithFeeds replaces the feed URL list.
func WithFeeds(feeds []string) RSSOption {
	return func(c *RSSClient) {
		if len(feeds) > 0 {
			c.feeds = feeds
		}
	}
}

// WithRSSHTTPClient replaces the HTTP client used to pull feeds.
func WithRSSHTTPClient(h *http.Client) RSSOption {
	return func(c *RSSClient) {
		if h != nil {
			c.http = h
		}
	}
}

// RSSClient pulls sports news feeds and wraps their items into
// provider envelopes, one per feed host.
type RSSClient struct {
	feeds  []string
	http   *http.Client
	parser *gofeed.Parser
	logger logger.Logger
}

// NewRSSClient creates an RSS client with configuration options.
func NewRSSClient(opts ...RSSOption) *RSSClient {
	c := &RSSClient{
		feeds:  defaultRSSFeeds,
		http:   &http.Client{Timeout: rssTimeout},
		parser: gofeed.NewParser(),
		logger: logger.Get().Named("rss"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FeedsFromEnv parses the SPORTS_RSS_FEEDS comma-separated list.
func FeedsFromEnv(value string) []string {
	if value == "" {
		return nil
	}
	var feeds []string
	for _, f := range strings.Split(value, ",") {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	return feeds
}

// Fetch pulls every configured feed. Each feed yields one envelope
// keyed "rss:<host>"; failures become failed envelopes, never errors.
func (c *RSSClient) Fetch(ctx context.Context) []model.ProviderEnvelope {
	envelopes := make([]model.ProviderEnvelope, 0, len(c.feeds))
	for _, feedURL := range c.feeds {
		envelopes = append(envelopes, c.fetchFeed(ctx, feedURL))
	}
	return envelopes
}

func (c *RSSClient) fetchFeed(ctx context.Context, feedURL string) model.ProviderEnvelope {
	env := model.ProviderEnvelope{
		Provider:    "rss:" + feedHost(feedURL),
		Tier:        rssTier,
		Weight:      model.TierWeight(rssTier),
		CollectedAt: time.Now(),
		Status:      model.EnvelopeFailed,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		env.Reason = err.Error()
		return env
	}
	resp, err := c.http.Do(req)
	if err != nil {
		env.Reason = err.Error()
		return env
	}
	defer resp.Body.Close()

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		c.logger.Debug(ctx, "feed parse failed", logger.String("url", feedURL), logger.Error(err))
		env.Reason = err.Error()
		return env
	}

	items := make([]any, 0, len(feed.Items))
	for _, it := range feed.Items {
		entry := map[string]any{
			"title": strings.TrimSpace(it.Title),
			"link":  strings.TrimSpace(it.Link),
		}
		if it.PublishedParsed != nil {
			entry["published"] = it.PublishedParsed.Format(time.RFC3339)
		} else if it.UpdatedParsed != nil {
			entry["published"] = it.UpdatedParsed.Format(time.RFC3339)
		}
		items = append(items, entry)
	}

	env.Status = model.EnvelopeOK
	env.Payload = map[string]any{"items": items}
	env.Meta = map[string]string{"feed": feedURL, "source": feed.Title}
	return env
}

func feedHost(feedURL string) string {
	if u, err := url.Parse(feedURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return feedURL
}
