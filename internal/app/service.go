// Package app provides the core service that wires the resolution
// pipeline together behind a single Resolve call.
package app

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/mkhalili/arbiter/internal/adapters/advisor"
	"github.com/mkhalili/arbiter/internal/adapters/cache"
	"github.com/mkhalili/arbiter/internal/adapters/fetch"
	"github.com/mkhalili/arbiter/internal/adapters/providers"
	"github.com/mkhalili/arbiter/internal/config"
	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/internal/domain/resolve"
	"github.com/mkhalili/arbiter/pkg/logger"
	"github.com/mkhalili/arbiter/pkg/metrics"
)

// advisorAdapter bridges the advisor client onto the resolver's
// advisor contract.
type advisorAdapter struct {
	inner advisor.Advisor
}

func (a *advisorAdapter) Review(ctx context.Context, req resolve.AdvisorReview) (*resolve.AdvisorOpinion, error) {
	opinion, err := a.inner.Review(ctx, advisor.Review{
		Query:      req.Query,
		Structured: req.Structured,
		GroupKey:   req.GroupKey,
		Resolution: req.Resolution,
		Confidence: req.Confidence,
		Providers:  req.Providers,
	})
	if err != nil || opinion == nil {
		return nil, err
	}
	return &resolve.AdvisorOpinion{
		Reasoning:  opinion.Reasoning,
		Sources:    opinion.Sources,
		Confidence: opinion.Confidence,
		Resolution: opinion.Resolution,
		Raw:        opinion.Raw,
	}, nil
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig supplies the engine configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEnv overrides environment lookups for the provider registry.
func WithEnv(getenv func(string) string) Option {
	return func(s *Service) {
		if getenv != nil {
			s.getenv = getenv
		}
	}
}

// Service implements the resolution engine behind Resolve.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	getenv func(string) string

	resolver *resolve.Resolver
	store    cache.Store
	redis    *cache.Redis

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting resolution service...")

	fetcher := fetch.New(
		fetch.WithTimeout(time.Duration(s.cfg.TransportTimeoutMS)*time.Millisecond),
		fetch.WithRetryPolicy(fetch.RetryPolicy{
			Retries:      s.cfg.Retries,
			InitialDelay: time.Duration(s.cfg.RetryInitialDelayMS) * time.Millisecond,
			Factor:       s.cfg.RetryFactor,
		}),
		fetch.WithBreakerPolicy(fetch.BreakerPolicy{
			FailureThreshold: s.cfg.BreakerFailureThreshold,
			Cooldown:         time.Duration(s.cfg.BreakerCooldownMS) * time.Millisecond,
		}),
	)

	registry := providers.New(providers.WithEnv(s.getenv))

	rssOpts := []providers.RSSOption{}
	if feeds := providers.FeedsFromEnv(s.getenv("SPORTS_RSS_FEEDS")); len(feeds) > 0 {
		rssOpts = append(rssOpts, providers.WithFeeds(feeds))
	}
	news := providers.NewRSSClient(rssOpts...)

	var adv resolve.Advisor
	if s.cfg.AdvisorBaseURL != "" {
		adv = &advisorAdapter{inner: advisor.NewHTTP(s.cfg.AdvisorBaseURL, s.getenv("ADVISOR_API_KEY"))}
	}

	resolverOpts := []resolve.Option{
		resolve.WithNewsSource(news),
		resolve.WithTimeout(time.Duration(s.cfg.ResolveTimeoutMS) * time.Millisecond),
	}
	if adv != nil {
		resolverOpts = append(resolverOpts, resolve.WithAdvisor(adv))
	}
	s.resolver = resolve.New(registry, fetcher, resolverOpts...)

	memory := cache.NewMemory(
		cache.WithMaxSize(s.cfg.CacheSize),
		cache.WithTTL(time.Duration(s.cfg.CacheTTLMS)*time.Millisecond),
	)
	if s.cfg.RedisAddr != "" {
		s.redis = cache.NewRedis(s.cfg.RedisAddr, time.Duration(s.cfg.CacheTTLMS)*time.Millisecond)
		s.store = cache.Tiered{Local: memory, Shared: s.redis}
		s.logger.Info(ctx, "resolution cache shared via redis", logger.String("addr", s.cfg.RedisAddr))
	} else {
		s.store = memory
	}

	s.started = true
	s.logger.Info(ctx, "resolution service started",
		logger.Int("cacheSize", s.cfg.CacheSize),
		logger.Int("resolveTimeoutMs", s.cfg.ResolveTimeoutMS),
	)
	return nil
}

// Stop releases service resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "resolution service stopped")
}

// Resolve answers one natural-language query, consulting the cache
// before running the pipeline.
func (s *Service) Resolve(ctx context.Context, query string) (model.ResolutionResult, error) {
	s.mu.RLock()
	resolver, store := s.resolver, s.store
	s.mu.RUnlock()

	if resolver == nil {
		if err := s.Start(ctx); err != nil {
			return model.ResolutionResult{}, err
		}
		s.mu.RLock()
		resolver, store = s.resolver, s.store
		s.mu.RUnlock()
	}

	key := cache.Key(query)
	if cached, ok := store.Get(ctx, key); ok {
		metrics.RecordCacheHit()
		if cached.Evidence.Metadata == nil {
			cached.Evidence.Metadata = map[string]any{}
		}
		cached.Evidence.Metadata["cached"] = true
		return *cached, nil
	}
	metrics.RecordCacheMiss()

	result, err := resolver.Resolve(ctx, query)
	if err != nil {
		return model.ResolutionResult{}, err
	}
	store.Set(ctx, key, &result)
	return result, nil
}
