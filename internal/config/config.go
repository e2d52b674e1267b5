// Package config defines engine configuration and its loading layers.
//
// Provider credentials and endpoints intentionally stay plain env
// vars (*_BASE_URL, *_API_KEY, SPORTS_RSS_FEEDS) read by the provider
// registry; this package carries the engine knobs only.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr serves Prometheus exposition when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// ResolveTimeoutMS bounds one whole resolution.
	ResolveTimeoutMS int `koanf:"resolve_timeout_ms"`

	// TransportTimeoutMS bounds a single provider call.
	TransportTimeoutMS int `koanf:"transport_timeout_ms"`

	// Retry policy for provider calls.
	Retries             int     `koanf:"retries"`
	RetryInitialDelayMS int     `koanf:"retry_initial_delay_ms"`
	RetryFactor         float64 `koanf:"retry_factor"`

	// Per-host circuit breaker policy.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold"`
	BreakerCooldownMS       int `koanf:"breaker_cooldown_ms"`

	// Resolution cache.
	CacheSize  int    `koanf:"cache_size"`
	CacheTTLMS int    `koanf:"cache_ttl_ms"`
	RedisAddr  string `koanf:"redis_addr"`

	// Optional LLM advisor endpoint; the ADVISOR_API_KEY env var
	// carries its credential.
	AdvisorBaseURL string `koanf:"advisor_base_url"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		ResolveTimeoutMS:        45_000,
		TransportTimeoutMS:      15_000,
		Retries:                 2,
		RetryInitialDelayMS:     300,
		RetryFactor:             2,
		BreakerFailureThreshold: 3,
		BreakerCooldownMS:       15_000,
		CacheSize:               10_000,
		CacheTTLMS:              600_000,
	}
}
