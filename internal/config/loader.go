package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ARBITER_CONFIG is set
//  3. env (prefix ARBITER_)
//
// DEBUG=true is honored as a shorthand for log_level=debug.
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ARBITER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: ARBITER_RESOLVE_TIMEOUT_MS, ... mapped
	// to the flat koanf keys, underscores preserved.
	envProvider := env.Provider("ARBITER_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "arbiter_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if strings.EqualFold(os.Getenv("DEBUG"), "true") {
		cfg.LogLevel = "debug"
	}

	if cfg.ResolveTimeoutMS <= 0 || cfg.TransportTimeoutMS <= 0 {
		return nil, fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if cfg.BreakerFailureThreshold <= 0 || cfg.BreakerCooldownMS <= 0 {
		return nil, fmt.Errorf("%w: breaker policy must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
