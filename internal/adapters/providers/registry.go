package providers

import (
	"os"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithEnv overrides environment lookups, used by tests and the
// synthetic feed harness.
func WithEnv(getenv func(string) string) Option {
	return func(r *Registry) {
		if getenv != nil {
			r.getenv = getenv
		}
	}
}

// Registry is the static provider table. Providers whose base URL env
// var is unset are "not configured" and yield skipped envelopes.
type Registry struct {
	outcome   []Provider
	statistic []Provider
	getenv    func(string) string
}

// New builds the registry with the built-in provider tables.
func New(opts ...Option) *Registry {
	r := &Registry{
		outcome:   outcomeTable(),
		statistic: statisticTable(),
		getenv:    os.Getenv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// outcomeTable lists the match-outcome providers.
func outcomeTable() []Provider {
	return []Provider{
		{
			Key: "THESPORTSDB", Name: "TheSportsDB",
			Tier: 3, Weight: model.TierWeight(3),
			BaseURLEnv: "THESPORTSDB_BASE_URL",
			APIKeyEnv:  "THESPORTSDB_API_KEY",
			Path:       "/events",
		},
		{
			Key: "API_SPORTS_SOCCER", Name: "API-Sports Soccer",
			Tier: 2, Weight: model.TierWeight(2),
			BaseURLEnv: "API_SPORTS_SOCCER_BASE_URL",
			APIKeyEnv:  "API_SPORTS_API_KEY",
			Path:       "/fixtures",
			BuildHeaders: func(apiKey string) map[string]string {
				if apiKey == "" {
					return nil
				}
				return map[string]string{"x-apisports-key": apiKey}
			},
		},
		{
			Key: "API_SPORTS_BASKETBALL", Name: "API-Sports Basketball",
			Tier: 2, Weight: model.TierWeight(2),
			BaseURLEnv: "API_SPORTS_BASKETBALL_BASE_URL",
			APIKeyEnv:  "API_SPORTS_API_KEY",
			Path:       "/games",
			BuildHeaders: func(apiKey string) map[string]string {
				if apiKey == "" {
					return nil
				}
				return map[string]string{"x-apisports-key": apiKey}
			},
		},
		{
			Key: "ODDS_API", Name: "The Odds API",
			Tier: 2, Weight: model.TierWeight(2),
			BaseURLEnv: "ODDS_API_BASE_URL",
			APIKeyEnv:  "ODDS_API_KEY",
			Path:       "/scores",
		},
	}
}

// statisticTable lists the match-statistic providers.
func statisticTable() []Provider {
	return []Provider{
		{
			Key: "OFFICIAL", Name: "Official League Feed",
			Tier: 1, Weight: model.TierWeight(1),
			BaseURLEnv: "OFFICIAL_BASE_URL",
			APIKeyEnv:  "OFFICIAL_API_KEY",
			Path:       "/statistics",
		},
		{
			Key: "OPTA_STATS", Name: "Opta",
			Tier: 1, Weight: model.TierWeight(1),
			BaseURLEnv: "OPTA_STATS_BASE_URL",
			APIKeyEnv:  "OPTA_STATS_API_KEY",
			Path:       "/stats",
		},
		{
			Key: "STATSBOMB", Name: "StatsBomb",
			Tier: 1, Weight: model.TierWeight(1),
			BaseURLEnv: "STATSBOMB_BASE_URL",
			APIKeyEnv:  "STATSBOMB_API_KEY",
			Path:       "/match-stats",
		},
		{
			Key: "SPORTSRADAR", Name: "Sportradar",
			Tier: 1, Weight: model.TierWeight(1),
			BaseURLEnv: "SPORTSRADAR_BASE_URL",
			APIKeyEnv:  "SPORTSRADAR_API_KEY",
			Path:       "/statistics",
		},
		{
			Key: "API_FOOTBALL", Name: "API-Football",
			Tier: 2, Weight: model.TierWeight(2),
			BaseURLEnv: "API_FOOTBALL_BASE_URL",
			APIKeyEnv:  "API_FOOTBALL_API_KEY",
			Path:       "/fixtures/statistics",
			BuildHeaders: func(apiKey string) map[string]string {
				if apiKey == "" {
					return nil
				}
				return map[string]string{"x-apisports-key": apiKey}
			},
		},
		{
			Key: "ODDS_API", Name: "The Odds API",
			Tier: 2, Weight: model.TierWeight(2),
			BaseURLEnv: "ODDS_API_BASE_URL",
			APIKeyEnv:  "ODDS_API_KEY",
			Path:       "/scores",
		},
		{
			Key: "FLASHSCORE", Name: "Flashscore",
			Tier: 3, Weight: model.TierWeight(3),
			BaseURLEnv: "FLASHSCORE_BASE_URL",
			Path:       "/match",
		},
		{
			Key: "SOFASCORE", Name: "Sofascore",
			Tier: 3, Weight: model.TierWeight(3),
			BaseURLEnv: "SOFASCORE_BASE_URL",
			Path:       "/event-statistics",
		},
		{
			Key: "THESPORTSDB", Name: "TheSportsDB",
			Tier: 4, Weight: model.TierWeight(4),
			BaseURLEnv: "THESPORTSDB_BASE_URL",
			APIKeyEnv:  "THESPORTSDB_API_KEY",
			Path:       "/lookupevent",
		},
	}
}

// OutcomeProviders returns the outcome table.
func (r *Registry) OutcomeProviders() []Provider {
	return r.outcome
}

// StatisticProviders returns the statistic table.
func (r *Registry) StatisticProviders() []Provider {
	return r.statistic
}

// BaseURL resolves a provider's endpoint; ok is false when the
// provider is not configured.
func (r *Registry) BaseURL(p Provider) (string, bool) {
	if p.BaseURLEnv == "" {
		return "", false
	}
	base := r.getenv(p.BaseURLEnv)
	return base, base != ""
}

// APIKey resolves a provider's credential; empty when none is set.
func (r *Registry) APIKey(p Provider) string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return r.getenv(p.APIKeyEnv)
}
