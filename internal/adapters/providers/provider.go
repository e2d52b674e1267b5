// Package providers declares the data-provider table: tiers, weights,
// URL composition, and auth for every upstream the engine fans out to.
package providers

import (
	"net/url"
	"strings"
	"time"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// Params is the shared query-string parameter set appended to every
// provider path. Absent fields are omitted from the encoded string.
type Params struct {
	Statistic   string
	MatchID     string
	HomeTeam    string
	AwayTeam    string
	Date        string
	Competition string
	Team        string
	Player      string
	Period      string
}

// encode builds the shared query string in a fixed field order.
func (p Params) encode() string {
	var pairs []string
	add := func(key, val string) {
		if val != "" {
			pairs = append(pairs, key+"="+url.QueryEscape(val))
		}
	}
	add("statistic", p.Statistic)
	add("matchId", p.MatchID)
	add("homeTeam", p.HomeTeam)
	add("awayTeam", p.AwayTeam)
	add("date", p.Date)
	add("competition", p.Competition)
	add("team", p.Team)
	add("player", p.Player)
	add("period", p.Period)
	return strings.Join(pairs, "&")
}

// Provider is one row of the registry table.
type Provider struct {
	Key        string
	Name       string
	Tier       int
	Weight     float64
	BaseURLEnv string
	APIKeyEnv  string
	Path       string

	// ComposeURL overrides the default base+path+query composition.
	ComposeURL func(base string, p Params) string

	// BuildHeaders overrides the default bearer auth.
	BuildHeaders func(apiKey string) map[string]string
}

// URL composes the request URL for the given base and parameters.
func (p Provider) URL(base string, params Params) string {
	if p.ComposeURL != nil {
		return p.ComposeURL(base, params)
	}
	full := strings.TrimRight(base, "/") + p.Path
	if q := params.encode(); q != "" {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + q
	}
	return full
}

// Headers builds the request headers for the provider. Default auth
// adds a bearer token when an API key exists.
func (p Provider) Headers(apiKey string) map[string]string {
	if p.BuildHeaders != nil {
		return p.BuildHeaders(apiKey)
	}
	if apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

// SkippedEnvelope is what an unconfigured provider yields instead of
// a request.
func SkippedEnvelope(p Provider, reason string, at time.Time) model.ProviderEnvelope {
	return model.ProviderEnvelope{
		Provider:    p.Key,
		Tier:        p.Tier,
		Weight:      p.Weight,
		CollectedAt: at,
		Status:      model.EnvelopeSkipped,
		Reason:      reason,
	}
}
