// Package normalize reduces heterogeneous provider payloads to
// comparable facts and statistics.
package normalize

import (
	"fmt"
	"sort"
	"strings"
)

// NormalizeName strips a name to its [a-z0-9]+ segments joined without
// separators: "Real Madrid C.F." -> "realmadridcf".
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TeamsKey builds the order-independent team component of a canonical
// key: sorted normalized names joined with "|".
func TeamsKey(teams []string) string {
	normalized := make([]string, 0, len(teams))
	for _, t := range teams {
		if n := NormalizeName(t); n != "" {
			normalized = append(normalized, n)
		}
	}
	sort.Strings(normalized)
	return strings.Join(normalized, "|")
}

// Canonical key constructors. A fact that fits none of these shapes
// carries no groupable claim and is discarded by the adapters.

func awardKey(award, player, teamsKey, date string) string {
	return fmt.Sprintf("award:%s:%s:%s:%s", NormalizeName(award), NormalizeName(player), teamsKey, date)
}

func winnerKey(winner, teamsKey, date string) string {
	return fmt.Sprintf("winner:%s:%s:%s", NormalizeName(winner), teamsKey, date)
}

func scoreKey(teamsKey string, home, away int, date string) string {
	return fmt.Sprintf("score:%s:%d-%d:%s", teamsKey, home, away, date)
}

// providerReliability is the per-provider reliability table consulted
// when building facts. Unknown providers default to 0.5; RSS sources
// sit in the 0.55-0.60 band.
var providerReliability = map[string]float64{
	"OFFICIAL":             0.95,
	"OPTA_STATS":           0.90,
	"STATSBOMB":            0.90,
	"SPORTSRADAR":          0.90,
	"API_SPORTS_SOCCER":    0.80,
	"API_SPORTS_BASKETBALL": 0.80,
	"API_FOOTBALL":         0.80,
	"ODDS_API":             0.75,
	"THESPORTSDB":          0.70,
	"FLASHSCORE":           0.65,
	"SOFASCORE":            0.65,
}

const (
	defaultReliability = 0.5
	rssReliability     = 0.60
)

// Reliability looks up a provider's reliability score.
func Reliability(provider string) float64 {
	if strings.HasPrefix(provider, "rss:") {
		return rssReliability
	}
	if r, ok := providerReliability[provider]; ok {
		return r
	}
	return defaultReliability
}
