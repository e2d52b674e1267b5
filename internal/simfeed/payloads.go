// Package simfeed generates provider payloads in each supported
// dialect and serves them locally, so the full pipeline can run
// end-to-end without external credentials.
package simfeed

import (
	"fmt"
)

// Match is the synthetic fixture every payload describes.
type Match struct {
	Home      string
	Away      string
	HomeScore int
	AwayScore int
	Date      string // ISO date
}

// SportsDBPayload renders the match in TheSportsDB's events shape.
func SportsDBPayload(m Match) map[string]any {
	return map[string]any{
		"events": []any{
			map[string]any{
				"strHomeTeam":  m.Home,
				"strAwayTeam":  m.Away,
				"intHomeScore": fmt.Sprintf("%d", m.HomeScore),
				"intAwayScore": fmt.Sprintf("%d", m.AwayScore),
				"dateEvent":    m.Date,
				"strStatus":    "FT",
			},
		},
	}
}

// APISportsPayload renders the match in the API-Sports response shape.
func APISportsPayload(m Match) map[string]any {
	return map[string]any{
		"response": []any{
			map[string]any{
				"fixture": map[string]any{
					"date": m.Date + "T20:00:00Z",
					"status": map[string]any{
						"long": "Match Finished",
					},
				},
				"teams": map[string]any{
					"home": map[string]any{"name": m.Home, "winner": m.HomeScore > m.AwayScore},
					"away": map[string]any{"name": m.Away, "winner": m.AwayScore > m.HomeScore},
				},
				"goals": map[string]any{
					"home": float64(m.HomeScore),
					"away": float64(m.AwayScore),
				},
			},
		},
	}
}

// OddsAPIPayload renders the match in The Odds API scores shape.
func OddsAPIPayload(m Match) []any {
	return []any{
		map[string]any{
			"home_team":     m.Home,
			"away_team":     m.Away,
			"completed":     true,
			"commence_time": m.Date + "T20:00:00Z",
			"scores": []any{
				map[string]any{"name": m.Home, "score": fmt.Sprintf("%d", m.HomeScore)},
				map[string]any{"name": m.Away, "score": fmt.Sprintf("%d", m.AwayScore)},
			},
		},
	}
}

// Headline renders the match as an RSS-style result headline.
func Headline(m Match) string {
	winner, loser := m.Home, m.Away
	ws, ls := m.HomeScore, m.AwayScore
	if m.AwayScore > m.HomeScore {
		winner, loser = m.Away, m.Home
		ws, ls = m.AwayScore, m.HomeScore
	}
	return fmt.Sprintf("%s beat %s %d-%d", winner, loser, ws, ls)
}

// LabeledStatPayload renders a statistic in the label+value dialect
// used by the tier-1 providers.
func LabeledStatPayload(statType string, value float64) map[string]any {
	return map[string]any{
		"statistics": []any{
			map[string]any{
				"type":  statType,
				"value": value,
			},
		},
	}
}

// KeyedStatPayload renders a statistic as a primitive key/value pair.
func KeyedStatPayload(key string, value float64) map[string]any {
	return map[string]any{
		"data": []any{
			map[string]any{key: value},
		},
	}
}

// TextStatPayload renders a statistic inside free text.
func TextStatPayload(statType string, value float64) map[string]any {
	return map[string]any{
		"text": fmt.Sprintf("recorded %g %s in the match", value, statType),
	}
}
