package normalize_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mkhalili/arbiter/internal/domain/consensus"
	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/internal/domain/normalize"
)

func outcomeQuery() model.OutcomeQuery {
	return model.OutcomeQuery{
		Sport:        model.SportBasketball,
		Date:         "2025-01-15",
		Teams:        []string{"Lakers", "Suns"},
		QuestionType: model.QuestionDidResultHappen,
	}
}

func okEnvelope(provider string, tier int, payload any) model.ProviderEnvelope {
	return model.ProviderEnvelope{
		Provider:    provider,
		Tier:        tier,
		Weight:      model.TierWeight(tier),
		CollectedAt: time.Now(),
		Payload:     payload,
		Status:      model.EnvelopeOK,
	}
}

func TestNormalizeName(t *testing.T) {
	Convey("Name normalization strips to lowercase alphanumerics", t, func() {
		So(normalize.NormalizeName("Real Madrid C.F."), ShouldEqual, "realmadridcf")
		So(normalize.NormalizeName("  Lakers "), ShouldEqual, "lakers")
		So(normalize.NormalizeName("76ers"), ShouldEqual, "76ers")
	})

	Convey("Teams keys are order-independent", t, func() {
		a := normalize.TeamsKey([]string{"Lakers", "Suns"})
		b := normalize.TeamsKey([]string{"Suns", "Lakers"})
		So(a, ShouldEqual, b)
		So(a, ShouldEqual, "lakers|suns")
	})
}

func TestSportsDBAdapter(t *testing.T) {
	Convey("Given a TheSportsDB payload", t, func() {
		payload := map[string]any{
			"events": []any{
				map[string]any{
					"strHomeTeam":  "Lakers",
					"strAwayTeam":  "Suns",
					"intHomeScore": "112",
					"intAwayScore": "108",
					"dateEvent":    "2025-01-15",
					"strStatus":    "FT",
				},
				map[string]any{
					// Different fixture; filtered out by team match.
					"strHomeTeam":  "Celtics",
					"strAwayTeam":  "Knicks",
					"intHomeScore": "99",
					"intAwayScore": "98",
					"dateEvent":    "2025-01-15",
				},
			},
		}

		Convey("When normalized against the query", func() {
			facts := normalize.OutcomeFacts(okEnvelope("THESPORTSDB", 3, payload), outcomeQuery())

			Convey("Then only the matching fixture survives with a winner key", func() {
				So(facts, ShouldHaveLength, 1)
				So(facts[0].Winner, ShouldEqual, "Lakers")
				So(facts[0].CanonicalKey, ShouldEqual, "winner:lakers:lakers|suns:2025-01-15")
				So(*facts[0].HomeScore, ShouldEqual, 112)
				So(*facts[0].AwayScore, ShouldEqual, 108)
				So(facts[0].Status, ShouldEqual, "FT")
				So(facts[0].Reliability, ShouldEqual, 0.70)
			})
		})
	})
}

func TestAPISportsAdapter(t *testing.T) {
	Convey("Given an API-Sports payload with winner booleans", t, func() {
		payload := map[string]any{
			"response": []any{
				map[string]any{
					"fixture": map[string]any{
						"date":   "2025-01-15T20:00:00Z",
						"status": map[string]any{"long": "Match Finished"},
					},
					"teams": map[string]any{
						"home": map[string]any{"name": "Lakers", "winner": true},
						"away": map[string]any{"name": "Suns", "winner": false},
					},
					"goals": map[string]any{"home": float64(112), "away": float64(108)},
				},
			},
		}

		Convey("When normalized", func() {
			facts := normalize.OutcomeFacts(okEnvelope("API_SPORTS_BASKETBALL", 2, payload), outcomeQuery())

			Convey("Then the winner boolean is honored and the key matches", func() {
				So(facts, ShouldHaveLength, 1)
				So(facts[0].Winner, ShouldEqual, "Lakers")
				So(facts[0].CanonicalKey, ShouldEqual, "winner:lakers:lakers|suns:2025-01-15")
			})
		})
	})

	Convey("Given fulltime scores alongside goals", t, func() {
		payload := map[string]any{
			"response": []any{
				map[string]any{
					"fixture": map[string]any{"date": "2025-01-15T20:00:00Z"},
					"teams": map[string]any{
						"home": map[string]any{"name": "Lakers"},
						"away": map[string]any{"name": "Suns"},
					},
					"scores": map[string]any{
						"fulltime": map[string]any{"home": float64(112), "away": float64(108)},
					},
					"goals": map[string]any{"home": float64(50), "away": float64(40)},
				},
			},
		}

		Convey("Then fulltime is preferred over goals", func() {
			facts := normalize.OutcomeFacts(okEnvelope("API_SPORTS_BASKETBALL", 2, payload), outcomeQuery())
			So(facts, ShouldHaveLength, 1)
			So(*facts[0].HomeScore, ShouldEqual, 112)
		})
	})
}

func TestOddsAPIAdapter(t *testing.T) {
	Convey("Given an Odds API scores payload", t, func() {
		payload := []any{
			map[string]any{
				"home_team":     "Lakers",
				"away_team":     "Suns",
				"completed":     true,
				"commence_time": "2025-01-15T20:00:00Z",
				"scores": []any{
					map[string]any{"name": "Suns", "score": "108"},
					map[string]any{"name": "Lakers", "score": "112"},
				},
			},
		}

		Convey("When normalized", func() {
			facts := normalize.OutcomeFacts(okEnvelope("ODDS_API", 2, payload), outcomeQuery())

			Convey("Then scores align by name and completion maps to finished", func() {
				So(facts, ShouldHaveLength, 1)
				So(facts[0].Winner, ShouldEqual, "Lakers")
				So(facts[0].Status, ShouldEqual, "finished")
				So(facts[0].CanonicalKey, ShouldEqual, "winner:lakers:lakers|suns:2025-01-15")
			})
		})
	})
}

func TestRSSAdapter(t *testing.T) {
	Convey("Given RSS items", t, func() {
		payload := map[string]any{
			"items": []any{
				map[string]any{
					"title":     "Lakers beat Suns 112-108 in thriller",
					"link":      "https://example.com/lakers-suns",
					"published": "2025-01-16T02:00:00Z",
				},
				map[string]any{
					"title": "League announces schedule changes",
					"link":  "https://example.com/schedule",
				},
			},
		}

		Convey("When normalized", func() {
			facts := normalize.OutcomeFacts(okEnvelope("rss:example.com", 3, payload), outcomeQuery())

			Convey("Then only the result headline yields a news fact", func() {
				So(facts, ShouldHaveLength, 1)
				So(facts[0].Category, ShouldEqual, model.CategoryNews)
				So(facts[0].Winner, ShouldEqual, "Lakers")
				So(facts[0].Reliability, ShouldEqual, 0.60)
				So(facts[0].CanonicalKey, ShouldEqual, "winner:lakers:lakers|suns:2025-01-15")
			})
		})

		Convey("When only one configured team appears in the title", func() {
			solo := map[string]any{
				"items": []any{
					map[string]any{"title": "Lakers beat visitors comfortably"},
				},
			}
			facts := normalize.OutcomeFacts(okEnvelope("rss:example.com", 3, solo), outcomeQuery())

			Convey("Then the conservative heuristic drops it", func() {
				So(facts, ShouldBeEmpty)
			})
		})
	})
}

func TestFactGroupingRoundTrip(t *testing.T) {
	Convey("Facts built from synthetic payloads regroup into one group", t, func() {
		q := outcomeQuery()
		var facts []model.NormalizedFact

		sportsDB := map[string]any{
			"events": []any{map[string]any{
				"strHomeTeam": "Lakers", "strAwayTeam": "Suns",
				"intHomeScore": "112", "intAwayScore": "108",
				"dateEvent": "2025-01-15", "strStatus": "FT",
			}},
		}
		odds := []any{map[string]any{
			"home_team": "Lakers", "away_team": "Suns", "completed": true,
			"scores": []any{
				map[string]any{"name": "Lakers", "score": "112"},
				map[string]any{"name": "Suns", "score": "108"},
			},
		}}

		facts = append(facts, normalize.OutcomeFacts(okEnvelope("THESPORTSDB", 3, sportsDB), q)...)
		facts = append(facts, normalize.OutcomeFacts(okEnvelope("ODDS_API", 2, odds), q)...)

		result := consensus.Outcome(facts)
		So(result.Groups, ShouldHaveLength, 1)
		So(result.Groups[0].Facts, ShouldHaveLength, 2)
		So(result.Groups[0].Providers, ShouldResemble, []string{"ODDS_API", "THESPORTSDB"})
	})
}
