package normalize_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/internal/domain/normalize"
)

func statisticQuery() model.StatisticQuery {
	return model.StatisticQuery{
		QueryType:     model.StatQueryMatch,
		StatisticType: model.StatTotalCards,
		Aggregation:   model.AggregateTotal,
		Period:        model.PeriodFullTime,
	}
}

func TestStatisticWalker(t *testing.T) {
	Convey("Given the statistic walker", t, func() {
		q := statisticQuery()
		env := func(payload any) model.ProviderEnvelope {
			return model.ProviderEnvelope{
				Provider:    "OPTA_STATS",
				Tier:        1,
				Weight:      model.TierWeight(1),
				CollectedAt: time.Now(),
				Payload:     payload,
				Status:      model.EnvelopeOK,
			}
		}

		Convey("A statistics sub-array with type and value fields", func() {
			payload := map[string]any{
				"statistics": []any{
					map[string]any{"type": "total_cards", "value": float64(4)},
					map[string]any{"type": "corners", "value": float64(11)},
				},
			}
			stats := normalize.StatisticObservations(env(payload), q)

			Convey("yields one observation per labeled row", func() {
				So(stats, ShouldHaveLength, 2)
				So(stats[0].Type, ShouldEqual, model.StatTotalCards)
				So(stats[0].Value, ShouldEqual, 4)
				So(stats[0].Unit, ShouldEqual, model.UnitCount)
				So(stats[1].Type, ShouldEqual, model.StatCorners)
			})
		})

		Convey("Primitive key/value pairs matching the alias table", func() {
			payload := map[string]any{
				"data": []any{
					map[string]any{"team": "Arsenal", "yellow_cards": float64(3), "red_cards": float64(1)},
				},
			}
			stats := normalize.StatisticObservations(env(payload), q)

			Convey("yield typed observations with team attribution", func() {
				So(stats, ShouldHaveLength, 2)
				types := map[model.StatisticType]float64{}
				for _, s := range stats {
					types[s.Type] = s.Value
					So(s.Team, ShouldEqual, "Arsenal")
				}
				So(types[model.StatYellowCards], ShouldEqual, 3)
				So(types[model.StatRedCards], ShouldEqual, 1)
			})
		})

		Convey("Embedded free text", func() {
			payload := map[string]any{"text": "there were 9 cards shown in total"}
			stats := normalize.StatisticObservations(env(payload), q)

			Convey("yields the first numeric token typed as the query statistic", func() {
				So(stats, ShouldHaveLength, 1)
				So(stats[0].Type, ShouldEqual, model.StatTotalCards)
				So(stats[0].Value, ShouldEqual, 9)
			})
		})

		Convey("A bare numeric string", func() {
			stats := normalize.StatisticObservations(env("4 cards"), q)

			Convey("yields a fallback-typed observation", func() {
				So(stats, ShouldHaveLength, 1)
				So(stats[0].Value, ShouldEqual, 4)
			})
		})

		Convey("Percentage statistics", func() {
			possession := model.StatisticQuery{
				StatisticType: model.StatPossession,
				Aggregation:   model.AggregateTotal,
				Period:        model.PeriodFullTime,
			}
			payload := map[string]any{
				"statistics": []any{
					map[string]any{"type": "possession", "value": "58%"},
				},
			}
			stats := normalize.StatisticObservations(env(payload), possession)

			Convey("carry the percentage unit and strip the sign", func() {
				So(stats, ShouldHaveLength, 1)
				So(stats[0].Unit, ShouldEqual, model.UnitPercentage)
				So(stats[0].Value, ShouldEqual, 58)
			})
		})

		Convey("Nested objects with no direct hits", func() {
			payload := map[string]any{
				"match": map[string]any{
					"summary": map[string]any{
						"cards": float64(5),
					},
				},
			}
			stats := normalize.StatisticObservations(env(payload), q)

			Convey("are reached by recursion", func() {
				So(stats, ShouldHaveLength, 1)
				So(stats[0].Type, ShouldEqual, model.StatTotalCards)
				So(stats[0].Value, ShouldEqual, 5)
			})
		})

		Convey("Failed envelopes", func() {
			failed := model.ProviderEnvelope{Provider: "OPTA_STATS", Status: model.EnvelopeFailed}
			So(normalize.StatisticObservations(failed, q), ShouldBeEmpty)
		})
	})
}
