package resolve_test

import (
	"context"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mkhalili/arbiter/internal/adapters/fetch"
	"github.com/mkhalili/arbiter/internal/adapters/providers"
	"github.com/mkhalili/arbiter/internal/domain/classify"
	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/internal/domain/resolve"
	"github.com/mkhalili/arbiter/internal/simfeed"
)

// fakeNews serves canned RSS envelopes.
type fakeNews struct {
	envelopes []model.ProviderEnvelope
}

func (f *fakeNews) Fetch(context.Context) []model.ProviderEnvelope {
	return f.envelopes
}

// fakeAdvisor returns a fixed opinion.
type fakeAdvisor struct {
	opinion *resolve.AdvisorOpinion
	err     error
}

func (f *fakeAdvisor) Review(context.Context, resolve.AdvisorReview) (*resolve.AdvisorOpinion, error) {
	return f.opinion, f.err
}

func testClassifier() *classify.Classifier {
	return classify.New(classify.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
}

func newsEnvelope(match simfeed.Match) model.ProviderEnvelope {
	return model.ProviderEnvelope{
		Provider:    "rss:news.example",
		Tier:        3,
		Weight:      model.TierWeight(3),
		CollectedAt: time.Now(),
		Status:      model.EnvelopeOK,
		Payload: map[string]any{
			"items": []any{
				map[string]any{
					"title":     simfeed.Headline(match),
					"link":      "https://news.example/result",
					"published": "2025-01-16T02:00:00Z",
				},
			},
		},
	}
}

func envFunc(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func lakersMatch() simfeed.Match {
	return simfeed.Match{
		Home: "Lakers", Away: "Suns",
		HomeScore: 112, AwayScore: 108,
		Date: "2025-01-15",
	}
}

func TestOutcomeAgreement(t *testing.T) {
	Convey("Given four providers reporting the same result", t, func() {
		feed := simfeed.NewServer(lakersMatch(), "", nil)
		base, err := feed.Start()
		So(err, ShouldBeNil)
		defer feed.Close()

		env := map[string]string{
			"THESPORTSDB_BASE_URL":           base,
			"API_SPORTS_BASKETBALL_BASE_URL": base,
			"ODDS_API_BASE_URL":              base,
		}
		registry := providers.New(providers.WithEnv(envFunc(env)))
		resolver := resolve.New(registry, fetch.New(),
			resolve.WithClassifier(testClassifier()),
			resolve.WithNewsSource(&fakeNews{envelopes: []model.ProviderEnvelope{newsEnvelope(lakersMatch())}}),
		)

		Convey("When the did-they-win query resolves", func() {
			result, err := resolver.Resolve(context.Background(), "Did Lakers beat Suns on 2025-01-15?")
			So(err, ShouldBeNil)

			Convey("Then the resolution is yes with high confidence", func() {
				So(result.Resolution, ShouldEqual, "yes")
				So(result.Confidence, ShouldBeGreaterThanOrEqualTo, 0.75)
			})

			Convey("And the sources contain all four providers", func() {
				So(result.Sources, ShouldContain, "THESPORTSDB")
				So(result.Sources, ShouldContain, "API_SPORTS_BASKETBALL")
				So(result.Sources, ShouldContain, "ODDS_API")
				So(result.Sources, ShouldContain, "rss:news.example")
				So(len(result.Sources), ShouldBeLessThanOrEqualTo, model.MaxSources)
			})

			Convey("And the evidence records the accepted group", func() {
				So(result.Evidence.Data.AcceptedGroupKey, ShouldNotBeEmpty)
				So(result.Evidence.Data.Groups, ShouldNotBeEmpty)
				So(result.Evidence.Data.NormalizedFacts, ShouldNotBeEmpty)
			})
		})

		Convey("When the who-won query resolves", func() {
			result, err := resolver.Resolve(context.Background(), "Who won Lakers vs Suns on 2025-01-15?")
			So(err, ShouldBeNil)
			So(result.Resolution, ShouldEqual, "Lakers")
		})
	})
}

func TestInsufficientProviders(t *testing.T) {
	Convey("Given only two configured providers", t, func() {
		feed := simfeed.NewServer(lakersMatch(), "", nil)
		base, err := feed.Start()
		So(err, ShouldBeNil)
		defer feed.Close()

		env := map[string]string{
			"THESPORTSDB_BASE_URL": base,
			"ODDS_API_BASE_URL":    base,
		}
		registry := providers.New(providers.WithEnv(envFunc(env)))
		resolver := resolve.New(registry, fetch.New(), resolve.WithClassifier(testClassifier()))

		Convey("When the query resolves", func() {
			result, err := resolver.Resolve(context.Background(), "Did Lakers beat Suns on 2025-01-15?")
			So(err, ShouldBeNil)

			Convey("Then the result degrades to insufficient_data at 0.30", func() {
				So(result.Resolution, ShouldEqual, model.InsufficientData)
				So(result.Confidence, ShouldAlmostEqual, 0.30, 1e-9)
			})

			Convey("And unconfigured providers are recorded as warnings", func() {
				So(result.Evidence.Warnings, ShouldNotBeEmpty)
			})
		})
	})
}

func TestThresholdResolution(t *testing.T) {
	statValues := func(v float64) map[string]float64 {
		return map[string]float64{
			"OFFICIAL":     v,
			"OPTA_STATS":   v,
			"STATSBOMB":    v,
			"API_FOOTBALL": v,
			"FLASHSCORE":   v,
			"SOFASCORE":    v,
		}
	}
	statEnv := func(base string) map[string]string {
		return map[string]string{
			"OFFICIAL_BASE_URL":     base,
			"OPTA_STATS_BASE_URL":   base,
			"STATSBOMB_BASE_URL":    base,
			"API_FOOTBALL_BASE_URL": base,
			"FLASHSCORE_BASE_URL":   base,
			"SOFASCORE_BASE_URL":    base,
		}
	}

	Convey("Given providers agreeing on nine total cards", t, func() {
		feed := simfeed.NewServer(simfeed.Match{}, "total_cards", statValues(9))
		base, err := feed.Start()
		So(err, ShouldBeNil)
		defer feed.Close()

		registry := providers.New(providers.WithEnv(envFunc(statEnv(base))))
		resolver := resolve.New(registry, fetch.New(), resolve.WithClassifier(testClassifier()))

		Convey("When the over-8 threshold query resolves", func() {
			result, err := resolver.Resolve(context.Background(), "Over 8 total cards in Real Madrid vs Barcelona 2024-10-26")
			So(err, ShouldBeNil)

			Convey("Then the comparison yields yes", func() {
				So(result.Resolution, ShouldEqual, "yes")
				So(result.Evidence.Data.Statistics, ShouldNotBeNil)
				So(result.Evidence.Data.Statistics.Consensus.Agreed, ShouldBeTrue)
				So(*result.Evidence.Data.Statistics.Consensus.AgreedValue, ShouldEqual, 9)
			})
		})
	})

	Convey("Given providers agreeing on seven total cards", t, func() {
		feed := simfeed.NewServer(simfeed.Match{}, "total_cards", statValues(7))
		base, err := feed.Start()
		So(err, ShouldBeNil)
		defer feed.Close()

		registry := providers.New(providers.WithEnv(envFunc(statEnv(base))))
		resolver := resolve.New(registry, fetch.New(), resolve.WithClassifier(testClassifier()))

		Convey("When the over-8 threshold query resolves", func() {
			result, err := resolver.Resolve(context.Background(), "Over 8 total cards in Real Madrid vs Barcelona 2024-10-26")
			So(err, ShouldBeNil)
			So(result.Resolution, ShouldEqual, "no")
		})
	})
}

func TestNotResolvableYet(t *testing.T) {
	Convey("Given a statistic query about a future event", t, func() {
		registry := providers.New(providers.WithEnv(envFunc(nil)))
		resolver := resolve.New(registry, fetch.New(), resolve.WithClassifier(testClassifier()))

		Convey("When resolved", func() {
			result, err := resolver.Resolve(context.Background(), "Total corners in Arsenal vs Chelsea 2025-12-24")
			So(err, ShouldBeNil)

			Convey("Then it degrades without any fan-out", func() {
				So(result.Resolution, ShouldEqual, model.InsufficientData)
				So(result.Evidence.Data.AgentArtifacts, ShouldBeEmpty)
			})
		})
	})
}

func TestClassificationFailure(t *testing.T) {
	Convey("Given a query neither pipeline can take", t, func() {
		registry := providers.New(providers.WithEnv(envFunc(nil)))
		resolver := resolve.New(registry, fetch.New(), resolve.WithClassifier(testClassifier()))

		Convey("When resolved", func() {
			result, err := resolver.Resolve(context.Background(), "what is the meaning of life")
			So(err, ShouldBeNil)
			So(result.Resolution, ShouldEqual, model.InsufficientData)
			So(result.Confidence, ShouldAlmostEqual, 0.25, 1e-9)
		})
	})
}

func TestAdvisorPolicy(t *testing.T) {
	Convey("Given an advisor that disagrees with the deterministic answer", t, func() {
		feed := simfeed.NewServer(lakersMatch(), "", nil)
		base, err := feed.Start()
		So(err, ShouldBeNil)
		defer feed.Close()

		env := map[string]string{
			"THESPORTSDB_BASE_URL":           base,
			"API_SPORTS_BASKETBALL_BASE_URL": base,
			"ODDS_API_BASE_URL":              base,
		}
		registry := providers.New(providers.WithEnv(envFunc(env)))

		advisorConfidence := 0.9
		mismatching := &fakeAdvisor{opinion: &resolve.AdvisorOpinion{
			Reasoning:  "the advisor tells a different story",
			Confidence: &advisorConfidence,
			Resolution: "no",
			Sources:    []string{"advisor:model"},
		}}

		resolver := resolve.New(registry, fetch.New(),
			resolve.WithClassifier(testClassifier()),
			resolve.WithAdvisor(mismatching),
		)

		Convey("When the query resolves", func() {
			result, err := resolver.Resolve(context.Background(), "Did Lakers beat Suns on 2025-01-15?")
			So(err, ShouldBeNil)

			Convey("Then the deterministic resolution is never overridden", func() {
				So(result.Resolution, ShouldEqual, "yes")
			})

			Convey("And the mismatch is recorded in the evidence errors", func() {
				found := false
				for _, line := range result.Evidence.Errors {
					if strings.Contains(line, "advisor") && strings.Contains(line, "differs") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})

			Convey("And reasoning, sources, and confidence merge", func() {
				So(result.Reasoning, ShouldEqual, "the advisor tells a different story")
				So(result.Sources, ShouldContain, "advisor:model")
			})
		})

		Convey("A failing advisor is silently omitted", func() {
			failing := &fakeAdvisor{err: context.DeadlineExceeded}
			resolver := resolve.New(registry, fetch.New(),
				resolve.WithClassifier(testClassifier()),
				resolve.WithAdvisor(failing),
			)
			result, err := resolver.Resolve(context.Background(), "Did Lakers beat Suns on 2025-01-15?")
			So(err, ShouldBeNil)
			So(result.Resolution, ShouldEqual, "yes")
		})
	})
}
