package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/mkhalili/arbiter/internal/adapters/fanout"
	"github.com/mkhalili/arbiter/internal/adapters/providers"
	"github.com/mkhalili/arbiter/internal/domain/consensus"
	"github.com/mkhalili/arbiter/internal/domain/evidence"
	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/internal/domain/normalize"
	"github.com/mkhalili/arbiter/pkg/metrics"
)

// resolveOutcome runs the outcome pipeline: fan-out, normalization,
// grouping, confidence, resolution mapping, and advisor merge.
func (r *Resolver) resolveOutcome(ctx context.Context, raw string, q model.OutcomeQuery, start time.Time) (model.ResolutionResult, error) {
	builder := evidence.NewBuilder(raw, "outcome", start).
		Meta("questionType", string(q.QuestionType)).
		Meta("teams", q.Teams)

	params := providers.Params{Date: q.Date}
	if len(q.Teams) > 0 {
		params.HomeTeam = q.Teams[0]
	}
	if len(q.Teams) > 1 {
		params.AwayTeam = q.Teams[1]
	}
	if q.Competition != "" {
		params.Competition = q.Competition
	}

	tasks, envelopes := r.buildTasks(r.registry.OutcomeProviders(), params, sportSkip(q.Sport))
	executor := fanout.New(fanout.WithLimit(outcomeFanoutLimit))
	envelopes = append(envelopes, executor.Collect(ctx, tasks)...)
	if r.news != nil {
		envelopes = append(envelopes, r.news.Fetch(ctx)...)
	}
	recordEnvelopeIssues(envelopes, builder)

	var facts []model.NormalizedFact
	for _, env := range envelopes {
		facts = append(facts, normalize.OutcomeFacts(env, q)...)
	}

	cons := consensus.Outcome(facts)
	acceptedKey := ""
	if cons.Accepted != nil {
		acceptedKey = cons.Accepted.Key
	}
	builder.Artifacts(envelopes).Facts(facts).Groups(cons.Groups, acceptedKey)

	if !cons.Corroborated() {
		builder.Error(fmt.Sprintf("insufficient consensus: accepted group has %d of %d required providers",
			acceptedProviders(cons), model.MinCorroboratingProviders))
		metrics.RecordResolution("outcome", model.InsufficientData)
		return model.ResolutionResult{
			Resolution: model.InsufficientData,
			Confidence: insufficientConsensusConfidence,
			Reasoning:  "fewer than three independent providers corroborate any single answer",
			Sources:    groupSources(cons.Accepted),
			Evidence:   builder.Finish(r.now()),
		}, nil
	}

	resolution, ok := deriveOutcomeResolution(q, *cons.Accepted)
	if !ok {
		builder.Error("accepted group carries neither winner nor award")
		metrics.RecordResolution("outcome", model.InsufficientData)
		return model.ResolutionResult{
			Resolution: model.InsufficientData,
			Confidence: insufficientConsensusConfidence,
			Reasoning:  "the corroborated evidence does not answer the question asked",
			Sources:    groupSources(cons.Accepted),
			Evidence:   builder.Finish(r.now()),
		}, nil
	}

	conf := r.scorer.Outcome(cons.Accepted, cons.Conflicts)
	result := model.ResolutionResult{
		Resolution: resolution,
		Confidence: conf.Score,
		Reasoning: fmt.Sprintf("%d providers corroborate %q; %d conflicting groups",
			len(cons.Accepted.Providers), cons.Accepted.Facts[0].Display, cons.Conflicts),
		Sources: groupSources(cons.Accepted),
	}
	builder.Meta("confidenceAdjustments", conf.Adjustments)
	builder.Summary(result.Reasoning)

	r.mergeAdvisor(ctx, AdvisorReview{
		Query:      raw,
		Structured: q,
		GroupKey:   cons.Accepted.Key,
		Resolution: result.Resolution,
		Confidence: result.Confidence,
		Providers:  cons.Accepted.Providers,
	}, &result, builder)

	metrics.RecordResolution("outcome", "resolved")
	result.Evidence = builder.Finish(r.now())
	return result, nil
}

// sportSkip drops providers for the other sport; general queries keep
// every provider.
func sportSkip(sport model.Sport) func(providers.Provider) bool {
	return func(p providers.Provider) bool {
		switch p.Key {
		case "API_SPORTS_SOCCER":
			return sport == model.SportBasketball
		case "API_SPORTS_BASKETBALL":
			return sport == model.SportSoccer
		default:
			return false
		}
	}
}

// deriveOutcomeResolution maps the accepted group onto the question.
func deriveOutcomeResolution(q model.OutcomeQuery, accepted model.EvidenceGroup) (string, bool) {
	winner := groupWinner(accepted)
	award, player := groupAward(accepted)

	switch q.QuestionType {
	case model.QuestionWhoWon:
		if winner != "" {
			return winner, true
		}
	case model.QuestionDidResultHappen:
		if winner != "" && len(q.Teams) > 0 {
			if normalize.NormalizeName(winner) == normalize.NormalizeName(q.Teams[0]) {
				return "yes", true
			}
			return "no", true
		}
	case model.QuestionScoreline:
		for _, f := range accepted.Facts {
			if f.HomeScore != nil && f.AwayScore != nil {
				return fmt.Sprintf("%s %d-%d %s", f.HomeTeam, *f.HomeScore, *f.AwayScore, f.AwayTeam), true
			}
		}
		if winner != "" {
			return winner, true
		}
	case model.QuestionPlayerAward:
		if award != "" && player != "" {
			return player, true
		}
	default:
		if winner != "" {
			return winner, true
		}
	}

	// Fall back to the winner for any question the group can still
	// answer; otherwise the evidence is insufficient.
	if winner != "" {
		return winner, true
	}
	if player != "" {
		return player, true
	}
	return "", false
}

func groupWinner(g model.EvidenceGroup) string {
	for _, f := range g.Facts {
		if f.Winner != "" {
			return f.Winner
		}
	}
	return ""
}

func groupAward(g model.EvidenceGroup) (award, player string) {
	for _, f := range g.Facts {
		if f.Category == model.CategoryAward && f.Award != "" && f.Player != "" {
			return f.Award, f.Player
		}
	}
	return "", ""
}

func groupSources(g *model.EvidenceGroup) []string {
	if g == nil {
		return nil
	}
	return unionSources(g.Providers, nil)
}

func acceptedProviders(cons consensus.OutcomeResult) int {
	if cons.Accepted == nil {
		return 0
	}
	return len(cons.Accepted.Providers)
}
