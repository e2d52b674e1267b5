package resolve

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mkhalili/arbiter/internal/adapters/fanout"
	"github.com/mkhalili/arbiter/internal/adapters/providers"
	"github.com/mkhalili/arbiter/internal/domain/consensus"
	"github.com/mkhalili/arbiter/internal/domain/evidence"
	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/internal/domain/normalize"
	"github.com/mkhalili/arbiter/internal/domain/validate"
	"github.com/mkhalili/arbiter/pkg/metrics"
)

// resolveStatistic runs the statistic pipeline: fan-out, walker
// normalization, validation, agreement, confidence, and threshold or
// value resolution.
func (r *Resolver) resolveStatistic(ctx context.Context, raw string, q model.StatisticQuery, start time.Time) (model.ResolutionResult, error) {
	builder := evidence.NewBuilder(raw, "statistic", start).
		Meta("statisticType", string(q.StatisticType)).
		Meta("queryType", string(q.QueryType))

	if !q.CanResolveNow {
		builder.Error("event not resolvable yet: end time unknown or too recent")
		metrics.RecordResolution("statistic", model.InsufficientData)
		return model.ResolutionResult{
			Resolution: model.InsufficientData,
			Confidence: classificationFailureConfidence,
			Reasoning:  "the event has not finished long enough ago to be resolvable",
			Evidence:   builder.Finish(r.now()),
		}, nil
	}

	tasks, envelopes := r.buildTasks(r.registry.StatisticProviders(), statisticParams(q), nil)
	executor := fanout.New(fanout.WithLimit(statisticFanoutLimit))
	envelopes = append(envelopes, executor.Collect(ctx, tasks)...)
	recordEnvelopeIssues(envelopes, builder)

	var stats []model.NormalizedStatistic
	for _, env := range envelopes {
		stats = append(stats, normalize.StatisticObservations(env, q)...)
	}

	validation := validate.Check(stats)
	usable := validate.Filter(stats, validation)
	cons := consensus.Statistic(usable, q)
	conf := r.scorer.Statistic(cons, validation, allSources(usable, q))

	statEvidence := &model.StatisticEvidence{
		Providers:            envelopeProviders(envelopes),
		NormalizedStatistics: stats,
		Validation:           validation,
		Consensus:            cons,
		Confidence:           conf,
		Warnings:             validation.Warnings,
	}
	builder.Artifacts(envelopes).Statistics(statEvidence)

	if !cons.Agreed {
		builder.Error("statistic consensus rejected")
		metrics.RecordResolution("statistic", model.InsufficientData)
		return model.ResolutionResult{
			Resolution: model.InsufficientData,
			Confidence: insufficientConsensusConfidence,
			Reasoning:  "providers do not agree on the statistic value",
			Sources:    unionSources(cons.SupportingSources, nil),
			Evidence:   builder.Finish(r.now()),
		}, nil
	}

	resolution := statisticResolution(q, cons)
	result := model.ResolutionResult{
		Resolution: resolution,
		Confidence: conf.Score,
		Reasoning: fmt.Sprintf("%d sources agree on %s = %s (variance %.3f)",
			cons.AgreementCount, q.StatisticType, formatValue(*cons.AgreedValue, cons.Unit), cons.Variance),
		Sources: unionSources(cons.SupportingSources, nil),
	}
	builder.Summary(result.Reasoning)

	r.mergeAdvisor(ctx, AdvisorReview{
		Query:      raw,
		Structured: q,
		Resolution: result.Resolution,
		Confidence: result.Confidence,
		Providers:  cons.SupportingSources,
	}, &result, builder)

	metrics.RecordResolution("statistic", "resolved")
	result.Evidence = builder.Finish(r.now())
	return result, nil
}

// statisticParams maps the structured query onto the shared provider
// query string.
func statisticParams(q model.StatisticQuery) providers.Params {
	params := providers.Params{
		Statistic: string(q.StatisticType),
		Team:      q.Entities.Team,
		Player:    q.Entities.Player,
		Period:    string(q.Period),
	}
	if m := q.Entities.Match; m != nil {
		params.MatchID = m.ID
		params.HomeTeam = m.Home
		params.AwayTeam = m.Away
		params.Date = m.Date
		params.Competition = m.Competition
	}
	return params
}

// statisticResolution evaluates the threshold comparison or renders
// the agreed value.
func statisticResolution(q model.StatisticQuery, cons model.StatisticConsensus) string {
	if q.QueryType == model.StatQueryThreshold && q.Threshold != nil {
		if q.Comparator.Evaluate(*cons.AgreedValue, *q.Threshold) {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprintf("%s:%s", q.StatisticType, formatValue(*cons.AgreedValue, cons.Unit))
}

func formatValue(v float64, unit model.Unit) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if unit == model.UnitPercentage {
		s += "%"
	}
	return s
}

// allSources flattens the sources of the observations that match the
// query's statistic type.
func allSources(stats []model.NormalizedStatistic, q model.StatisticQuery) []model.StatisticSource {
	var sources []model.StatisticSource
	for _, s := range stats {
		if s.Type != q.StatisticType {
			continue
		}
		sources = append(sources, s.Sources...)
	}
	return sources
}

func envelopeProviders(envelopes []model.ProviderEnvelope) []string {
	names := make([]string, 0, len(envelopes))
	for _, env := range envelopes {
		names = append(names, env.Provider)
	}
	return names
}
