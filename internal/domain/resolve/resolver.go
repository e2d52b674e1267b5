// Package resolve drives the resolution pipeline: classification,
// provider fan-out, reconciliation, confidence, and evidence assembly.
package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/mkhalili/arbiter/internal/adapters/fanout"
	"github.com/mkhalili/arbiter/internal/adapters/providers"
	"github.com/mkhalili/arbiter/internal/domain/classify"
	"github.com/mkhalili/arbiter/internal/domain/confidence"
	"github.com/mkhalili/arbiter/internal/domain/evidence"
	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/pkg/logger"
	"github.com/mkhalili/arbiter/pkg/metrics"
)

// Fixed confidence bands for degraded results.
const (
	classificationFailureConfidence = 0.25
	insufficientConsensusConfidence = 0.30
)

// Fan-out caps per pipeline.
const (
	outcomeFanoutLimit   = 3
	statisticFanoutLimit = 4
)

// Fetcher retrieves a JSON document; the fetch adapter satisfies it.
type Fetcher interface {
	JSON(ctx context.Context, url string, headers map[string]string) (any, error)
}

// NewsSource supplies tier-3 news envelopes; the RSS adapter
// satisfies it.
type NewsSource interface {
	Fetch(ctx context.Context) []model.ProviderEnvelope
}

// Advisor re-summarizes a deterministic resolution; it never
// overrides it.
type Advisor interface {
	Review(ctx context.Context, req AdvisorReview) (*AdvisorOpinion, error)
}

// AdvisorReview mirrors what the advisor endpoint receives.
type AdvisorReview struct {
	Query      string
	Structured any
	GroupKey   string
	Resolution string
	Confidence float64
	Providers  []string
}

// AdvisorOpinion mirrors what the advisor endpoint may return.
type AdvisorOpinion struct {
	Reasoning  string
	Sources    []string
	Confidence *float64
	Resolution string
	Raw        string
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithNewsSource attaches a news source for the outcome pipeline.
func WithNewsSource(s NewsSource) Option {
	return func(r *Resolver) { r.news = s }
}

// WithAdvisor attaches an optional advisor.
func WithAdvisor(a Advisor) Option {
	return func(r *Resolver) {
		if a != nil {
			r.advisor = a
		}
	}
}

// WithTimeout sets the per-request pipeline deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithClassifier replaces the default classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(r *Resolver) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithScorer replaces the default confidence scorer.
func WithScorer(s *confidence.Scorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scorer = s
		}
	}
}

const defaultResolveTimeout = 45 * time.Second

// Resolver orchestrates both pipelines.
type Resolver struct {
	registry   *providers.Registry
	fetcher    Fetcher
	news       NewsSource
	advisor    Advisor
	classifier *classify.Classifier
	scorer     *confidence.Scorer
	timeout    time.Duration
	now        func() time.Time
	logger     logger.Logger
}

// New creates a resolver over the given registry and fetcher.
func New(registry *providers.Registry, fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		registry:   registry,
		fetcher:    fetcher,
		advisor:    noopAdvisor{},
		classifier: classify.New(),
		scorer:     confidence.New(),
		timeout:    defaultResolveTimeout,
		now:        time.Now,
		logger:     logger.Get().Named("resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve answers one raw query. Upstream failures degrade the result;
// the returned error is non-nil only for internal invariant breaches.
func (r *Resolver) Resolve(ctx context.Context, raw string) (model.ResolutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.now()
	classified := r.classifier.Classify(raw)

	var result model.ResolutionResult
	var err error
	switch {
	case classified.Statistic != nil:
		result, err = r.resolveStatistic(ctx, raw, *classified.Statistic, start)
		metrics.ObservePipelineLatency("statistic", r.now().Sub(start).Seconds())
	case classified.Outcome != nil && !classificationFailed(*classified.Outcome):
		result, err = r.resolveOutcome(ctx, raw, *classified.Outcome, start)
		metrics.ObservePipelineLatency("outcome", r.now().Sub(start).Seconds())
	default:
		result = r.classificationFailure(raw, start)
	}
	if err != nil {
		return model.ResolutionResult{}, err
	}

	metrics.ObserveConfidence(result.Confidence)
	r.logger.Info(ctx, "resolution complete",
		logger.String("resolution", result.Resolution),
		logger.Float64("confidence", result.Confidence),
		logger.Int("sources", len(result.Sources)),
	)
	return result, nil
}

// classificationFailed reports that the outcome shape carries nothing
// actionable: no recognized question and no entities.
func classificationFailed(q model.OutcomeQuery) bool {
	return q.QuestionType == model.QuestionOther && len(q.Teams) == 0 && q.Player == ""
}

// classificationFailure is the degraded result when neither pipeline
// applies.
func (r *Resolver) classificationFailure(raw string, start time.Time) model.ResolutionResult {
	builder := evidence.NewBuilder(raw, "none", start).
		Error("classification failed: neither pipeline applies")
	metrics.RecordResolution("none", model.InsufficientData)
	return model.ResolutionResult{
		Resolution: model.InsufficientData,
		Confidence: classificationFailureConfidence,
		Reasoning:  "the query could not be classified as an outcome or statistic question",
		Evidence:   builder.Finish(r.now()),
	}
}

// mergeAdvisor applies the advisor policy: reasoning may be replaced,
// sources are unioned up to the cap, confidence is averaged, and a
// differing resolution is recorded as an error but never adopted.
func (r *Resolver) mergeAdvisor(ctx context.Context, review AdvisorReview, result *model.ResolutionResult, builder *evidence.Builder) {
	opinion, err := r.advisor.Review(ctx, review)
	if err != nil {
		// Advisor failures are silently omitted from the merge.
		r.logger.Debug(ctx, "advisor call failed", logger.Error(err))
		return
	}
	if opinion == nil {
		return
	}

	if opinion.Reasoning != "" {
		result.Reasoning = opinion.Reasoning
		builder.ModelSummary(opinion.Reasoning, opinion.Raw)
	}
	if len(opinion.Sources) > 0 {
		result.Sources = unionSources(result.Sources, opinion.Sources)
	}
	if opinion.Confidence != nil {
		result.Confidence = confidence.Merge(result.Confidence, *opinion.Confidence)
	}
	if opinion.Resolution != "" && opinion.Resolution != result.Resolution {
		builder.Error(fmt.Sprintf("advisor resolution %q differs from deterministic %q", opinion.Resolution, result.Resolution))
		metrics.RecordAdvisorMismatch()
	}
}

// unionSources merges two source lists, preserving order, dropping
// duplicates, and capping at the source limit.
func unionSources(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			if len(out) == model.MaxSources {
				return out
			}
		}
	}
	return out
}

// noopAdvisor is used when no advisor endpoint is configured.
type noopAdvisor struct{}

func (noopAdvisor) Review(context.Context, AdvisorReview) (*AdvisorOpinion, error) {
	return nil, nil
}

// buildTasks turns configured providers into fan-out tasks and
// unconfigured ones into skipped envelopes.
func (r *Resolver) buildTasks(table []providers.Provider, params providers.Params, skip func(providers.Provider) bool) ([]fanout.Task, []model.ProviderEnvelope) {
	var tasks []fanout.Task
	var skipped []model.ProviderEnvelope

	for _, p := range table {
		if skip != nil && skip(p) {
			continue
		}
		base, ok := r.registry.BaseURL(p)
		if !ok {
			skipped = append(skipped, providers.SkippedEnvelope(p, "provider not configured: "+p.BaseURLEnv+" unset", r.now()))
			metrics.RecordProviderRequest(p.Key, string(model.EnvelopeSkipped))
			continue
		}

		url := p.URL(base, params)
		headers := p.Headers(r.registry.APIKey(p))
		tasks = append(tasks, fanout.Task{
			Provider: p.Key,
			Tier:     p.Tier,
			Weight:   p.Weight,
			Run: func(ctx context.Context) (any, error) {
				return r.fetcher.JSON(ctx, url, headers)
			},
		})
	}
	return tasks, skipped
}

// recordEnvelopeIssues folds skip and failure lines into the evidence.
func recordEnvelopeIssues(envelopes []model.ProviderEnvelope, builder *evidence.Builder) {
	for _, env := range envelopes {
		switch env.Status {
		case model.EnvelopeSkipped:
			builder.Warn(fmt.Sprintf("%s skipped: %s", env.Provider, env.Reason))
		case model.EnvelopeFailed:
			builder.Error(fmt.Sprintf("%s failed: %s", env.Provider, env.Reason))
		}
	}
}
