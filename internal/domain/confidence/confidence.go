// Package confidence computes calibrated confidence scores with an
// explicit adjustment trail for the audit log.
package confidence

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// Outcome-path bands and adjustment weights.
const (
	baseFewProviders   = 0.3
	baseThreeProviders = 0.6
	baseFourProviders  = 0.75
	baseFiveProviders  = 0.9

	conflictPenaltyStep = 0.1
	conflictPenaltyCap  = 0.25

	reliabilityPivot  = 0.7
	reliabilityWeight = 0.15

	freshnessWindow        = 72 * time.Hour
	freshnessAllBonus      = 0.05
	freshnessMajorityBonus = 0.02
)

// Statistic-path component weights.
const (
	weightStatsProvider = 0.40
	weightTier1         = 0.25
	weightAgreement     = 0.15
	weightBettingalign  = 0.10
	weightLowVariance   = 0.05
	weightFreshness     = 0.05

	highVariancePenalty   = 0.8
	manyOutliersPenalty   = 0.9
	unusualValuePenalty   = 0.95
	highVarianceThreshold = 2
	manyOutliersThreshold = 2
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithClock overrides the time source used for freshness.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// Scorer computes confidence for both pipeline paths.
type Scorer struct {
	now func() time.Time
}

// New creates a Scorer with configuration options.
func New(opts ...Option) *Scorer {
	s := &Scorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome scores the outcome path from the accepted group and the
// number of competing groups.
func (s *Scorer) Outcome(accepted *model.EvidenceGroup, conflicts int) model.ConfidenceReport {
	report := model.ConfidenceReport{}

	providerCount := 0
	if accepted != nil {
		providerCount = len(accepted.Providers)
	}
	base := baseFewProviders
	switch {
	case providerCount >= 5:
		base = baseFiveProviders
	case providerCount == 4:
		base = baseFourProviders
	case providerCount == 3:
		base = baseThreeProviders
	}
	score := base
	report.Adjustments = append(report.Adjustments, model.Adjustment{
		Reason: fmt.Sprintf("base for %d corroborating providers", providerCount),
		Delta:  base, Multiplier: 1,
	})

	if conflicts > 0 {
		penalty := math.Min(conflictPenaltyCap, float64(conflicts)*conflictPenaltyStep)
		score -= penalty
		report.Adjustments = append(report.Adjustments, model.Adjustment{
			Reason: fmt.Sprintf("%d conflicting groups", conflicts),
			Delta:  -penalty, Multiplier: 1,
		})
	}

	if accepted != nil {
		reliabilityAdj := (accepted.ReliabilityAverage - reliabilityPivot) * reliabilityWeight
		score += reliabilityAdj
		report.Adjustments = append(report.Adjustments, model.Adjustment{
			Reason: fmt.Sprintf("average reliability %.2f", accepted.ReliabilityAverage),
			Delta:  reliabilityAdj, Multiplier: 1,
		})

		if bonus, reason := s.freshnessBonus(accepted.Facts); bonus > 0 {
			score += bonus
			report.Adjustments = append(report.Adjustments, model.Adjustment{
				Reason: reason, Delta: bonus, Multiplier: 1,
			})
		}
	}

	report.Score = clamp(score)
	return report
}

// freshnessBonus rewards groups whose facts were all, or mostly,
// reported inside the freshness window.
func (s *Scorer) freshnessBonus(facts []model.NormalizedFact) (float64, string) {
	if len(facts) == 0 {
		return 0, ""
	}
	now := s.now()
	fresh := 0
	for _, f := range facts {
		if f.EndTimestamp != nil && now.Sub(*f.EndTimestamp) <= freshnessWindow {
			fresh++
		}
	}
	switch {
	case fresh == len(facts):
		return freshnessAllBonus, "all facts within freshness window"
	case fresh*2 > len(facts):
		return freshnessMajorityBonus, "majority of facts within freshness window"
	default:
		return 0, ""
	}
}

// Statistic scores the statistic path as a weighted sum with
// multiplicative penalties, each recorded with its reason.
func (s *Scorer) Statistic(cons model.StatisticConsensus, validation model.ValidationReport, sources []model.StatisticSource) model.ConfidenceReport {
	sourceCount := len(sources)
	report := model.ConfidenceReport{}
	tol := model.Tolerance(cons.Unit)

	add := func(reason string, delta float64) {
		report.Adjustments = append(report.Adjustments, model.Adjustment{
			Reason: reason, Delta: delta, Multiplier: 1,
		})
	}

	var score float64
	if cons.StatsProviderCount >= 1 {
		score += weightStatsProvider
		add("stats provider agreement", weightStatsProvider)
	}
	if cons.Tier1Count >= 1 {
		score += weightTier1
		add("tier-1 agreement", weightTier1)
	}

	denominator := float64(max(3, sourceCount))
	agreement := math.Min(1, float64(cons.AgreementCount)/denominator) * weightAgreement
	score += agreement
	add(fmt.Sprintf("%d of %d sources agree", cons.AgreementCount, sourceCount), agreement)

	if cons.BettingMarketAlignment {
		score += weightBettingalign
		add("betting market alignment", weightBettingalign)
	}

	lowVariance := clamp(1 - cons.Variance/tol)
	score += lowVariance * weightLowVariance
	add(fmt.Sprintf("variance %.3f", cons.Variance), lowVariance*weightLowVariance)

	freshness := s.sourceFreshness(sources)
	score += freshness * weightFreshness
	add("source freshness", freshness*weightFreshness)

	multiply := func(reason string, factor float64) {
		score *= factor
		report.Adjustments = append(report.Adjustments, model.Adjustment{
			Reason: reason, Multiplier: factor,
		})
	}
	if cons.Variance > highVarianceThreshold {
		multiply("high variance", highVariancePenalty)
	}
	if len(cons.Outliers) >= manyOutliersThreshold {
		multiply("multiple outliers", manyOutliersPenalty)
	}
	for _, w := range validation.Warnings {
		if strings.Contains(w, "Unusual value") {
			multiply("unusual value warning", unusualValuePenalty)
			break
		}
	}

	report.Score = clamp(score)
	return report
}

// sourceFreshness maps the average source age onto the ladder
// 15m/60m/180m/720m -> 1/0.8/0.6/0.4, else 0.2.
func (s *Scorer) sourceFreshness(sources []model.StatisticSource) float64 {
	var ages []time.Duration
	now := s.now()
	for _, src := range sources {
		if !src.Timestamp.IsZero() {
			ages = append(ages, now.Sub(src.Timestamp))
		}
	}
	if len(ages) == 0 {
		return 0.2
	}

	var total time.Duration
	for _, a := range ages {
		total += a
	}
	avg := total / time.Duration(len(ages))
	switch {
	case avg <= 15*time.Minute:
		return 1
	case avg <= 60*time.Minute:
		return 0.8
	case avg <= 180*time.Minute:
		return 0.6
	case avg <= 720*time.Minute:
		return 0.4
	default:
		return 0.2
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Merge averages the deterministic confidence with an advisor's
// suggestion, clamped to the unit interval.
func Merge(deterministic, advisor float64) float64 {
	return clamp((deterministic + advisor) / 2)
}
