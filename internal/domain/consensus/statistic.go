package consensus

import (
	"math"
	"sort"
	"strings"

	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/internal/domain/normalize"
)

// bettingMarketSources are providers whose numbers reflect settled
// betting markets rather than collected match data.
var bettingMarketSources = map[string]bool{
	"ODDS_API": true,
}

// Statistic computes the agreement over normalized statistics for the
// query's type and entities.
//
// A value's agreement count is the number of observations strictly
// within the unit tolerance; observations at or beyond the tolerance
// from the agreed value are outliers. Agreement requires at least
// three peers, one industry stats provider among them, and a variance
// no larger than the tolerance.
func Statistic(stats []model.NormalizedStatistic, q model.StatisticQuery) model.StatisticConsensus {
	filtered := filterStatistics(stats, q)

	unit := normalize.UnitFor(q.StatisticType)
	if len(filtered) > 0 {
		unit = filtered[0].Unit
	}
	tol := model.Tolerance(unit)

	result := model.StatisticConsensus{
		StatisticType: q.StatisticType,
		Unit:          unit,
	}
	if len(filtered) == 0 {
		return result
	}

	values := make([]float64, len(filtered))
	for i, s := range filtered {
		values[i] = s.Value
	}

	agreedValue, agreementCount := bestValue(values, tol)
	result.AgreedValue = &agreedValue
	result.AgreementCount = agreementCount
	result.Variance = populationVariance(values)

	for _, s := range filtered {
		within := math.Abs(s.Value-agreedValue) < tol
		for _, src := range s.Sources {
			if !within {
				result.Outliers = append(result.Outliers, src)
				continue
			}
			result.SupportingSources = append(result.SupportingSources, src.Source)
			if src.Tier == 1 {
				result.Tier1Count++
			}
			if model.StatsProviders[src.Source] {
				result.StatsProviderCount++
			}
			if src.Source == "OFFICIAL" {
				result.OfficialSourcePresent = true
			}
			if bettingMarketSources[src.Source] {
				result.BettingMarketAlignment = true
			}
		}
	}
	sort.Strings(result.SupportingSources)

	result.Agreed = result.AgreementCount >= 3 &&
		result.StatsProviderCount >= 1 &&
		result.Variance <= tol
	if !result.Agreed {
		result.AgreedValue = nil
	}

	return result
}

// bestValue scans each observed value, counting peers strictly within
// tolerance; the highest count wins and ties go to the smaller value.
func bestValue(values []float64, tol float64) (float64, int) {
	best, bestCount := values[0], 0
	for _, v := range values {
		count := 0
		for _, u := range values {
			if math.Abs(v-u) < tol {
				count++
			}
		}
		if count > bestCount || (count == bestCount && v < best) {
			best, bestCount = v, count
		}
	}
	return best, bestCount
}

func populationVariance(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

// filterStatistics keeps observations of the query's type whose
// attribution does not contradict the query entities. Observations
// without team or player attribution pass; contradicting ones drop.
func filterStatistics(stats []model.NormalizedStatistic, q model.StatisticQuery) []model.NormalizedStatistic {
	var out []model.NormalizedStatistic
	for _, s := range stats {
		if s.Type != q.StatisticType {
			continue
		}
		if q.Entities.Team != "" && s.Team != "" && !namesAlign(s.Team, q.Entities.Team) {
			continue
		}
		if q.Entities.Player != "" && s.Player != "" && !namesAlign(s.Player, q.Entities.Player) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func namesAlign(a, b string) bool {
	na, nb := normalize.NormalizeName(a), normalize.NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}
