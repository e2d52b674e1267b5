// Package consensus groups normalized evidence into candidate answers
// and selects the agreed one.
package consensus

import (
	"sort"
	"strings"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// Status fragments that mark a fact as reported after full time.
var finalStatusMarkers = []string{
	"ft", "fulltime", "finished", "final", "completed",
	"after overtime", "aet", "ended", "finale",
}

// OutcomeResult is the outcome-path consensus: every group that
// formed, the accepted one, and how many groups it beat.
type OutcomeResult struct {
	Groups    []model.EvidenceGroup
	Accepted  *model.EvidenceGroup
	Conflicts int
}

// Corroborated reports whether the accepted group clears the distinct
// provider floor required for a non-null resolution.
func (r OutcomeResult) Corroborated() bool {
	return r.Accepted != nil && len(r.Accepted.Providers) >= model.MinCorroboratingProviders
}

// Outcome groups facts by canonical key and selects the group backed
// by the most distinct providers, breaking ties by higher average
// reliability and then by key so the choice is order-independent.
func Outcome(facts []model.NormalizedFact) OutcomeResult {
	byKey := make(map[string][]model.NormalizedFact)
	for _, f := range facts {
		byKey[f.CanonicalKey] = append(byKey[f.CanonicalKey], f)
	}

	groups := make([]model.EvidenceGroup, 0, len(byKey))
	for key, groupFacts := range byKey {
		groups = append(groups, buildGroup(key, groupFacts))
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Providers) != len(groups[j].Providers) {
			return len(groups[i].Providers) > len(groups[j].Providers)
		}
		if groups[i].ReliabilityAverage != groups[j].ReliabilityAverage {
			return groups[i].ReliabilityAverage > groups[j].ReliabilityAverage
		}
		return groups[i].Key < groups[j].Key
	})

	result := OutcomeResult{Groups: groups}
	if len(groups) == 0 {
		return result
	}

	accepted := groups[0]
	if finals := finalFacts(accepted.Facts); len(finals) > 0 {
		accepted = buildGroup(accepted.Key, finals)
	}
	result.Accepted = &accepted
	result.Conflicts = len(groups) - 1
	return result
}

// buildGroup computes the distinct provider set and reliability mean.
func buildGroup(key string, facts []model.NormalizedFact) model.EvidenceGroup {
	providerSet := make(map[string]bool)
	var reliabilitySum float64
	for _, f := range facts {
		providerSet[f.Provider] = true
		reliabilitySum += f.Reliability
	}

	providers := make([]string, 0, len(providerSet))
	for p := range providerSet {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	return model.EvidenceGroup{
		Key:                key,
		Facts:              facts,
		Providers:          providers,
		ReliabilityAverage: reliabilitySum / float64(len(facts)),
	}
}

// finalFacts keeps facts reported after the match ended: news items
// and anything whose status carries a full-time marker.
func finalFacts(facts []model.NormalizedFact) []model.NormalizedFact {
	var finals []model.NormalizedFact
	for _, f := range facts {
		if IsFinal(f) {
			finals = append(finals, f)
		}
	}
	return finals
}

// IsFinal reports whether a fact describes a concluded match.
func IsFinal(f model.NormalizedFact) bool {
	if f.Category == model.CategoryNews {
		return true
	}
	status := strings.ToLower(f.Status)
	if status == "" {
		return false
	}
	for _, marker := range finalStatusMarkers {
		if strings.Contains(status, marker) {
			return true
		}
	}
	return false
}
