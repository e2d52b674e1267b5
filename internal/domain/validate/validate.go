// Package validate checks normalized statistics against domain range
// and cross-statistic logical rules.
package validate

import (
	"fmt"
	"math"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// rangeRule bounds a statistic type. Values outside [Min, Max] mark
// the source invalid; values outside Typical only warn.
type rangeRule struct {
	Min     float64
	Max     float64
	Typical [2]float64
}

var rangeRules = map[model.StatisticType]rangeRule{
	model.StatYellowCards:            {0, 15, [2]float64{0, 8}},
	model.StatRedCards:               {0, 5, [2]float64{0, 2}},
	model.StatTotalCards:             {0, 20, [2]float64{0, 10}},
	model.StatCorners:                {0, 30, [2]float64{2, 16}},
	model.StatShotsOnTarget:          {0, 30, [2]float64{1, 15}},
	model.StatShotsTotal:             {0, 60, [2]float64{4, 30}},
	model.StatFouls:                  {0, 50, [2]float64{5, 30}},
	model.StatPossession:             {0, 100, [2]float64{25, 75}},
	model.StatPasses:                 {0, 1500, [2]float64{200, 900}},
	model.StatPassAccuracy:           {0, 100, [2]float64{50, 95}},
	model.StatKeyPasses:              {0, 40, [2]float64{2, 20}},
	model.StatSaves:                  {0, 20, [2]float64{0, 10}},
	model.StatTackles:                {0, 60, [2]float64{10, 45}},
	model.StatInterceptions:          {0, 40, [2]float64{5, 25}},
	model.StatFreeKicks:              {0, 50, [2]float64{5, 30}},
	model.StatPenaltiesAwarded:       {0, 5, [2]float64{0, 2}},
	model.StatPenaltiesScored:        {0, 5, [2]float64{0, 2}},
	model.StatTechnicalFouls:         {0, 10, [2]float64{0, 3}},
	model.StatFlagrantFouls:          {0, 6, [2]float64{0, 2}},
	model.StatTurnovers:              {0, 40, [2]float64{8, 25}},
	model.StatReboundsOffensive:      {0, 30, [2]float64{5, 18}},
	model.StatReboundsDefensive:      {0, 50, [2]float64{20, 40}},
	model.StatReboundsTotal:          {0, 80, [2]float64{30, 60}},
	model.StatBlocks:                 {0, 20, [2]float64{2, 10}},
	model.StatSteals:                 {0, 25, [2]float64{4, 12}},
	model.StatThreePointersMade:      {0, 30, [2]float64{5, 20}},
	model.StatThreePointersAttempted: {0, 60, [2]float64{20, 45}},
	model.StatFreeThrowsMade:         {0, 50, [2]float64{10, 30}},
	model.StatFreeThrowsAttempted:    {0, 60, [2]float64{12, 35}},
	model.StatMinutesPlayed:          {0, 70, [2]float64{10, 48}},
	model.StatPenalties:              {0, 25, [2]float64{2, 14}},
	model.StatPenaltyYards:           {0, 250, [2]float64{20, 120}},
	model.StatFumbles:                {0, 10, [2]float64{0, 4}},
	model.StatSacks:                  {0, 15, [2]float64{0, 7}},
	model.StatTimeOfPossession:       {0, 100, [2]float64{35, 65}},
	model.StatThirdDownConversions:   {0, 25, [2]float64{2, 12}},
	model.StatRedZoneEfficiency:      {0, 100, [2]float64{20, 90}},
	model.StatGoals:                  {0, 20, [2]float64{0, 8}},
	model.StatAssists:                {0, 50, [2]float64{5, 30}},
}

const possessionSumSlack = 2

// Check runs range and logical rules over the statistics.
func Check(stats []model.NormalizedStatistic) model.ValidationReport {
	report := model.ValidationReport{
		WithinRange:         true,
		LogicallyConsistent: true,
	}

	byType := make(map[model.StatisticType][]model.NormalizedStatistic)
	for _, s := range stats {
		byType[s.Type] = append(byType[s.Type], s)

		rule, ok := rangeRules[s.Type]
		if !ok {
			continue
		}
		if s.Value < rule.Min || s.Value > rule.Max {
			report.WithinRange = false
			report.InvalidSources = append(report.InvalidSources, sourceNames(s)...)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s value %.1f outside valid range [%.0f, %.0f]", s.Type, s.Value, rule.Min, rule.Max))
			continue
		}
		if s.Value < rule.Typical[0] || s.Value > rule.Typical[1] {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Unusual value: %s %.1f outside typical range [%.0f, %.0f]", s.Type, s.Value, rule.Typical[0], rule.Typical[1]))
		}
	}

	checkLogical(byType, &report)
	return report
}

// checkLogical applies the cross-statistic rules when the involved
// types were all observed.
func checkLogical(byType map[model.StatisticType][]model.NormalizedStatistic, report *model.ValidationReport) {
	onTarget, hasOnTarget := firstValue(byType, model.StatShotsOnTarget)
	total, hasTotal := firstValue(byType, model.StatShotsTotal)
	if hasOnTarget && hasTotal && onTarget > total {
		report.LogicallyConsistent = false
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("shots on target %.0f exceeds total shots %.0f", onTarget, total))
	}

	goals, hasGoals := firstValue(byType, model.StatGoals)
	if hasGoals && hasOnTarget && goals > onTarget {
		report.LogicallyConsistent = false
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("goals %.0f exceed shots on target %.0f", goals, onTarget))
	}

	yellow, hasYellow := firstValue(byType, model.StatYellowCards)
	red, hasRed := firstValue(byType, model.StatRedCards)
	cards, hasCards := firstValue(byType, model.StatTotalCards)
	if hasYellow && hasRed && hasCards && yellow+red != cards {
		report.LogicallyConsistent = false
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("yellow %.0f + red %.0f does not equal total cards %.0f", yellow, red, cards))
	}

	if possession := byType[model.StatPossession]; len(possession) >= 2 {
		sum := possession[0].Value + possession[1].Value
		if math.Abs(sum-100) > possessionSumSlack {
			report.LogicallyConsistent = false
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("possession values sum to %.1f", sum))
		}
	}
}

// Filter drops observations that failed the range rules, identified
// by their source names in the report.
func Filter(stats []model.NormalizedStatistic, report model.ValidationReport) []model.NormalizedStatistic {
	if len(report.InvalidSources) == 0 {
		return stats
	}
	invalid := make(map[string]bool, len(report.InvalidSources))
	for _, name := range report.InvalidSources {
		invalid[name] = true
	}

	var out []model.NormalizedStatistic
	for _, s := range stats {
		rule, hasRule := rangeRules[s.Type]
		outOfRange := hasRule && (s.Value < rule.Min || s.Value > rule.Max)
		if outOfRange && allInvalid(s, invalid) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func allInvalid(s model.NormalizedStatistic, invalid map[string]bool) bool {
	for _, src := range s.Sources {
		if !invalid[src.Source] {
			return false
		}
	}
	return len(s.Sources) > 0
}

func firstValue(byType map[model.StatisticType][]model.NormalizedStatistic, t model.StatisticType) (float64, bool) {
	stats := byType[t]
	if len(stats) == 0 {
		return 0, false
	}
	return stats[0].Value, true
}

func sourceNames(s model.NormalizedStatistic) []string {
	names := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		names = append(names, src.Source)
	}
	return names
}
