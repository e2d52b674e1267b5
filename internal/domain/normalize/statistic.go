package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// keyTypeAliases maps normalized payload keys to statistic types. The
// walker consults it for primitive key/value pairs and for value-field
// sibling labels.
var keyTypeAliases = map[string]model.StatisticType{
	"yellowcards": model.StatYellowCards, "yellow": model.StatYellowCards,
	"cardsyellow": model.StatYellowCards,
	"redcards":    model.StatRedCards, "red": model.StatRedCards,
	"cardsred":   model.StatRedCards,
	"totalcards": model.StatTotalCards, "cards": model.StatTotalCards,
	"corners": model.StatCorners, "cornerkicks": model.StatCorners,
	"corner":        model.StatCorners,
	"shotsontarget": model.StatShotsOnTarget, "shotsongoal": model.StatShotsOnTarget,
	"ontarget": model.StatShotsOnTarget,
	"shots":    model.StatShotsTotal, "totalshots": model.StatShotsTotal,
	"shotstotal": model.StatShotsTotal,
	"fouls":      model.StatFouls, "foulscommitted": model.StatFouls,
	"possession": model.StatPossession, "ballpossession": model.StatPossession,
	"possessionpct": model.StatPossession,
	"passes":        model.StatPasses, "totalpasses": model.StatPasses,
	"passaccuracy": model.StatPassAccuracy, "passespct": model.StatPassAccuracy,
	"passsuccess": model.StatPassAccuracy,
	"keypasses":   model.StatKeyPasses,
	"saves":       model.StatSaves, "goalkeepersaves": model.StatSaves,
	"tackles":       model.StatTackles,
	"interceptions": model.StatInterceptions,
	"freekicks":     model.StatFreeKicks,
	"penaltiesawarded": model.StatPenaltiesAwarded, "penaltyawarded": model.StatPenaltiesAwarded,
	"penaltiesscored": model.StatPenaltiesScored, "penaltyscored": model.StatPenaltiesScored,
	"technicalfouls":    model.StatTechnicalFouls,
	"flagrantfouls":     model.StatFlagrantFouls,
	"turnovers":         model.StatTurnovers,
	"offensiverebounds": model.StatReboundsOffensive, "reboundsoffensive": model.StatReboundsOffensive,
	"oreb":              model.StatReboundsOffensive,
	"defensiverebounds": model.StatReboundsDefensive, "reboundsdefensive": model.StatReboundsDefensive,
	"dreb":     model.StatReboundsDefensive,
	"rebounds": model.StatReboundsTotal, "totalrebounds": model.StatReboundsTotal,
	"reb":    model.StatReboundsTotal,
	"blocks": model.StatBlocks, "blockedshots": model.StatBlocks,
	"steals":            model.StatSteals,
	"threepointersmade": model.StatThreePointersMade, "3pm": model.StatThreePointersMade,
	"threepointersattempted": model.StatThreePointersAttempted, "3pa": model.StatThreePointersAttempted,
	"freethrowsmade": model.StatFreeThrowsMade, "ftm": model.StatFreeThrowsMade,
	"freethrowsattempted": model.StatFreeThrowsAttempted, "fta": model.StatFreeThrowsAttempted,
	"minutesplayed": model.StatMinutesPlayed, "minutes": model.StatMinutesPlayed,
	"min":       model.StatMinutesPlayed,
	"penalties": model.StatPenalties,
	"penaltyyards": model.StatPenaltyYards,
	"fumbles":      model.StatFumbles,
	"sacks":        model.StatSacks,
	"timeofpossession":     model.StatTimeOfPossession,
	"thirddownconversions": model.StatThirdDownConversions,
	"redzoneefficiency":    model.StatRedZoneEfficiency,
	"goals":                model.StatGoals, "goalsscored": model.StatGoals,
	"assists": model.StatAssists,
}

// UnitFor returns the measurement unit for a statistic type.
func UnitFor(t model.StatisticType) model.Unit {
	switch t {
	case model.StatPossession, model.StatPassAccuracy, model.StatRedZoneEfficiency, model.StatTimeOfPossession:
		return model.UnitPercentage
	case model.StatMinutesPlayed:
		return model.UnitMinutes
	case model.StatPenaltyYards:
		return model.UnitYards
	default:
		return model.UnitCount
	}
}

var numericTokenPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// candidate is one raw observation found while walking a payload.
type candidate struct {
	typ    model.StatisticType
	value  float64
	raw    any
	team   string
	player string
}

// walkContext carries team/player attribution down the payload tree.
type walkContext struct {
	team   string
	player string
}

// StatisticObservations walks a provider payload and emits one
// normalized statistic per discovered candidate. Candidates whose type
// fell back to the query's statistic inherit the query's aggregation
// and period.
func StatisticObservations(env model.ProviderEnvelope, q model.StatisticQuery) []model.NormalizedStatistic {
	if env.Status != model.EnvelopeOK {
		return nil
	}

	var out []model.NormalizedStatistic
	for _, c := range walkValue(env.Payload, q, walkContext{}) {
		stat := model.NormalizedStatistic{
			Type:        c.typ,
			Team:        c.team,
			Player:      c.player,
			Match:       q.Entities.Match,
			Value:       c.value,
			Unit:        UnitFor(c.typ),
			Period:      q.Period,
			Aggregation: q.Aggregation,
			Sources: []model.StatisticSource{{
				Source:      env.Provider,
				Tier:        env.Tier,
				Weight:      env.Weight,
				RawValue:    c.raw,
				ParsedValue: c.value,
				Timestamp:   env.CollectedAt,
				Metadata:    env.Meta,
			}},
		}
		out = append(out, stat)
	}
	return out
}

// walkValue dispatches on the dynamic shape of v.
func walkValue(v any, q model.StatisticQuery, ctx walkContext) []candidate {
	switch t := v.(type) {
	case []any:
		var out []candidate
		for _, el := range t {
			out = append(out, walkValue(el, q, ctx)...)
		}
		return out
	case string:
		return candidatesFromText(t, q, ctx)
	case map[string]any:
		return walkObject(t, q, ctx)
	default:
		return nil
	}
}

// walkObject applies the object rules in order; the first rule that
// yields candidates wins, with plain recursion as the fallback.
func walkObject(m map[string]any, q model.StatisticQuery, ctx walkContext) []candidate {
	ctx = attribution(m, ctx)

	// (a) known sub-arrays
	var out []candidate
	for _, key := range []string{"statistics", "data", "items"} {
		if sub, ok := m[key]; ok {
			out = append(out, walkValue(sub, q, ctx)...)
		}
	}
	if len(out) > 0 {
		return out
	}

	// (b) embedded free text
	if text, ok := m["text"].(string); ok {
		if c := candidatesFromText(text, q, ctx); len(c) > 0 {
			return c
		}
	}

	// (c) a value field with a sibling label
	if raw, ok := m["value"]; ok {
		if value, parsed := parseNumeric(raw); parsed {
			typ := labelType(m, q.StatisticType)
			return []candidate{{
				typ: typ, value: value, raw: raw,
				team: ctx.team, player: ctx.player,
			}}
		}
	}

	// (d) primitive key/value pairs matching the alias table
	for key, raw := range m {
		typ, ok := keyTypeAliases[NormalizeName(key)]
		if !ok {
			continue
		}
		if value, parsed := parseNumeric(raw); parsed {
			out = append(out, candidate{
				typ: typ, value: value, raw: raw,
				team: ctx.team, player: ctx.player,
			})
		}
	}
	if len(out) > 0 {
		return out
	}

	// (e) recurse into nested containers
	for _, raw := range m {
		switch raw.(type) {
		case map[string]any, []any:
			out = append(out, walkValue(raw, q, ctx)...)
		}
	}
	return out
}

// attribution refreshes team/player context from common name fields.
func attribution(m map[string]any, ctx walkContext) walkContext {
	for _, key := range []string{"team", "team_name", "teamName"} {
		if s, ok := m[key].(string); ok && s != "" {
			ctx.team = s
		}
	}
	for _, key := range []string{"player", "player_name", "playerName"} {
		if s, ok := m[key].(string); ok && s != "" {
			ctx.player = s
		}
	}
	return ctx
}

// labelType resolves a value field's type from its sibling label,
// falling back to the query's statistic.
func labelType(m map[string]any, fallback model.StatisticType) model.StatisticType {
	for _, key := range []string{"type", "statType", "label", "name"} {
		s, ok := m[key].(string)
		if !ok || s == "" {
			continue
		}
		if typ, ok := keyTypeAliases[NormalizeName(s)]; ok {
			return typ
		}
	}
	return fallback
}

// candidatesFromText extracts the first numeric token from free text
// and attributes it to the query's statistic.
func candidatesFromText(text string, q model.StatisticQuery, ctx walkContext) []candidate {
	token := numericTokenPattern.FindString(text)
	if token == "" {
		return nil
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	return []candidate{{
		typ: q.StatisticType, value: value, raw: text,
		team: ctx.team, player: ctx.player,
	}}
}

// parseNumeric accepts numbers and numeric strings.
func parseNumeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
