package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// OutcomeFacts converts one provider envelope into normalized outcome
// facts. Rows that cannot produce a canonical key are dropped.
func OutcomeFacts(env model.ProviderEnvelope, q model.OutcomeQuery) []model.NormalizedFact {
	if env.Status != model.EnvelopeOK {
		return nil
	}

	switch {
	case env.Provider == "THESPORTSDB":
		return sportsDBFacts(env, q)
	case env.Provider == "API_SPORTS_SOCCER" || env.Provider == "API_SPORTS_BASKETBALL":
		return apiSportsFacts(env, q)
	case env.Provider == "ODDS_API":
		return oddsAPIFacts(env, q)
	case strings.HasPrefix(env.Provider, "rss:"):
		return rssFacts(env, q)
	default:
		return nil
	}
}

// sportsDBFacts walks events[] and results[] rows of a TheSportsDB payload.
func sportsDBFacts(env model.ProviderEnvelope, q model.OutcomeQuery) []model.NormalizedFact {
	root, ok := asMap(env.Payload)
	if !ok {
		return nil
	}

	var facts []model.NormalizedFact
	for _, key := range []string{"events", "results"} {
		for _, row := range asSlice(root[key]) {
			m, ok := asMap(row)
			if !ok {
				continue
			}
			home := getString(m, "strHomeTeam")
			away := getString(m, "strAwayTeam")
			date := getString(m, "dateEvent")
			if !teamsIntersect(q.Teams, home, away) {
				continue
			}
			if q.Date != "" && date != "" && !strings.HasPrefix(date, q.Date) {
				continue
			}

			homeScore := getIntPtr(m, "intHomeScore")
			awayScore := getIntPtr(m, "intAwayScore")
			winner := winnerFromScores(home, away, homeScore, awayScore)
			if winner == "" {
				winner = getString(m, "strResult")
			}

			fact := baseFact(env, home, away, winner, homeScore, awayScore, q)
			fact.Status = getString(m, "strStatus")
			if ts := parseDate(date); ts != nil {
				fact.EndTimestamp = ts
			}
			fact.Raw = m
			if finishFact(&fact, q.Date) {
				facts = append(facts, fact)
			}
		}
	}
	return facts
}

// apiSportsFacts walks response[] rows of an API-Sports payload,
// preferring scores.fulltime, then scores.final, then goals, and
// honoring explicit winner booleans.
func apiSportsFacts(env model.ProviderEnvelope, q model.OutcomeQuery) []model.NormalizedFact {
	root, ok := asMap(env.Payload)
	if !ok {
		return nil
	}

	var facts []model.NormalizedFact
	for _, row := range asSlice(root["response"]) {
		m, ok := asMap(row)
		if !ok {
			continue
		}

		teams, _ := asMap(m["teams"])
		homeSide, _ := asMap(teams["home"])
		awaySide, _ := asMap(teams["away"])
		home := getString(homeSide, "name")
		away := getString(awaySide, "name")
		if !teamsIntersect(q.Teams, home, away) {
			continue
		}

		fixture, _ := asMap(m["fixture"])
		date := getString(fixture, "date")
		if q.Date != "" && date != "" && !strings.HasPrefix(date, q.Date) {
			continue
		}

		homeScore, awayScore := apiSportsScores(m)
		winner := winnerFromScores(home, away, homeScore, awayScore)
		if b, ok := homeSide["winner"].(bool); ok && b {
			winner = home
		}
		if b, ok := awaySide["winner"].(bool); ok && b {
			winner = away
		}

		fact := baseFact(env, home, away, winner, homeScore, awayScore, q)
		status, _ := asMap(fixture["status"])
		fact.Status = getString(status, "long")
		if fact.Status == "" {
			fact.Status = getString(status, "short")
		}
		if ts := parseDate(date); ts != nil {
			fact.EndTimestamp = ts
		}
		fact.Raw = m
		if finishFact(&fact, q.Date) {
			facts = append(facts, fact)
		}
	}
	return facts
}

// apiSportsScores picks scores by preference: fulltime, final, goals.
func apiSportsScores(m map[string]any) (*int, *int) {
	scores, _ := asMap(m["scores"])
	for _, key := range []string{"fulltime", "final"} {
		side, ok := asMap(scores[key])
		if !ok {
			continue
		}
		home := getIntPtr(side, "home")
		away := getIntPtr(side, "away")
		if home != nil && away != nil {
			return home, away
		}
	}
	goals, _ := asMap(m["goals"])
	return getIntPtr(goals, "home"), getIntPtr(goals, "away")
}

// oddsAPIFacts aligns scores[] {name, score} pairs with the query's
// home and away teams by normalized name.
func oddsAPIFacts(env model.ProviderEnvelope, q model.OutcomeQuery) []model.NormalizedFact {
	var facts []model.NormalizedFact
	for _, row := range asSlice(env.Payload) {
		m, ok := asMap(row)
		if !ok {
			continue
		}
		home := getString(m, "home_team")
		away := getString(m, "away_team")
		if !teamsIntersect(q.Teams, home, away) {
			continue
		}

		var homeScore, awayScore *int
		for _, entry := range asSlice(m["scores"]) {
			pair, ok := asMap(entry)
			if !ok {
				continue
			}
			name := NormalizeName(getString(pair, "name"))
			value := getIntPtr(pair, "score")
			switch name {
			case NormalizeName(home):
				homeScore = value
			case NormalizeName(away):
				awayScore = value
			}
		}

		winner := winnerFromScores(home, away, homeScore, awayScore)
		fact := baseFact(env, home, away, winner, homeScore, awayScore, q)
		if completed, ok := m["completed"].(bool); ok && completed {
			fact.Status = "finished"
		}
		if ts := parseDate(getString(m, "commence_time")); ts != nil {
			fact.EndTimestamp = ts
		}
		fact.Raw = m
		if finishFact(&fact, q.Date) {
			facts = append(facts, fact)
		}
	}
	return facts
}

// Result verbs an RSS headline may use in an "A <verb> B" shape.
var rssResultVerbs = []string{
	"defeats", "defeated", "defeat", "beats", "beat", "tops",
	"edges", "wins", "past", "overcome",
}

// rssFacts scans item titles for a result phrase. The heuristic is
// deliberately conservative: at least min(2, len(teams)) configured
// teams must appear in the title, and one of them has to lead the verb.
func rssFacts(env model.ProviderEnvelope, q model.OutcomeQuery) []model.NormalizedFact {
	root, ok := asMap(env.Payload)
	if !ok {
		return nil
	}

	var facts []model.NormalizedFact
	for _, item := range asSlice(root["items"]) {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		title := getString(m, "title")
		winner := extractOutcomeFromTitle(title, q.Teams)
		if winner == "" {
			continue
		}

		fact := model.NormalizedFact{
			Provider:     env.Provider,
			Category:     model.CategoryNews,
			Winner:       winner,
			Display:      title,
			SourceURL:    getString(m, "link"),
			Reliability:  rssReliability,
			Raw:          m,
			CanonicalKey: winnerKey(winner, TeamsKey(q.Teams), q.Date),
		}
		if ts := parseDate(getString(m, "published")); ts != nil {
			fact.EndTimestamp = ts
		}
		facts = append(facts, fact)
	}
	return facts
}

// extractOutcomeFromTitle returns the winning team when the title
// reads as "<winner> <verb> <loser>" over the configured teams.
func extractOutcomeFromTitle(title string, teams []string) string {
	if title == "" || len(teams) == 0 {
		return ""
	}
	lower := strings.ToLower(title)

	present := 0
	for _, t := range teams {
		if strings.Contains(lower, strings.ToLower(t)) {
			present++
		}
	}
	need := 2
	if len(teams) < need {
		need = len(teams)
	}
	if present < need {
		return ""
	}

	for _, verb := range rssResultVerbs {
		idx := strings.Index(lower, " "+verb+" ")
		if idx < 0 {
			continue
		}
		leading := lower[:idx]
		for _, t := range teams {
			if strings.Contains(leading, strings.ToLower(t)) {
				return t
			}
		}
	}
	return ""
}

// baseFact fills the provider- and team-independent fields.
func baseFact(env model.ProviderEnvelope, home, away, winner string, homeScore, awayScore *int, q model.OutcomeQuery) model.NormalizedFact {
	return model.NormalizedFact{
		Provider:    env.Provider,
		Category:    model.CategoryResult,
		HomeTeam:    home,
		AwayTeam:    away,
		Winner:      winner,
		HomeScore:   homeScore,
		AwayScore:   awayScore,
		Reliability: Reliability(env.Provider),
	}
}

// finishFact assigns the canonical key and display string; it reports
// false when the fact carries no groupable claim. The structured query
// date keys the group when present so providers reporting different
// event timestamps for the same match still converge.
func finishFact(f *model.NormalizedFact, queryDate string) bool {
	teamsKey := TeamsKey([]string{f.HomeTeam, f.AwayTeam})
	date := queryDate
	if date == "" && f.EndTimestamp != nil {
		date = f.EndTimestamp.Format("2006-01-02")
	}

	switch {
	case f.Award != "" && f.Player != "":
		f.Category = model.CategoryAward
		f.CanonicalKey = awardKey(f.Award, f.Player, teamsKey, date)
		f.Display = fmt.Sprintf("%s: %s", f.Award, f.Player)
	case f.Winner != "":
		f.CanonicalKey = winnerKey(f.Winner, teamsKey, date)
		f.Display = fmt.Sprintf("%s won", f.Winner)
		if f.HomeScore != nil && f.AwayScore != nil {
			f.Display = fmt.Sprintf("%s %d-%d %s", f.HomeTeam, *f.HomeScore, *f.AwayScore, f.AwayTeam)
		}
	case f.HomeScore != nil && f.AwayScore != nil:
		f.Category = model.CategoryScoreline
		f.CanonicalKey = scoreKey(teamsKey, *f.HomeScore, *f.AwayScore, date)
		f.Display = fmt.Sprintf("%s %d-%d %s", f.HomeTeam, *f.HomeScore, *f.AwayScore, f.AwayTeam)
	default:
		return false
	}
	return true
}

// winnerFromScores derives the winner by score comparison; draws and
// missing scores yield no winner.
func winnerFromScores(home, away string, homeScore, awayScore *int) string {
	if homeScore == nil || awayScore == nil {
		return ""
	}
	switch {
	case *homeScore > *awayScore:
		return home
	case *awayScore > *homeScore:
		return away
	default:
		return ""
	}
}

// teamsIntersect reports whether either row team matches a query team
// after normalization. An empty query team list matches everything.
func teamsIntersect(queryTeams []string, rowTeams ...string) bool {
	if len(queryTeams) == 0 {
		return true
	}
	for _, qt := range queryTeams {
		n := NormalizeName(qt)
		if n == "" {
			continue
		}
		for _, rt := range rowTeams {
			rn := NormalizeName(rt)
			if rn == "" {
				continue
			}
			if strings.Contains(rn, n) || strings.Contains(n, rn) {
				return true
			}
		}
	}
	return false
}

// JSON walking helpers over decoded payloads.

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}

// getIntPtr reads an integer that providers may encode as a number or
// a numeric string.
func getIntPtr(m map[string]any, key string) *int {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return &n
		}
	case int:
		n := t
		return &n
	}
	return nil
}

// parseDate accepts the date shapes providers emit: RFC3339, ISO
// date-time without zone, and bare ISO dates.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02", time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
