package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// synonym binds a phrase to a statistic type. The table is scanned in
// order, so longer or more specific phrases must come first.
type synonym struct {
	phrase string
	typ    model.StatisticType
}

var statisticSynonyms = []synonym{
	{"shots on target", model.StatShotsOnTarget},
	{"shots on goal", model.StatShotsOnTarget},
	{"total shots", model.StatShotsTotal},
	{"shots total", model.StatShotsTotal},
	{"pass accuracy", model.StatPassAccuracy},
	{"passing accuracy", model.StatPassAccuracy},
	{"key passes", model.StatKeyPasses},
	{"time of possession", model.StatTimeOfPossession},
	{"possession", model.StatPossession},
	{"yellow card", model.StatYellowCards},
	{"red card", model.StatRedCards},
	{"total cards", model.StatTotalCards},
	{"technical foul", model.StatTechnicalFouls},
	{"flagrant foul", model.StatFlagrantFouls},
	{"penalty yards", model.StatPenaltyYards},
	{"penalties awarded", model.StatPenaltiesAwarded},
	{"penalty awarded", model.StatPenaltiesAwarded},
	{"penalties scored", model.StatPenaltiesScored},
	{"penalty scored", model.StatPenaltiesScored},
	{"offensive rebound", model.StatReboundsOffensive},
	{"defensive rebound", model.StatReboundsDefensive},
	{"rebound", model.StatReboundsTotal},
	{"three pointers attempted", model.StatThreePointersAttempted},
	{"3-pointers attempted", model.StatThreePointersAttempted},
	{"three pointers made", model.StatThreePointersMade},
	{"3-pointers made", model.StatThreePointersMade},
	{"three pointer", model.StatThreePointersMade},
	{"3-pointer", model.StatThreePointersMade},
	{"free throws attempted", model.StatFreeThrowsAttempted},
	{"free throws made", model.StatFreeThrowsMade},
	{"free throw", model.StatFreeThrowsMade},
	{"minutes played", model.StatMinutesPlayed},
	{"third down conversion", model.StatThirdDownConversions},
	{"red zone efficiency", model.StatRedZoneEfficiency},
	{"free kick", model.StatFreeKicks},
	{"corner", model.StatCorners},
	{"turnover", model.StatTurnovers},
	{"interception", model.StatInterceptions},
	{"tackle", model.StatTackles},
	{"save", model.StatSaves},
	{"block", model.StatBlocks},
	{"steal", model.StatSteals},
	{"fumble", model.StatFumbles},
	{"sack", model.StatSacks},
	{"foul", model.StatFouls},
	{"passes", model.StatPasses},
	{"assist", model.StatAssists},
	{"goals scored", model.StatGoals},
	{"goals", model.StatGoals},
	{"cards", model.StatTotalCards},
	{"penalties", model.StatPenalties},
	{"penalty", model.StatPenalties},
	{"shots", model.StatShotsTotal},
}

// matchStatisticType returns the first synonym hit, or "" when the
// text names no statistic at all.
func matchStatisticType(lower string) model.StatisticType {
	for _, s := range statisticSynonyms {
		if strings.Contains(lower, s.phrase) {
			return s.typ
		}
	}
	return ""
}

// thresholdPattern pairs a compiled expression with its comparator.
// Patterns are tried in priority order; the first match wins.
type thresholdPattern struct {
	re   *regexp.Regexp
	comp model.Comparator
}

var thresholdPatterns = []thresholdPattern{
	{regexp.MustCompile(`(?i)\bover (\d+(?:\.\d+)?)`), model.CompareGT},
	{regexp.MustCompile(`(?i)\bunder (\d+(?:\.\d+)?)`), model.CompareLT},
	{regexp.MustCompile(`(?i)\bmore than (\d+(?:\.\d+)?)`), model.CompareGT},
	{regexp.MustCompile(`(?i)\bless than (\d+(?:\.\d+)?)`), model.CompareLT},
	{regexp.MustCompile(`(?i)\bat least (\d+(?:\.\d+)?)`), model.CompareGE},
	{regexp.MustCompile(`(?i)\bat most (\d+(?:\.\d+)?)`), model.CompareLE},
	{regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\+ ?(?:line|cards|corners)`), model.CompareGE},
	{regexp.MustCompile(`(?:≥|>=) ?(\d+(?:\.\d+)?)`), model.CompareGE},
	{regexp.MustCompile(`(?:≤|<=) ?(\d+(?:\.\d+)?)`), model.CompareLE},
}

// matchThreshold returns the parsed threshold and comparator for the
// first matching pattern.
func matchThreshold(text string) (*float64, model.Comparator) {
	for _, p := range thresholdPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return &v, p.comp
	}
	return nil, ""
}

var aggregationKeywords = []struct {
	phrase string
	agg    model.Aggregation
}{
	{"per team", model.AggregatePerTeam},
	{"per player", model.AggregatePerPlayer},
	{"average", model.AggregateAverage},
	{"difference", model.AggregateDifference},
}

var periodKeywords = []struct {
	phrase string
	period model.Period
}{
	{"first half", model.PeriodFirstHalf},
	{"second half", model.PeriodSecondHalf},
	{"extra time", model.PeriodExtraTime},
	{"overtime", model.PeriodOvertime},
	{"quarter", model.PeriodQuarter},
}

var versusPattern = regexp.MustCompile(`(?i)\b(?:vs\.?|versus|against)\b`)

// classifyStatistic attempts the statistic shape; nil means the text
// names no statistic and the outcome path should run instead.
func (c *Classifier) classifyStatistic(meta metadata) *model.StatisticQuery {
	lower := strings.ToLower(meta.text)

	statType := matchStatisticType(lower)
	if statType == "" {
		return nil
	}

	q := &model.StatisticQuery{
		StatisticType: statType,
		Aggregation:   model.AggregateTotal,
		Period:        model.PeriodFullTime,
		RawText:       meta.text,
	}

	q.Entities.Match = extractMatchEntity(meta)
	if q.Entities.Match == nil && len(meta.teams) > 0 {
		q.Entities.Team = meta.teams[0]
	}
	if player := extractPlayer(meta.text, meta.teams); player != "" {
		q.Entities.Player = player
	}

	for _, a := range aggregationKeywords {
		if strings.Contains(lower, a.phrase) {
			q.Aggregation = a.agg
			break
		}
	}
	for _, p := range periodKeywords {
		if strings.Contains(lower, p.phrase) {
			q.Period = p.period
			break
		}
	}

	q.Threshold, q.Comparator = matchThreshold(meta.text)

	switch {
	case q.Threshold != nil:
		q.QueryType = model.StatQueryThreshold
	case q.Entities.Player != "":
		q.QueryType = model.StatQueryPlayer
	case singleTeam(meta.teams) || statType == model.StatTotalCards:
		q.QueryType = model.StatQueryAggregate
	default:
		q.QueryType = model.StatQueryMatch
	}

	if meta.date != "" {
		q.EventEndTime = eventEnd(meta.date)
	}
	if q.EventEndTime != nil {
		q.CanResolveNow = c.now().Sub(*q.EventEndTime) >= model.ResolvableAfter
	}

	return q
}

func singleTeam(teams []string) bool {
	return len(teams) == 1
}

// extractMatchEntity derives home and away around a vs/versus/against
// separator, preferring known team keywords over raw capitalized runs.
func extractMatchEntity(meta metadata) *model.MatchEntity {
	loc := versusPattern.FindStringIndex(meta.text)
	if loc == nil {
		return nil
	}

	left := strings.TrimSpace(meta.text[:loc[0]])
	right := strings.TrimSpace(meta.text[loc[1]:])

	home := lastTeamIn(left)
	away := firstTeamIn(right)
	if home == "" {
		home = trailingProperRun(left)
	}
	if away == "" {
		away = leadingProperRun(right)
	}
	if home == "" || away == "" {
		return nil
	}

	return &model.MatchEntity{
		Home: home,
		Away: away,
		Date: meta.date,
	}
}

// lastTeamIn returns the known team mentioned latest in the fragment.
func lastTeamIn(fragment string) string {
	lower := strings.ToLower(fragment)
	best, bestPos := "", -1
	for kw, display := range knownTeams {
		if pos := strings.LastIndex(lower, kw); pos > bestPos {
			best, bestPos = display, pos
		}
	}
	return best
}

// firstTeamIn returns the known team mentioned earliest in the fragment.
func firstTeamIn(fragment string) string {
	lower := strings.ToLower(fragment)
	best, bestPos := "", len(fragment)+1
	for kw, display := range knownTeams {
		if pos := strings.Index(lower, kw); pos >= 0 && pos < bestPos {
			best, bestPos = display, pos
		}
	}
	return best
}

var properWordPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9.'&-]*$`)

// trailingProperRun returns the capitalized word run that ends the
// fragment, e.g. "total corners Real Sociedad" -> "Real Sociedad".
func trailingProperRun(fragment string) string {
	words := strings.Fields(fragment)
	var run []string
	for i := len(words) - 1; i >= 0; i-- {
		if !properWordPattern.MatchString(words[i]) {
			break
		}
		run = append([]string{words[i]}, run...)
	}
	return strings.Join(run, " ")
}

// leadingProperRun returns the capitalized word run that starts the
// fragment, stopping before dates and stop words.
func leadingProperRun(fragment string) string {
	words := strings.Fields(fragment)
	var run []string
	for _, w := range words {
		if !properWordPattern.MatchString(w) {
			break
		}
		run = append(run, w)
	}
	return strings.Join(run, " ")
}
