package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// metadata is what every classification path shares: the normalized
// text plus sport, date, and team candidates.
type metadata struct {
	text  string
	sport model.Sport
	date  string
	teams []string
}

var basketballKeywords = []string{
	"nba", "basketball", "rebound", "three pointer", "three-pointer",
	"free throw", "dunk", "playoff game 7",
}

var soccerKeywords = []string{
	"soccer", "football match", "premier league", "la liga", "serie a",
	"bundesliga", "champions league", "europa league", "world cup",
	"corner", "offside", "clean sheet", "golden boot",
}

// knownTeams maps the normalized form of a team keyword to its display
// name. Detection is keyword-based only; entity resolution beyond this
// table is out of scope.
var knownTeams = map[string]string{
	// NBA
	"lakers": "Lakers", "suns": "Suns", "celtics": "Celtics",
	"warriors": "Warriors", "bucks": "Bucks", "nets": "Nets",
	"knicks": "Knicks", "heat": "Heat", "bulls": "Bulls",
	"nuggets": "Nuggets", "mavericks": "Mavericks", "clippers": "Clippers",
	"raptors": "Raptors", "76ers": "76ers", "spurs": "Spurs",
	"grizzlies": "Grizzlies", "timberwolves": "Timberwolves",
	"cavaliers": "Cavaliers", "pistons": "Pistons", "pacers": "Pacers",
	"hawks": "Hawks", "hornets": "Hornets", "magic": "Magic",
	"wizards": "Wizards", "jazz": "Jazz", "kings": "Kings",
	"pelicans": "Pelicans", "rockets": "Rockets", "thunder": "Thunder",
	// Soccer
	"arsenal": "Arsenal", "chelsea": "Chelsea", "liverpool": "Liverpool",
	"manchester united": "Manchester United", "manchester city": "Manchester City",
	"tottenham": "Tottenham", "real madrid": "Real Madrid",
	"barcelona": "Barcelona", "atletico madrid": "Atletico Madrid",
	"bayern munich": "Bayern Munich", "borussia dortmund": "Borussia Dortmund",
	"juventus": "Juventus", "inter milan": "Inter Milan", "ac milan": "AC Milan",
	"napoli": "Napoli", "paris saint-germain": "Paris Saint-Germain", "psg": "PSG",
	"ajax": "Ajax", "porto": "Porto", "benfica": "Benfica",
	"sevilla": "Sevilla", "valencia": "Valencia", "roma": "Roma",
	"lazio": "Lazio", "everton": "Everton", "newcastle": "Newcastle",
	"west ham": "West Ham", "aston villa": "Aston Villa", "leicester": "Leicester",
}

// NBA team keywords, used for sport detection as well.
var basketballTeams = map[string]bool{
	"lakers": true, "suns": true, "celtics": true, "warriors": true,
	"bucks": true, "nets": true, "knicks": true, "heat": true,
	"bulls": true, "nuggets": true, "mavericks": true, "clippers": true,
	"raptors": true, "76ers": true, "spurs": true, "grizzlies": true,
	"timberwolves": true, "cavaliers": true, "pistons": true,
	"pacers": true, "hawks": true, "hornets": true, "magic": true,
	"wizards": true, "jazz": true, "kings": true, "pelicans": true,
	"rockets": true, "thunder": true,
}

// Date patterns in priority order: ISO, written month, numeric.
var (
	isoDatePattern     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthDatePattern   = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	numericDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5,
	"june": 6, "july": 7, "august": 8, "september": 9, "october": 10,
	"november": 11, "december": 12,
}

// extractMetadata normalizes whitespace and pulls sport, date, and team
// candidates out of the text.
func extractMetadata(raw string) metadata {
	text := normalizeWhitespace(raw)
	lower := strings.ToLower(text)

	return metadata{
		text:  text,
		sport: detectSport(lower),
		date:  detectDate(lower),
		teams: detectTeams(lower),
	}
}

// detectSport picks the sport by keyword hit; basketball keywords take
// priority, then soccer, else general.
func detectSport(lower string) model.Sport {
	for _, kw := range basketballKeywords {
		if strings.Contains(lower, kw) {
			return model.SportBasketball
		}
	}
	for team := range basketballTeams {
		if strings.Contains(lower, team) {
			return model.SportBasketball
		}
	}
	for _, kw := range soccerKeywords {
		if strings.Contains(lower, kw) {
			return model.SportSoccer
		}
	}
	for team := range knownTeams {
		if !basketballTeams[team] && strings.Contains(lower, team) {
			return model.SportSoccer
		}
	}
	return model.SportGeneral
}

// detectDate returns the first date found, normalized to YYYY-MM-DD.
// Priority: ISO, then written month, then numeric month-first with
// day-first as fallback when the first component cannot be a month.
func detectDate(lower string) string {
	if m := isoDatePattern.FindStringSubmatch(lower); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	if m := monthDatePattern.FindStringSubmatch(lower); m != nil {
		month := monthNumbers[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if validDate(year, month, day) {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		}
	}
	if m := numericDatePattern.FindStringSubmatch(lower); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		// Month-first preferred, day-first as fallback.
		if validDate(year, first, second) {
			return fmt.Sprintf("%04d-%02d-%02d", year, first, second)
		}
		if validDate(year, second, first) {
			return fmt.Sprintf("%04d-%02d-%02d", year, second, first)
		}
	}
	return ""
}

func validDate(year, month, day int) bool {
	return year >= 1900 && month >= 1 && month <= 12 && day >= 1 && day <= 31
}

// detectTeams scans for known team keywords and returns up to four
// display names ordered by position of first occurrence.
func detectTeams(lower string) []string {
	const maxTeams = 4

	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for kw, display := range knownTeams {
		if pos := strings.Index(lower, kw); pos >= 0 {
			hits = append(hits, hit{pos: pos, name: display})
		}
	}
	// Insertion sort by position; the candidate set is tiny.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].pos > hits[j].pos; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}

	var teams []string
	for _, h := range hits {
		if len(teams) >= maxTeams {
			break
		}
		teams = append(teams, h.name)
	}
	return teams
}

// Player candidate patterns: "did <Proper>" or "by/from/for <Proper>".
var (
	didPlayerPattern  = regexp.MustCompile(`\bdid ([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)
	prepPlayerPattern = regexp.MustCompile(`\b(?:by|from|for) ([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)
)

// extractPlayer pulls a proper-noun player candidate, skipping strings
// that are really team names.
func extractPlayer(text string, teams []string) string {
	for _, pat := range []*regexp.Regexp{didPlayerPattern, prepPlayerPattern} {
		m := pat.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := m[1]
		if isTeamName(candidate, teams) {
			continue
		}
		return candidate
	}
	return ""
}

func isTeamName(candidate string, teams []string) bool {
	lower := strings.ToLower(candidate)
	if _, ok := knownTeams[lower]; ok {
		return true
	}
	for _, t := range teams {
		if strings.EqualFold(candidate, t) {
			return true
		}
	}
	return false
}
