// Package classify converts free-form question text into at most one
// structured query shape: an outcome query or a statistic query.
package classify

import (
	"regexp"
	"strings"
	"time"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// Result holds the single structured shape produced for a raw query.
// Exactly one of Outcome and Statistic is non-nil.
type Result struct {
	Outcome   *model.OutcomeQuery
	Statistic *model.StatisticQuery
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithClock overrides the time source used for resolvability gating.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// Classifier turns raw question text into structured queries.
type Classifier struct {
	now func() time.Time
}

// New creates a Classifier with configuration options.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Outcome question patterns, first match in declared order wins.
var (
	didResultPattern   = regexp.MustCompile(`(?i)\bdid\b.*\b(win|lose|draw|tie|beat|defeat|happen)\b`)
	whoWonPattern      = regexp.MustCompile(`(?i)\b(who won|winner|victor)\b`)
	scorelinePattern   = regexp.MustCompile(`(?i)\b(scoreline|final score|score|points)\b`)
	playerAwardPattern = regexp.MustCompile(`(?i)\b(mvp|award|player of the match|golden boot|top scorer)\b`)
)

// Classify produces at most one structured shape for raw. Statistic
// classification is attempted first; when no statistic synonym matches,
// the query falls through to the outcome path.
func (c *Classifier) Classify(raw string) Result {
	meta := extractMetadata(raw)

	if sq := c.classifyStatistic(meta); sq != nil {
		return Result{Statistic: sq}
	}
	return Result{Outcome: c.classifyOutcome(meta)}
}

// classifyOutcome builds an OutcomeQuery from extracted metadata.
func (c *Classifier) classifyOutcome(meta metadata) *model.OutcomeQuery {
	q := &model.OutcomeQuery{
		Sport:   meta.sport,
		Date:    meta.date,
		Teams:   meta.teams,
		RawText: meta.text,
	}

	switch {
	case didResultPattern.MatchString(meta.text) && len(meta.teams) > 0:
		// did_result_happen requires at least one extracted team.
		q.QuestionType = model.QuestionDidResultHappen
	case whoWonPattern.MatchString(meta.text):
		q.QuestionType = model.QuestionWhoWon
	case scorelinePattern.MatchString(meta.text):
		q.QuestionType = model.QuestionScoreline
	case playerAwardPattern.MatchString(meta.text):
		q.QuestionType = model.QuestionPlayerAward
		q.Player = extractPlayer(meta.text, meta.teams)
	default:
		q.QuestionType = model.QuestionOther
	}

	return q
}

// eventEnd derives the assumed event end from an extracted ISO date:
// the event is taken to be over at the start of the following day, UTC.
func eventEnd(date string) *time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil
	}
	end := t.AddDate(0, 0, 1)
	return &end
}

// normalizeWhitespace collapses runs of whitespace to single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
