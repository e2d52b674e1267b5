// Package evidence assembles the audit payload stored with every
// resolution, so the answer can be reproduced from what was collected.
package evidence

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// Builder accumulates pipeline artifacts into an EvidencePayload.
type Builder struct {
	payload model.EvidencePayload
}

// NewBuilder starts a payload for one resolution attempt.
func NewBuilder(query, pipeline string, startedAt time.Time) *Builder {
	return &Builder{
		payload: model.EvidencePayload{
			Metadata: map[string]any{
				"id":        uuid.NewString(),
				"query":     query,
				"pipeline":  pipeline,
				"startedAt": startedAt.UTC().Format(time.RFC3339),
				"cached":    false,
			},
		},
	}
}

// Meta sets one metadata field.
func (b *Builder) Meta(key string, value any) *Builder {
	b.payload.Metadata[key] = value
	return b
}

// Artifacts records the raw provider envelopes.
func (b *Builder) Artifacts(envelopes []model.ProviderEnvelope) *Builder {
	b.payload.Data.AgentArtifacts = envelopes
	return b
}

// Facts records the normalized outcome facts.
func (b *Builder) Facts(facts []model.NormalizedFact) *Builder {
	b.payload.Data.NormalizedFacts = facts
	return b
}

// Groups records the candidate groups and the accepted key.
func (b *Builder) Groups(groups []model.EvidenceGroup, acceptedKey string) *Builder {
	b.payload.Data.Groups = groups
	b.payload.Data.AcceptedGroupKey = acceptedKey
	return b
}

// Statistics attaches the statistic-pipeline slice.
func (b *Builder) Statistics(s *model.StatisticEvidence) *Builder {
	b.payload.Data.Statistics = s
	return b
}

// Summary sets the human-readable pipeline summary.
func (b *Builder) Summary(summary string) *Builder {
	b.payload.Data.AgentSummary = summary
	return b
}

// ModelSummary records the advisor's reasoning and raw output.
func (b *Builder) ModelSummary(summary, raw string) *Builder {
	b.payload.Data.ModelSummary = summary
	b.payload.ModelOutputRaw = raw
	return b
}

// Error appends an error line.
func (b *Builder) Error(line string) *Builder {
	b.payload.Errors = append(b.payload.Errors, line)
	return b
}

// Warn appends a warning line.
func (b *Builder) Warn(line string) *Builder {
	b.payload.Warnings = append(b.payload.Warnings, line)
	return b
}

// Finish stamps the duration and returns the payload.
func (b *Builder) Finish(now time.Time) model.EvidencePayload {
	if started, ok := b.payload.Metadata["startedAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			b.payload.Metadata["durationMs"] = now.Sub(t).Milliseconds()
		}
	}
	return b.payload
}
