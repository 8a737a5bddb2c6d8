package llm

import (
	"context"
	"strings"

	"github.com/distillkit/distill/internal/domain"
)

// Confidence assigned to keyword-cue matches. Deliberately low: the heuristic
// provider is the floor of the fallback ladder, not a peer of the LLM path.
const heuristicConfidence = 0.4

// phraseCue maps a keyword cue to the entity type it suggests.
type phraseCue struct {
	phrase string
	hint   domain.EntityType
}

var phraseCues = []phraseCue{
	// Role phrases
	{"i work as", domain.EntityTypeIdentity},
	{"i'm a ", domain.EntityTypeIdentity},
	{"i am a ", domain.EntityTypeIdentity},
	{"my job is", domain.EntityTypeIdentity},
	{"my role is", domain.EntityTypeIdentity},
	// Skill phrases
	{"i know how to", domain.EntityTypeSkill},
	{"i can ", domain.EntityTypeSkill},
	{"i use ", domain.EntityTypeSkill},
	{"i learned", domain.EntityTypeSkill},
	{"experienced in", domain.EntityTypeSkill},
	// Project phrases
	{"i'm building", domain.EntityTypeProject},
	{"i am building", domain.EntityTypeProject},
	{"i'm working on", domain.EntityTypeProject},
	{"my project", domain.EntityTypeProject},
	{"my app", domain.EntityTypeProject},
	// Goal phrases
	{"i want to", domain.EntityTypeGoal},
	{"i'd like to", domain.EntityTypeGoal},
	{"my goal", domain.EntityTypeGoal},
	{"i plan to", domain.EntityTypeGoal},
	{"i hope to", domain.EntityTypeGoal},
}

// HeuristicClient is the rule-based floor of the fallback ladder. It pattern
// matches fixed keyword cues against each line and never fails.
type HeuristicClient struct{}

func NewHeuristicClient() *HeuristicClient {
	return &HeuristicClient{}
}

func (c *HeuristicClient) ExtractFacts(_ context.Context, chunk domain.Chunk, _ []string) ([]domain.RawCandidate, error) {
	var candidates []domain.RawCandidate
	for _, line := range strings.Split(chunk.Text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 5 {
			continue
		}
		lower := strings.ToLower(line)
		for _, cue := range phraseCues {
			if !strings.Contains(lower, cue.phrase) {
				continue
			}
			candidates = append(candidates, domain.RawCandidate{
				Text:        line,
				TypeHint:    cue.hint,
				Attribution: domain.AttributionUserImplied,
				Confidence:  heuristicConfidence,
			})
			break
		}
	}
	return candidates, nil
}
