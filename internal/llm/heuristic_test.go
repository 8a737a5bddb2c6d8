package llm

import (
	"context"
	"testing"

	"github.com/distillkit/distill/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHeuristicExtractsKeywordCues(t *testing.T) {
	client := NewHeuristicClient()
	chunk := domain.Chunk{
		ID: "c-0",
		Text: "I work as a backend engineer at Initech.\n" +
			"I use PostgreSQL every day.\n" +
			"I want to learn Rust next year.\n" +
			"The weather was terrible last week.\n",
	}

	candidates, err := client.ExtractFacts(context.Background(), chunk, nil)
	assert.NoError(t, err)
	assert.Len(t, candidates, 3)

	assert.Equal(t, domain.EntityTypeIdentity, candidates[0].TypeHint)
	assert.Equal(t, domain.EntityTypeSkill, candidates[1].TypeHint)
	assert.Equal(t, domain.EntityTypeGoal, candidates[2].TypeHint)

	for _, c := range candidates {
		assert.Equal(t, domain.AttributionUserImplied, c.Attribution)
		assert.Equal(t, heuristicConfidence, c.Confidence)
	}
}

func TestHeuristicFirstCueWinsPerLine(t *testing.T) {
	client := NewHeuristicClient()
	chunk := domain.Chunk{ID: "c-0", Text: "I work as a contractor and I want to go solo."}

	candidates, err := client.ExtractFacts(context.Background(), chunk, nil)
	assert.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.Equal(t, domain.EntityTypeIdentity, candidates[0].TypeHint)
}

func TestHeuristicNeverFails(t *testing.T) {
	client := NewHeuristicClient()

	for _, text := range []string{"", "ok", "no cues anywhere in this text"} {
		candidates, err := client.ExtractFacts(context.Background(), domain.Chunk{ID: "c-0", Text: text}, nil)
		assert.NoError(t, err)
		assert.Empty(t, candidates)
	}
}
