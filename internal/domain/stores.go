package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Extraction boundary failures. Both trigger the caller's fallback ladder and
// never abort an import batch.
var (
	ErrExtractionUnavailable = errors.New("extraction capability unavailable")
	ErrExtractionTimeout     = errors.New("extraction timed out")
)

// Store lookup failures. Callers branch on these with errors.Is.
var (
	ErrEntityNotFound     = errors.New("entity not found")
	ErrExtractionNotFound = errors.New("extraction not found")
	ErrCitationNotFound   = errors.New("citation not found")
	ErrSuggestionNotFound = errors.New("merge suggestion not found")
	ErrStateNotFound      = errors.New("pipeline state not found")
)

// ExtractionClient converts one chunk plus priming topics into unstructured
// candidate facts. An empty result is a valid, non-error outcome.
type ExtractionClient interface {
	ExtractFacts(ctx context.Context, chunk Chunk, primingTopics []string) ([]RawCandidate, error)
}

// EntityStore persists canonical entities together with their aliases and
// owned belief score.
type EntityStore interface {
	Create(ctx context.Context, e *CanonicalEntity) error
	GetByID(ctx context.Context, id uuid.UUID) (*CanonicalEntity, error)
	ListActive(ctx context.Context) ([]CanonicalEntity, error)
	Update(ctx context.Context, e *CanonicalEntity) error
	UpdateBelief(ctx context.Context, id uuid.UUID, b BeliefScore) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExtractionStore persists raw fact occurrences.
type ExtractionStore interface {
	Create(ctx context.Context, x *RawExtraction) error
	GetByID(ctx context.Context, id uuid.UUID) (*RawExtraction, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]RawExtraction, error)
	SetCanonicalEntity(ctx context.Context, id uuid.UUID, entityID uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// PendingAlias is a pending alias candidate together with the host entity it
// was observed against. Pending state lives in its own id-keyed log rather
// than nested inside the entity record.
type PendingAlias struct {
	HostEntityID uuid.UUID `json:"host_entity_id"`
	PendingAliasCandidate
}

// MergeStore persists all merge adjudication state: the pending co-occurrence
// log, the Tier C suggestion queue, and the permanent decision log.
type MergeStore interface {
	UpsertPending(ctx context.Context, p *PendingAlias) error
	ListPending(ctx context.Context) ([]PendingAlias, error)
	DeletePending(ctx context.Context, hostEntityID, candidateEntityID uuid.UUID) error
	DeletePendingForEntity(ctx context.Context, entityID uuid.UUID) error

	CreateSuggestion(ctx context.Context, s *MergeSuggestion) error
	GetSuggestion(ctx context.Context, id uuid.UUID) (*MergeSuggestion, error)
	ListSuggestions(ctx context.Context) ([]MergeSuggestion, error)
	DeleteSuggestion(ctx context.Context, id uuid.UUID) error
	DeleteSuggestionsForEntity(ctx context.Context, entityID uuid.UUID) error
	SnoozeSuggestion(ctx context.Context, id uuid.UUID, until time.Time) error

	CreateDecision(ctx context.Context, d *MergeDecision) error
	ListDecisions(ctx context.Context) ([]MergeDecision, error)
}

// CitationStore persists URL citations.
type CitationStore interface {
	Create(ctx context.Context, c *CitationReference) error
	GetByURL(ctx context.Context, url string) (*CitationReference, error)
	ListAll(ctx context.Context) ([]CitationReference, error)
	Update(ctx context.Context, c *CitationReference) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StateStore persists the single pipeline-state record.
type StateStore interface {
	Get(ctx context.Context) (*PipelineState, error)
	Save(ctx context.Context, s *PipelineState) error
}

// LegacyFact is the flat prior fact representation the one-time migration
// maps into the entity/score model.
type LegacyFact struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// LegacyStore reads the pre-migration corpus, if any.
type LegacyStore interface {
	ListFacts(ctx context.Context) ([]LegacyFact, error)
}
