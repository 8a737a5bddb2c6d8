package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attribution records who asserted a fact within the conversation.
type Attribution string

const (
	AttributionUserExplicit       Attribution = "user_explicit"
	AttributionUserImplied        Attribution = "user_implied"
	AttributionAssistantSuggested Attribution = "assistant_suggested"
	AttributionAmbiguous          Attribution = "ambiguous"
)

func ValidAttribution(a string) bool {
	switch Attribution(a) {
	case AttributionUserExplicit, AttributionUserImplied, AttributionAssistantSuggested, AttributionAmbiguous:
		return true
	}
	return false
}

// Weight returns the multiplicative attribution weight used by the scoring
// formula.
func (a Attribution) Weight() float64 {
	switch a {
	case AttributionUserExplicit:
		return 1.0
	case AttributionUserImplied:
		return 0.8
	case AttributionAssistantSuggested:
		return 0.5
	case AttributionAmbiguous:
		return 0.4
	default:
		return 0.4
	}
}

// RawCandidate is the ephemeral output of the extraction boundary. It is
// consumed by the candidate filter and never persisted as-is.
type RawCandidate struct {
	Text        string      `json:"text"`
	TypeHint    EntityType  `json:"type_hint,omitempty"`
	Attribution Attribution `json:"attribution"`
	Confidence  float64     `json:"confidence"`
}

// RawExtraction is a persisted fact occurrence. Content is immutable after
// creation; only the canonical-entity back-reference and IsActive change.
type RawExtraction struct {
	ID                    uuid.UUID   `json:"id"`
	Text                  string      `json:"text"`
	Type                  EntityType  `json:"type"`
	SourceConversationID  uuid.UUID   `json:"source_conversation_id"`
	SourceChunkID         string      `json:"source_chunk_id"`
	ConversationTimestamp time.Time   `json:"conversation_timestamp"`
	ExtractionTimestamp   time.Time   `json:"extraction_timestamp"`
	Attribution           Attribution `json:"attribution"`
	RawConfidence         float64     `json:"raw_confidence"`
	EntityVerified        bool        `json:"entity_verified"`
	IsActive              bool        `json:"is_active"`
	CanonicalEntityID     *uuid.UUID  `json:"canonical_entity_id,omitempty"`
}
