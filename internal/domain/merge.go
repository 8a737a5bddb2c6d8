package domain

import (
	"time"

	"github.com/google/uuid"
)

// PendingAliasCandidate tracks a generic self-reference that co-occurred with
// a named entity. Created at count 1, incremented on repeat co-occurrence,
// removed on promotion (count >= 2) or rejection.
type PendingAliasCandidate struct {
	ExtractionID      uuid.UUID `json:"extraction_id"`
	CandidateEntityID uuid.UUID `json:"candidate_entity_id"`
	CoOccurrenceCount int       `json:"co_occurrence_count"`
	FirstSeen         time.Time `json:"first_seen"`
}

// MergeSuggestion is an ephemeral Tier C queue item. It is consumed by a
// MergeDecision and may be snoozed without being resolved.
type MergeSuggestion struct {
	ID           uuid.UUID  `json:"id"`
	EntityAID    uuid.UUID  `json:"entity_a_id"`
	EntityBID    uuid.UUID  `json:"entity_b_id"`
	Reason       string     `json:"reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty"`
}

// SamePair reports whether the suggestion covers the given pair in either
// order.
func (s *MergeSuggestion) SamePair(a, b uuid.UUID) bool {
	return (s.EntityAID == a && s.EntityBID == b) || (s.EntityAID == b && s.EntityBID == a)
}

// MergeOutcome is the terminal result of adjudicating a pair.
type MergeOutcome string

const (
	MergeOutcomeMerged       MergeOutcome = "merged"
	MergeOutcomeKeptSeparate MergeOutcome = "kept_separate"
)

func ValidMergeOutcome(o MergeOutcome) bool {
	switch o {
	case MergeOutcomeMerged, MergeOutcomeKeptSeparate:
		return true
	}
	return false
}

// MergeDecision is a permanent append-only audit record. A kept_separate
// decision prevents the same pair (in either order) from ever being
// re-suggested.
type MergeDecision struct {
	ID               uuid.UUID    `json:"id"`
	SurvivorEntityID uuid.UUID    `json:"survivor_entity_id"`
	AbsorbedEntityID uuid.UUID    `json:"absorbed_entity_id"`
	Outcome          MergeOutcome `json:"outcome"`
	UserInitiated    bool         `json:"user_initiated"`
	DecidedAt        time.Time    `json:"decided_at"`
}

// Covers reports whether the decision adjudicated the given pair in either
// order.
func (d *MergeDecision) Covers(a, b uuid.UUID) bool {
	return (d.SurvivorEntityID == a && d.AbsorbedEntityID == b) ||
		(d.SurvivorEntityID == b && d.AbsorbedEntityID == a)
}
