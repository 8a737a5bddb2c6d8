package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityTypeIdentity   EntityType = "identity"
	EntityTypeCompany    EntityType = "company"
	EntityTypeProject    EntityType = "project"
	EntityTypeSkill      EntityType = "skill"
	EntityTypeDomain     EntityType = "domain"
	EntityTypeGoal       EntityType = "goal"
	EntityTypeTool       EntityType = "tool"
	EntityTypePreference EntityType = "preference"
	EntityTypeContext    EntityType = "context"
)

func ValidEntityType(t string) bool {
	switch EntityType(t) {
	case EntityTypeIdentity, EntityTypeCompany, EntityTypeProject, EntityTypeSkill,
		EntityTypeDomain, EntityTypeGoal, EntityTypeTool, EntityTypePreference, EntityTypeContext:
		return true
	}
	return false
}

// HalfLifeDays returns the recency half-life for the type. It is fixed on the
// entity's BeliefScore at creation and never changes afterward.
func (t EntityType) HalfLifeDays() float64 {
	switch t {
	case EntityTypeIdentity:
		return 730
	case EntityTypeCompany, EntityTypeSkill, EntityTypeDomain:
		return 365
	case EntityTypeProject, EntityTypeTool, EntityTypePreference:
		return 180
	case EntityTypeGoal:
		return 90
	case EntityTypeContext:
		return 14
	default:
		return 180
	}
}

// CanonicalEntity is the deduplicated, persistent representation of one fact
// about the user. It carries zero or more aliases and owns exactly one
// BeliefScore. Canonical text and aliases are unique (case-insensitive,
// trimmed) across all live entities.
// Pending alias candidates and merge decisions live in their own id-keyed
// logs (see MergeStore) so that merge and delete stay O(1) against the
// entity record.
type CanonicalEntity struct {
	ID                      uuid.UUID   `json:"id"`
	CanonicalText           string      `json:"canonical_text"`
	Type                    EntityType  `json:"type"`
	Aliases                 []string    `json:"aliases,omitempty"`
	FirstSeen               time.Time   `json:"first_seen"`
	LastSeen                time.Time   `json:"last_seen"`
	SupportingExtractionIDs []uuid.UUID `json:"supporting_extraction_ids"`
	Belief                  BeliefScore `json:"belief"`
	CreatedAt               time.Time   `json:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at"`
}

// NormalizeText is the canonical key form used for Tier A matching and the
// alias uniqueness invariant.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether text equals the canonical text or any alias after
// normalization.
func (e *CanonicalEntity) Matches(text string) bool {
	norm := NormalizeText(text)
	if NormalizeText(e.CanonicalText) == norm {
		return true
	}
	for _, a := range e.Aliases {
		if NormalizeText(a) == norm {
			return true
		}
	}
	return false
}

// HasAlias reports whether the normalized alias is already present.
func (e *CanonicalEntity) HasAlias(alias string) bool {
	norm := NormalizeText(alias)
	for _, a := range e.Aliases {
		if NormalizeText(a) == norm {
			return true
		}
	}
	return false
}

// EntityWithScore pairs an entity with its current belief score for ranked
// consumer output.
type EntityWithScore struct {
	CanonicalEntity
	Score float64 `json:"score"`
}
