package domain

import (
	"time"

	"github.com/google/uuid"
)

// CitationReference records an external URL cited in a conversation and the
// entities it relates to. Citations with the same URL are merged, never
// duplicated: counts are summed and related-entity sets unioned.
type CitationReference struct {
	ID                    uuid.UUID   `json:"id"`
	URL                   string      `json:"url"`
	Domain                string      `json:"domain"`
	CitedInConversationID uuid.UUID   `json:"cited_in_conversation_id"`
	RelatedEntityIDs      []uuid.UUID `json:"related_entity_ids"`
	CitedCount            int         `json:"cited_count"`
	CreatedAt             time.Time   `json:"created_at"`
}

// HasRelatedEntity reports whether the entity id is already in the related
// set.
func (c *CitationReference) HasRelatedEntity(id uuid.UUID) bool {
	for _, e := range c.RelatedEntityIDs {
		if e == id {
			return true
		}
	}
	return false
}
