package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/distillkit/distill/internal/service"
	"github.com/google/uuid"
)

type CitationHandler struct {
	svc *service.CitationService
}

func NewCitationHandler(svc *service.CitationService) *CitationHandler {
	return &CitationHandler{svc: svc}
}

type recordCitationRequest struct {
	URL              string   `json:"url"`
	ConversationID   string   `json:"conversation_id"`
	RelatedEntityIDs []string `json:"related_entity_ids,omitempty"`
}

func (h *CitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recordCitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation_id")
		return
	}

	related := make([]uuid.UUID, 0, len(req.RelatedEntityIDs))
	for _, raw := range req.RelatedEntityIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid related entity id")
			return
		}
		related = append(related, id)
	}

	citation, err := h.svc.Record(r.Context(), req.URL, conversationID, related)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, citation)
}
