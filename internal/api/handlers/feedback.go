package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/distillkit/distill/internal/domain"
	"github.com/distillkit/distill/internal/service"
	"github.com/google/uuid"
)

type FeedbackHandler struct {
	scorer *service.ScorerService
}

func NewFeedbackHandler(scorer *service.ScorerService) *FeedbackHandler {
	return &FeedbackHandler{scorer: scorer}
}

type applyFeedbackRequest struct {
	EntityID string `json:"entity_id"`
	Signal   string `json:"signal"`
}

type applyFeedbackResponse struct {
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
	Signal   string  `json:"signal"`
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req applyFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entityID, err := uuid.Parse(req.EntityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity_id")
		return
	}

	signal := domain.FeedbackSignal(req.Signal)
	if !domain.ValidFeedbackSignal(signal) {
		writeError(w, http.StatusBadRequest, "invalid signal")
		return
	}

	entity, err := h.scorer.ApplyFeedback(r.Context(), entityID, signal)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to apply feedback")
		return
	}

	writeJSON(w, http.StatusOK, applyFeedbackResponse{
		EntityID: entity.ID.String(),
		Score:    entity.Belief.CurrentScore,
		Signal:   string(signal),
	})
}
