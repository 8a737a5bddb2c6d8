package handlers

import (
	"errors"
	"net/http"

	"github.com/distillkit/distill/internal/domain"
	"github.com/distillkit/distill/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type EntityHandler struct {
	scorer     *service.ScorerService
	reconciler *service.ReconcilerService
}

func NewEntityHandler(scorer *service.ScorerService, reconciler *service.ReconcilerService) *EntityHandler {
	return &EntityHandler{scorer: scorer, reconciler: reconciler}
}

type listEntitiesResponse struct {
	Entities []domain.EntityWithScore `json:"entities"`
	Count    int                      `json:"count"`
}

// List returns the visible entity set ranked by score, highest first.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	entities, err := h.scorer.VisibleEntities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entities")
		return
	}

	if t := r.URL.Query().Get("type"); t != "" {
		filtered := entities[:0]
		for _, e := range entities {
			if string(e.Type) == t {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	writeJSON(w, http.StatusOK, listEntitiesResponse{
		Entities: entities,
		Count:    len(entities),
	})
}

func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	if err := h.reconciler.DeleteEntity(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete entity")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
