package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/distillkit/distill/internal/domain"
	"github.com/distillkit/distill/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SuggestionHandler struct {
	reconciler *service.ReconcilerService
}

func NewSuggestionHandler(reconciler *service.ReconcilerService) *SuggestionHandler {
	return &SuggestionHandler{reconciler: reconciler}
}

type listSuggestionsResponse struct {
	Suggestions []domain.MergeSuggestion `json:"suggestions"`
}

// List returns today's unsnoozed merge suggestions, capped.
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.reconciler.PendingSuggestions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list suggestions")
		return
	}
	writeJSON(w, http.StatusOK, listSuggestionsResponse{Suggestions: suggestions})
}

type decideRequest struct {
	Outcome string `json:"outcome"`
}

func (h *SuggestionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid suggestion id")
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome := domain.MergeOutcome(req.Outcome)
	if !domain.ValidMergeOutcome(outcome) {
		writeError(w, http.StatusBadRequest, "outcome must be merged or kept_separate")
		return
	}

	if err := h.reconciler.Decide(r.Context(), id, outcome); err != nil {
		if errors.Is(err, domain.ErrSuggestionNotFound) {
			writeError(w, http.StatusNotFound, "suggestion not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to decide suggestion")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SuggestionHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid suggestion id")
		return
	}

	if err := h.reconciler.Snooze(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrSuggestionNotFound) {
			writeError(w, http.StatusNotFound, "suggestion not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to snooze suggestion")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
