package handlers

import (
	"net/http"

	"github.com/distillkit/distill/internal/service"
)

type PipelineHandler struct {
	decay *service.DecayService
}

func NewPipelineHandler(decay *service.DecayService) *PipelineHandler {
	return &PipelineHandler{decay: decay}
}

// TriggerDecay runs one decay pass immediately. The 24h rolling guard still
// applies; a skipped run is reported, not an error.
func (h *PipelineHandler) TriggerDecay(w http.ResponseWriter, r *http.Request) {
	result := h.decay.RunDecay(r.Context())
	writeJSON(w, http.StatusOK, result)
}
