package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/distillkit/distill/internal/domain"
	"github.com/distillkit/distill/internal/service"
)

type ImportHandler struct {
	svc *service.ImporterService
}

func NewImportHandler(svc *service.ImporterService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

type importRequest struct {
	Items []importItem `json:"items"`
}

type importItem struct {
	Text         string `json:"text"`
	PlatformHint string `json:"platform_hint,omitempty"`
}

func (h *ImportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	items := make([]service.ImportItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Text == "" {
			writeError(w, http.StatusBadRequest, "item text is required")
			return
		}
		items = append(items, service.ImportItem{
			Text:         it.Text,
			PlatformHint: domain.Platform(it.PlatformHint),
		})
	}

	result, err := h.svc.Import(r.Context(), items)
	if err != nil {
		// Partial results are preserved; report them alongside the failure.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "import failed",
			"result": result,
		})
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
