package metrics_api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/metrics"
	"ms-photobooth/internal/models"
	"ms-photobooth/internal/utils"
)

type Handler struct {
	Service *metrics.Service
	Logger  *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/metrics/batch", h.RecordBatch)
}

// RecordBatch accepts client funnel facts. Best-effort 200 unless the
// session itself is invalid.
func (h *Handler) RecordBatch(w http.ResponseWriter, r *http.Request) {
	var req models.MetricsBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.SessionID == "" || len(req.Events) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "session_id and events required")
		return
	}

	if err := h.Service.RecordBatch(r.Context(), req); err != nil {
		if errors.Is(err, fault.ErrInvalidSession) {
			utils.WriteError(w, fault.HTTPStatus(err), err.Error())
			return
		}
		// Recording problems stay invisible to the client.
	}

	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
