package submission_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/models"
	"ms-photobooth/internal/submission"
	"ms-photobooth/internal/utils"
)

type Handler struct {
	Service *submission.Service
	Logger  *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/submissions", h.Submit)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.SessionID == "" || req.MediaAssetID == "" {
		utils.WriteError(w, http.StatusBadRequest, "session_id and media_asset_id required")
		return
	}

	resp, err := h.Service.Submit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, fault.ErrAlreadySubmitted):
			h.Logger.LogSubmission("CONFLICT", req.SessionID, "duplicate submit rejected")
		case errors.Is(err, fault.ErrInvalidSession), errors.Is(err, fault.ErrInvalidAsset):
			// terminal client-state errors, no server-side alarm
		default:
			h.Logger.Error("API", fmt.Sprintf("Submit: %v", err))
		}
		utils.WriteError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
