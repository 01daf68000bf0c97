package session_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/models"
	"ms-photobooth/internal/session"
	"ms-photobooth/internal/utils"
)

type Handler struct {
	Service *session.Service
	Logger  *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.StartSession)
	r.Get("/sessions/{sessionId}", h.ProbeSession)
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.EventToken == "" {
		utils.WriteError(w, http.StatusBadRequest, "event_token required")
		return
	}

	resp, err := h.Service.StartSession(r.Context(), req.EventToken, req.QRSourceCode)
	if err != nil {
		if !errors.Is(err, fault.ErrNotFound) {
			h.Logger.Error("API", fmt.Sprintf("StartSession: %v", err))
		}
		utils.WriteError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	h.Logger.LogSession("START", resp.SessionID, fmt.Sprintf("already_submitted=%v", resp.AlreadySubmitted))
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ProbeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	resp, err := h.Service.ProbeSession(r.Context(), sessionID)
	if err != nil {
		utils.WriteError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
