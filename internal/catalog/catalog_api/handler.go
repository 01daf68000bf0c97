package catalog_api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-photobooth/internal/catalog"
	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/utils"
)

type Handler struct {
	Service *catalog.Service
	Logger  *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events/{eventToken}", h.GetPublicEvent)
}

func (h *Handler) GetPublicEvent(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "eventToken")

	event, err := h.Service.ResolvePublicEvent(r.Context(), token)
	if err != nil {
		if !errors.Is(err, fault.ErrNotFound) {
			h.Logger.Error("API", fmt.Sprintf("GetPublicEvent: %v", err))
		}
		utils.WriteError(w, fault.HTTPStatus(err), err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"event": event})
}
