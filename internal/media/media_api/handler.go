package media_api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/media"
	"ms-photobooth/internal/utils"
)

// maxUploadBytes caps a single kiosk photo; camera stills stay well under it.
const maxUploadBytes = 20 << 20

type Handler struct {
	Service *media.Service
	Logger  *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/uploads", h.Upload)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	sessionID := r.FormValue("session_id")
	file, header, err := r.FormFile("file")
	if sessionID == "" || err != nil || header.Size == 0 {
		utils.WriteError(w, http.StatusBadRequest, "session_id and file required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	resp, uploadErr := h.Service.Upload(r.Context(), sessionID, contentType, header.Size, file)
	if uploadErr != nil {
		if !errors.Is(uploadErr, fault.ErrInvalidSession) && !errors.Is(uploadErr, fault.ErrAlreadySubmitted) {
			h.Logger.Error("API", fmt.Sprintf("Upload: %v", uploadErr))
		}
		utils.WriteError(w, fault.HTTPStatus(uploadErr), uploadErr.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
