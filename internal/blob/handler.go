package blob

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-photobooth/internal/logger"
)

// Handler serves signed media reads for the Disk store.
type Handler struct {
	Disk   *Disk
	Logger *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/media/*", h.ServeSigned)
}

func (h *Handler) ServeSigned(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	token := r.URL.Query().Get("token")
	if key == "" || token == "" {
		http.Error(w, "missing key or token", http.StatusBadRequest)
		return
	}

	if err := h.Disk.VerifyReadToken(key, token); err != nil {
		h.Logger.Warn("MEDIA", fmt.Sprintf("Rejected read for %s: %v", key, err))
		http.Error(w, "invalid or expired token", http.StatusForbidden)
		return
	}

	f, err := h.Disk.Open(key)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		h.Logger.Error("MEDIA", fmt.Sprintf("Failed streaming %s: %v", key, err))
	}
}
