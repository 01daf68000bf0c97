package admin_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	admindb "ms-photobooth/internal/admin/db"
	"ms-photobooth/internal/auth"
	"ms-photobooth/internal/blob"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/metrics"
	"ms-photobooth/internal/models"
	"ms-photobooth/internal/qr"
	"ms-photobooth/internal/utils"
)

// Handler is the organizer surface: thin, tenant-filtered data access over
// the same storage the participant flow writes.
type Handler struct {
	DB      *admindb.DB
	Blobs   blob.Store
	QR      *qr.Generator
	Metrics *metrics.Service
	Logger  *logger.Logger
	ReadTTL time.Duration
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Route("/{eventId}", func(r chi.Router) {
			r.Patch("/", h.UpdateEvent)
			r.Get("/frames", h.ListFrames)
			r.Post("/frames", h.UploadFrame)
			r.Get("/qr-sources", h.ListQRSources)
			r.Post("/qr-sources", h.CreateQRSource)
			r.Get("/qr-sources/{qrId}/image", h.QRSourceImage)
			r.Get("/submissions", h.ListSubmissions)
			r.Patch("/submissions/{submissionId}", h.AnnotateSubmission)
			r.Get("/analytics", h.Analytics)
		})
	})
}

// ownEvent loads the event after the tenant ownership filter, writing the
// 404 itself when the filter rejects.
func (h *Handler) ownEvent(w http.ResponseWriter, r *http.Request) *models.Event {
	eventID := chi.URLParam(r, "eventId")
	event, err := h.DB.GetEventForTenant(r.Context(), eventID, auth.TenantID(r.Context()))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Not found")
		return nil
	}
	return event
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.DB.ListEvents(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		h.Logger.Error("ADMIN", fmt.Sprintf("ListEvents: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		utils.WriteError(w, http.StatusBadRequest, "name required")
		return
	}

	event := models.Event{
		ID:                   uuid.New().String(),
		TenantID:             auth.TenantID(r.Context()),
		EventToken:           newEventToken(),
		Name:                 name,
		Status:               models.EventStatusDraft,
		ShareHashtags:        []string{},
		ShareTargets:         []string{"instagram", "x"},
		SubmissionMaxPerUser: 1,
		RetakeMaxCount:       3,
		CreatedAt:            time.Now(),
	}
	if err := h.DB.CreateEvent(r.Context(), event); err != nil {
		h.Logger.Error("ADMIN", fmt.Sprintf("CreateEvent: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create event")
		return
	}
	h.Logger.Info("ADMIN", fmt.Sprintf("Event %s created by %s", event.ID, auth.UserID(r.Context())))
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"event": event})
}

// newEventToken mints the opaque 12-char participant token.
func newEventToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

var validStatusTransitions = map[string]map[string]bool{
	models.EventStatusDraft:  {models.EventStatusActive: true},
	models.EventStatusActive: {models.EventStatusClosed: true},
	models.EventStatusClosed: {},
}

type eventUpdateRequest struct {
	Name                 *string    `json:"name"`
	Status               *string    `json:"status"`
	StartsAt             *time.Time `json:"starts_at"`
	EndsAt               *time.Time `json:"ends_at"`
	RulesText            *string    `json:"rules_text"`
	ShareCaptionTemplate *string    `json:"share_caption_template"`
	ShareHashtags        []string   `json:"share_hashtags"`
	ShareTargets         []string   `json:"share_targets"`
	RetakeMaxCount       *int       `json:"retake_max_count"`
	RequireTicketCode    *bool      `json:"require_ticket_code"`
	ConsentTemplateID    *string    `json:"consent_template_id"`
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}

	var req eventUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Status != nil && *req.Status != event.Status {
		if !validStatusTransitions[event.Status][*req.Status] {
			utils.WriteError(w, http.StatusBadRequest,
				fmt.Sprintf("cannot transition %s to %s", event.Status, *req.Status))
			return
		}
		event.Status = *req.Status
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		event.Name = strings.TrimSpace(*req.Name)
	}
	if req.StartsAt != nil {
		event.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		event.EndsAt = *req.EndsAt
	}
	if req.RulesText != nil {
		event.RulesText = *req.RulesText
	}
	if req.ShareCaptionTemplate != nil {
		event.ShareCaptionTemplate = *req.ShareCaptionTemplate
	}
	if req.ShareHashtags != nil {
		event.ShareHashtags = req.ShareHashtags
	}
	if req.ShareTargets != nil {
		event.ShareTargets = req.ShareTargets
	}
	if req.RetakeMaxCount != nil && *req.RetakeMaxCount >= 1 {
		event.RetakeMaxCount = *req.RetakeMaxCount
	}
	if req.RequireTicketCode != nil {
		event.RequireTicketCode = *req.RequireTicketCode
	}
	if req.ConsentTemplateID != nil {
		event.ConsentTemplateID = *req.ConsentTemplateID
	}

	if err := h.DB.UpdateEventSettings(r.Context(), *event); err != nil {
		h.Logger.Error("ADMIN", fmt.Sprintf("UpdateEvent: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to update event")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"event": event})
}

func (h *Handler) ListFrames(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}

	frames, err := h.DB.ListFrames(r.Context(), event.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list frames")
		return
	}

	type frameView struct {
		models.Frame
		ImageURL string `json:"image_url"`
	}
	views := make([]frameView, 0, len(frames))
	for _, f := range frames {
		url := ""
		if f.StorageKey != "" {
			if signed, signErr := h.Blobs.SignedReadURL(f.StorageKey, h.ReadTTL); signErr == nil {
				url = signed
			}
		}
		views = append(views, frameView{Frame: f, ImageURL: url})
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"frames": views})
}

// UploadFrame reserves the frame row, writes the blob, then finalizes and
// activates in one transaction; the new frame becomes the event's single
// active one.
func (h *Handler) UploadFrame(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}

	if err := r.ParseMultipartForm(20 << 20); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil || header.Size == 0 {
		utils.WriteError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	frame := models.Frame{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		IsActive:  false,
		CreatedAt: time.Now(),
	}
	if err := h.DB.ReserveFrame(r.Context(), frame); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create frame")
		return
	}

	storageKey := fmt.Sprintf("frames/%s/%s.png", event.ID, frame.ID)
	if err := h.Blobs.Put(r.Context(), storageKey, header.Header.Get("Content-Type"), file); err != nil {
		if delErr := h.DB.DeleteFrame(r.Context(), frame.ID); delErr != nil {
			h.Logger.Error("ADMIN", fmt.Sprintf("UploadFrame cleanup: %v", delErr))
		}
		utils.WriteError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	if err := h.DB.FinalizeAndActivateFrame(r.Context(), event.ID, frame.ID, storageKey); err != nil {
		h.Logger.Error("ADMIN", fmt.Sprintf("UploadFrame finalize: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to activate frame")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"frame": map[string]string{"id": frame.ID, "storage_key": storageKey},
	})
}

func (h *Handler) ListQRSources(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}
	sources, err := h.DB.ListQRSources(r.Context(), event.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list QR sources")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"qr_sources": sources})
}

func (h *Handler) CreateQRSource(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}

	var body struct {
		Code  string `json:"code"`
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	code := strings.ReplaceAll(strings.TrimSpace(body.Code), " ", "_")
	if code == "" {
		code = "default"
	}

	source := models.QRSource{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Code:      code,
		Label:     body.Label,
		CreatedAt: time.Now(),
	}
	if err := h.DB.CreateQRSource(r.Context(), source); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create QR source")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"qr_source": source})
}

// QRSourceImage renders the participant entry URL for a QR source as PNG.
func (h *Handler) QRSourceImage(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}

	source, err := h.DB.GetQRSource(r.Context(), event.ID, chi.URLParam(r, "qrId"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	png, err := h.QR.GeneratePNG(event.EventToken, source.Code)
	if err != nil {
		h.Logger.Error("ADMIN", fmt.Sprintf("QRSourceImage: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("ADMIN", fmt.Sprintf("QRSourceImage write: %v", err))
	}
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}

	consentOnly := r.URL.Query().Get("consent") == "agree_reuse"
	submissions, err := h.DB.ListSubmissions(r.Context(), event.ID, consentOnly)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list submissions")
		return
	}

	type submissionView struct {
		models.Submission
		ImageURL string `json:"image_url"`
	}
	views := make([]submissionView, 0, len(submissions))
	for _, s := range submissions {
		url := ""
		if asset, assetErr := h.DB.GetAssetByID(r.Context(), s.MediaAssetID); assetErr == nil && asset.StorageKey != "" {
			if signed, signErr := h.Blobs.SignedReadURL(asset.StorageKey, h.ReadTTL); signErr == nil {
				url = signed
			}
		}
		views = append(views, submissionView{Submission: s, ImageURL: url})
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"submissions": views})
}

func (h *Handler) AnnotateSubmission(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}

	var body struct {
		AdminTags []string `json:"admin_tags"`
		AdminNote string   `json:"admin_note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	submissionID := chi.URLParam(r, "submissionId")
	err := h.DB.AnnotateSubmission(r.Context(), event.ID, submissionID, body.AdminTags, body.AdminNote)
	if err != nil {
		if admindb.IsNotFound(err) {
			utils.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to annotate submission")
		return
	}
	h.Logger.Info("ADMIN", fmt.Sprintf("Submission %s annotated by %s", submissionID, auth.UserID(r.Context())))
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	event := h.ownEvent(w, r)
	if event == nil {
		return
	}

	to := time.Now()
	from := to.Add(-7 * 24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			from = parsed
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			to = parsed
		}
	}

	summary, err := h.Metrics.Summarize(r.Context(), event.ID, from, to)
	if err != nil {
		h.Logger.Error("ADMIN", fmt.Sprintf("Analytics: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to summarize")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"summary": summary})
}
