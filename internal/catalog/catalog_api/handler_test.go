package catalog_api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"ms-photobooth/internal/catalog"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/models"
)

type stubDB struct {
	event       *models.Event
	templateErr error
}

func (s *stubDB) GetActiveEventByToken(ctx context.Context, token string) (*models.Event, error) {
	if s.event == nil || s.event.EventToken != token {
		return nil, sql.ErrNoRows
	}
	return s.event, nil
}

func (s *stubDB) GetConsentTemplate(ctx context.Context, id string) (*models.ConsentTemplate, error) {
	if s.templateErr != nil {
		return nil, s.templateErr
	}
	return nil, sql.ErrNoRows
}

func (s *stubDB) GetActiveFrame(ctx context.Context, eventID string) (*models.Frame, error) {
	return nil, nil
}

type stubSigner struct{}

func (stubSigner) SignedReadURL(key string, ttl time.Duration) (string, error) {
	return "http://localhost/media/" + key, nil
}

func newTestRouter(db *stubDB) *chi.Mux {
	handler := &Handler{
		Service: catalog.NewService(db, stubSigner{}, time.Hour),
		Logger:  &logger.Logger{},
	}
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestGetPublicEventEndpoint(t *testing.T) {
	db := &stubDB{
		event: &models.Event{
			ID:         "event-1",
			EventToken: "tok-1",
			Name:       "Launch Party",
			Status:     models.EventStatusActive,
			CreatedAt:  time.Now(),
		},
	}
	router := newTestRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/events/tok-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Event models.EventPublic `json:"event"`
	}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "event-1", body.Event.ID)
	assert.Equal(t, "Launch Party", body.Event.Name)
}

func TestGetPublicEventUnknownTokenIs404(t *testing.T) {
	router := newTestRouter(&stubDB{})

	req := httptest.NewRequest(http.MethodGet, "/events/no-such-token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body["error"], "not found")
}

func TestGetPublicEventTransientFailureIs503(t *testing.T) {
	db := &stubDB{
		event: &models.Event{
			ID:                "event-1",
			EventToken:        "tok-1",
			Status:            models.EventStatusActive,
			ConsentTemplateID: "ct-1",
		},
		templateErr: context.DeadlineExceeded,
	}
	router := newTestRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/events/tok-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// A retryable outage must not masquerade as a missing event
	var body map[string]string
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body["error"], "temporarily unavailable")
	assert.NotContains(t, body["error"], "not found")
}
