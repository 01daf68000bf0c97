package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-photobooth/internal/catalog"
	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/models"
)

type MockCatalogDB struct {
	events      map[string]*models.Event // keyed by token
	templates   map[string]*models.ConsentTemplate
	frames      map[string]*models.Frame // keyed by eventID
	templateErr error
}

func NewMockCatalogDB() *MockCatalogDB {
	return &MockCatalogDB{
		events:    make(map[string]*models.Event),
		templates: make(map[string]*models.ConsentTemplate),
		frames:    make(map[string]*models.Frame),
	}
}

func (m *MockCatalogDB) GetActiveEventByToken(ctx context.Context, token string) (*models.Event, error) {
	e, ok := m.events[token]
	if !ok || e.Status != models.EventStatusActive {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (m *MockCatalogDB) GetConsentTemplate(ctx context.Context, id string) (*models.ConsentTemplate, error) {
	if m.templateErr != nil {
		return nil, m.templateErr
	}
	ct, ok := m.templates[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ct, nil
}

func (m *MockCatalogDB) GetActiveFrame(ctx context.Context, eventID string) (*models.Frame, error) {
	return m.frames[eventID], nil
}

type MockSigner struct{}

func (MockSigner) SignedReadURL(key string, ttl time.Duration) (string, error) {
	return "http://localhost/media/" + key + "?token=test", nil
}

func TestResolvePublicEventFillsEveryField(t *testing.T) {
	mockDB := NewMockCatalogDB()
	mockDB.events["tok-1"] = &models.Event{
		ID:             "event-1",
		EventToken:     "tok-1",
		Name:           "Test Event",
		Status:         models.EventStatusActive,
		RetakeMaxCount: 3,
		CreatedAt:      time.Now(),
	}
	svc := catalog.NewService(mockDB, MockSigner{}, time.Hour)

	pub, err := svc.ResolvePublicEvent(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("ResolvePublicEvent failed: %v", err)
	}

	// The projection is the client's whole contract; absent configuration
	// still produces concrete values, never nulls.
	if pub.ShareHashtags == nil || len(pub.ShareHashtags) != 0 {
		t.Errorf("Expected empty hashtag list, got %v", pub.ShareHashtags)
	}
	if len(pub.ShareTargets) != 2 || pub.ShareTargets[0] != "instagram" || pub.ShareTargets[1] != "x" {
		t.Errorf("Expected default share targets, got %v", pub.ShareTargets)
	}
	if pub.ConsentTemplate != nil {
		t.Error("Expected no consent template")
	}
	if pub.FrameActive != nil {
		t.Error("Expected no active frame")
	}
	if pub.SubmissionPolicy.MaxCaptures != 3 {
		t.Errorf("Expected max captures 3, got %d", pub.SubmissionPolicy.MaxCaptures)
	}
}

func TestResolvePublicEventMaxCapturesFloor(t *testing.T) {
	mockDB := NewMockCatalogDB()
	mockDB.events["tok-1"] = &models.Event{
		ID:             "event-1",
		EventToken:     "tok-1",
		Status:         models.EventStatusActive,
		RetakeMaxCount: 0,
	}
	svc := catalog.NewService(mockDB, MockSigner{}, time.Hour)

	pub, err := svc.ResolvePublicEvent(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("ResolvePublicEvent failed: %v", err)
	}
	if pub.SubmissionPolicy.MaxCaptures != 1 {
		t.Errorf("Expected max captures floor of 1, got %d", pub.SubmissionPolicy.MaxCaptures)
	}
}

func TestResolvePublicEventIncludesConsentAndFrame(t *testing.T) {
	mockDB := NewMockCatalogDB()
	mockDB.events["tok-1"] = &models.Event{
		ID:                "event-1",
		EventToken:        "tok-1",
		Status:            models.EventStatusActive,
		RetakeMaxCount:    2,
		ConsentTemplateID: "ct-1",
		ShareHashtags:     []string{"#party"},
		ShareTargets:      []string{"x"},
	}
	mockDB.templates["ct-1"] = &models.ConsentTemplate{ID: "ct-1", Version: 7, Text: "I agree."}
	mockDB.frames["event-1"] = &models.Frame{
		ID:         "frame-1",
		EventID:    "event-1",
		StorageKey: "frames/event-1/frame-1.png",
		IsActive:   true,
	}
	svc := catalog.NewService(mockDB, MockSigner{}, time.Hour)

	pub, err := svc.ResolvePublicEvent(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("ResolvePublicEvent failed: %v", err)
	}

	if pub.ConsentTemplate == nil || pub.ConsentTemplate.Version != 7 {
		t.Errorf("Consent template missing or wrong version: %+v", pub.ConsentTemplate)
	}
	if pub.FrameActive == nil {
		t.Fatal("Expected active frame")
	}
	if pub.FrameActive.ImageURL == "" {
		t.Error("Expected a signed frame URL")
	}
	if len(pub.ShareHashtags) != 1 || pub.ShareHashtags[0] != "#party" {
		t.Errorf("Configured hashtags not carried through: %v", pub.ShareHashtags)
	}
	if len(pub.ShareTargets) != 1 || pub.ShareTargets[0] != "x" {
		t.Errorf("Configured targets must not be overwritten: %v", pub.ShareTargets)
	}
}

func TestResolvePublicEventHidesInactiveEvents(t *testing.T) {
	mockDB := NewMockCatalogDB()
	mockDB.events["tok-draft"] = &models.Event{ID: "e1", EventToken: "tok-draft", Status: models.EventStatusDraft}
	mockDB.events["tok-closed"] = &models.Event{ID: "e2", EventToken: "tok-closed", Status: models.EventStatusClosed}
	svc := catalog.NewService(mockDB, MockSigner{}, time.Hour)

	// Draft, closed and unknown tokens are indistinguishable to the caller
	for _, token := range []string{"tok-draft", "tok-closed", "tok-unknown"} {
		_, err := svc.ResolvePublicEvent(context.Background(), token)
		if !errors.Is(err, fault.ErrNotFound) {
			t.Errorf("Token %s: expected ErrNotFound, got %v", token, err)
		}
	}
}

func TestResolvePublicEventFailsWhenConsentLookupIsTransient(t *testing.T) {
	mockDB := NewMockCatalogDB()
	mockDB.events["tok-1"] = &models.Event{
		ID:                "event-1",
		EventToken:        "tok-1",
		Status:            models.EventStatusActive,
		ConsentTemplateID: "ct-1",
	}
	mockDB.templateErr = errors.New("connection reset")
	svc := catalog.NewService(mockDB, MockSigner{}, time.Hour)

	// A projection served without its consent template would let the client
	// skip the consent gate, so a transient failure must not degrade.
	_, err := svc.ResolvePublicEvent(context.Background(), "tok-1")
	if !errors.Is(err, fault.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}
