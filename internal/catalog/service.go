package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/models"
)

type DBLayer interface {
	GetActiveEventByToken(ctx context.Context, token string) (*models.Event, error)
	GetConsentTemplate(ctx context.Context, id string) (*models.ConsentTemplate, error)
	GetActiveFrame(ctx context.Context, eventID string) (*models.Frame, error)
}

// FrameSigner issues time-boxed read URLs for frame images. Satisfied by the
// blob store.
type FrameSigner interface {
	SignedReadURL(key string, ttl time.Duration) (string, error)
}

type Service struct {
	DB       DBLayer
	Signer   FrameSigner
	FrameTTL time.Duration
}

func NewService(db DBLayer, signer FrameSigner, frameTTL time.Duration) *Service {
	if frameTTL <= 0 {
		frameTTL = time.Hour
	}
	return &Service{DB: db, Signer: signer, FrameTTL: frameTTL}
}

// ResolvePublicEvent returns the read-only projection the participant client
// depends on for all downstream validation. Every field is populated even
// when empty.
func (s *Service) ResolvePublicEvent(ctx context.Context, token string) (*models.EventPublic, error) {
	event, err := s.DB.GetActiveEventByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event lookup: %w", fault.ErrUnavailable)
	}

	pub := &models.EventPublic{
		ID:                   event.ID,
		Name:                 event.Name,
		RulesText:            event.RulesText,
		ShareCaptionTemplate: event.ShareCaptionTemplate,
		ShareHashtags:        event.ShareHashtags,
		ShareTargets:         event.ShareTargets,
		SubmissionPolicy: models.SubmissionPolicy{
			MaxSubmissionsPerPerson: event.SubmissionMaxPerUser,
			AllowRetakeCount:        event.RetakeMaxCount,
			MaxCaptures:             maxCaptures(event.RetakeMaxCount),
			RequireTicketCode:       event.RequireTicketCode,
		},
	}
	if !event.StartsAt.IsZero() {
		t := event.StartsAt
		pub.StartsAt = &t
	}
	if !event.EndsAt.IsZero() {
		t := event.EndsAt
		pub.EndsAt = &t
	}
	if pub.ShareHashtags == nil {
		pub.ShareHashtags = []string{}
	}
	if len(pub.ShareTargets) == 0 {
		pub.ShareTargets = []string{"instagram", "x"}
	}

	if event.ConsentTemplateID != "" {
		ct, err := s.DB.GetConsentTemplate(ctx, event.ConsentTemplateID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			// Serving the projection without its consent template would let
			// the client skip a gate the event requires.
			return nil, fmt.Errorf("consent template lookup: %w", fault.ErrUnavailable)
		}
		if err == nil && ct != nil {
			pub.ConsentTemplate = &models.ConsentTemplatePublic{
				ID:      ct.ID,
				Version: ct.Version,
				Text:    ct.Text,
			}
		}
	}

	frame, err := s.DB.GetActiveFrame(ctx, event.ID)
	if err == nil && frame != nil && frame.StorageKey != "" {
		if url, signErr := s.Signer.SignedReadURL(frame.StorageKey, s.FrameTTL); signErr == nil {
			pub.FrameActive = &models.FramePublic{ID: frame.ID, ImageURL: url}
		}
	}

	return pub, nil
}

// maxCaptures derives the capture ceiling: the first shot plus retakes, never
// below one.
func maxCaptures(retakeMax int) int {
	if retakeMax < 1 {
		return 1
	}
	return retakeMax
}
