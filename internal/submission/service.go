package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/flagcache"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/models"
	subdb "ms-photobooth/internal/submission/db"
)

type DBLayer interface {
	GetSessionByID(ctx context.Context, id string) (*models.Session, error)
	GetAssetByID(ctx context.Context, id string) (*models.MediaAsset, error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	GetConsentTemplate(ctx context.Context, id string) (*models.ConsentTemplate, error)
	SubmissionExists(ctx context.Context, eventID, sessionID string) (bool, error)
	InsertSubmission(ctx context.Context, submission models.Submission) error
}

type MetricsRecorder interface {
	Record(ctx context.Context, eventID, sessionID, metricType, platform, qrSourceID string)
}

// Publisher streams submission-created events to the broker, best-effort.
type Publisher interface {
	Publish(topic, key string, payload interface{}) error
}

type Service struct {
	DB              DBLayer
	Metrics         MetricsRecorder
	Submitted       *flagcache.Cache
	Publisher       Publisher
	SubmissionTopic string
	Logger          *logger.Logger
}

func NewService(db DBLayer, metrics MetricsRecorder, submitted *flagcache.Cache, publisher Publisher, topic string, log *logger.Logger) *Service {
	return &Service{
		DB:              db,
		Metrics:         metrics,
		Submitted:       submitted,
		Publisher:       publisher,
		SubmissionTopic: topic,
		Logger:          log,
	}
}

// Submit is the single atomic-intent operation: it locks a session to exactly
// one submission. The early checks give fast, friendly failures; the insert
// under the (event_id, session_id) unique constraint is the guarantee, so a
// concurrent duplicate loses at the storage layer and surfaces as
// AlreadySubmitted. Retrying after an ambiguous failure is therefore safe.
func (s *Service) Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResponse, error) {
	sess, err := s.DB.GetSessionByID(ctx, req.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", fault.ErrUnavailable)
	}

	asset, err := s.DB.GetAssetByID(ctx, req.MediaAssetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrInvalidAsset
	}
	if err != nil {
		return nil, fmt.Errorf("asset lookup: %w", fault.ErrUnavailable)
	}
	// A stale or replayed asset id from another session must never commit.
	if asset.SessionID != sess.ID {
		return nil, fault.ErrInvalidAsset
	}

	// Fast path: flag, then storage probe. UX only; both can miss a racing
	// writer and the insert below still holds.
	if s.Submitted.WasSubmitted(ctx, sess.ID) {
		return nil, fault.ErrAlreadySubmitted
	}
	exists, err := s.DB.SubmissionExists(ctx, sess.EventID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("submission probe: %w", fault.ErrUnavailable)
	}
	if exists {
		return nil, fault.ErrAlreadySubmitted
	}

	sub := models.Submission{
		ID:                uuid.New().String(),
		EventID:           sess.EventID,
		SessionID:         sess.ID,
		MediaAssetID:      asset.ID,
		ConsentAgreeReuse: req.Consent.AgreeReuse,
		Status:            models.SubmissionStatusValid,
		CreatedAt:         time.Now(),
	}
	if req.Contact != nil {
		sub.ContactEmail = req.Contact.Email
	}

	// Snapshot the consent template version at commit time so later edits to
	// the template never alter historical consent records. A transient lookup
	// failure aborts the submit rather than committing without the snapshot.
	event, err := s.DB.GetEventByID(ctx, sess.EventID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event lookup for consent snapshot: %w", fault.ErrUnavailable)
	}
	if err == nil && event.ConsentTemplateID != "" {
		ct, ctErr := s.DB.GetConsentTemplate(ctx, event.ConsentTemplateID)
		if ctErr != nil && !errors.Is(ctErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("consent template lookup: %w", fault.ErrUnavailable)
		}
		if ctErr == nil {
			sub.ConsentTemplateID = ct.ID
			sub.ConsentVersion = ct.Version
		}
	}

	if err := s.DB.InsertSubmission(ctx, sub); err != nil {
		if errors.Is(err, subdb.ErrDuplicateSubmission) {
			s.Submitted.MarkSubmitted(ctx, sess.ID)
			return nil, fault.ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("insert submission: %w", fault.ErrUnavailable)
	}

	s.Submitted.MarkSubmitted(ctx, sess.ID)
	s.Metrics.Record(ctx, sess.EventID, sess.ID, models.MetricSubmitComplete, "", sess.QRSourceID)

	if s.Publisher != nil {
		if pubErr := s.Publisher.Publish(s.SubmissionTopic, sub.ID, sub); pubErr != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish submission %s: %v", sub.ID, pubErr))
		} else {
			s.Logger.LogKafka("PUBLISH", s.SubmissionTopic, fmt.Sprintf("submission %s", sub.ID))
		}
	}

	s.Logger.LogSubmission("COMMIT", sess.ID, fmt.Sprintf("submission=%s asset=%s", sub.ID, asset.ID))

	return &models.SubmitResponse{SubmissionID: sub.ID, Locked: true}, nil
}
