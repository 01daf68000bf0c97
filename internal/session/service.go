package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/models"
)

type DBLayer interface {
	GetActiveEventByToken(ctx context.Context, token string) (*models.Event, error)
	GetQRSourceByCode(ctx context.Context, eventID, code string) (*models.QRSource, error)
	CreateSession(ctx context.Context, session models.Session) error
	GetSessionByID(ctx context.Context, id string) (*models.Session, error)
	SubmissionExists(ctx context.Context, eventID, sessionID string) (bool, error)
}

// MetricsRecorder appends funnel facts. Recording is best-effort and must
// never fail session creation.
type MetricsRecorder interface {
	Record(ctx context.Context, eventID, sessionID, metricType, platform, qrSourceID string)
}

type Service struct {
	DB      DBLayer
	Metrics MetricsRecorder
}

func NewService(db DBLayer, metrics MetricsRecorder) *Service {
	return &Service{DB: db, Metrics: metrics}
}

// StartSession creates a new session bound to one active event and reports
// whether that session has already submitted. A brand-new session never has,
// but the same operation serves resume flows where a client replays a cached
// session id through ProbeSession. Creating a session is always safe to
// retry: it has no side effects until a submission attaches to it.
func (s *Service) StartSession(ctx context.Context, eventToken, qrSourceCode string) (*models.SessionStartResponse, error) {
	event, err := s.DB.GetActiveEventByToken(ctx, eventToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event lookup: %w", fault.ErrUnavailable)
	}

	qrSourceID := ""
	if qrSourceCode != "" {
		// Attribution only: an unknown or foreign code degrades to an
		// untagged session rather than an error.
		qr, qrErr := s.DB.GetQRSourceByCode(ctx, event.ID, qrSourceCode)
		if qrErr == nil && qr != nil {
			qrSourceID = qr.ID
		}
	}

	sess := models.Session{
		ID:         uuid.New().String(),
		EventID:    event.ID,
		QRSourceID: qrSourceID,
		CreatedAt:  time.Now(),
	}
	if err := s.DB.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", fault.ErrUnavailable)
	}

	s.Metrics.Record(ctx, event.ID, sess.ID, models.MetricScan, "", qrSourceID)

	alreadySubmitted, err := s.DB.SubmissionExists(ctx, event.ID, sess.ID)
	if err != nil {
		// A fresh session cannot have submitted; degrade to false.
		alreadySubmitted = false
	}

	return &models.SessionStartResponse{
		SessionID:        sess.ID,
		AlreadySubmitted: alreadySubmitted,
	}, nil
}

// ProbeSession serves the resume flow: a client holding a cached session id
// asks whether that session is still open. InvalidSession when the row is
// gone; already_submitted=true routes the client straight to done.
func (s *Service) ProbeSession(ctx context.Context, sessionID string) (*models.SessionStartResponse, error) {
	sess, err := s.DB.GetSessionByID(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", fault.ErrUnavailable)
	}

	alreadySubmitted, err := s.DB.SubmissionExists(ctx, sess.EventID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("submission probe: %w", fault.ErrUnavailable)
	}

	return &models.SessionStartResponse{
		SessionID:        sess.ID,
		AlreadySubmitted: alreadySubmitted,
	}, nil
}
