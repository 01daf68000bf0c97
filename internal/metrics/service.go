package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/models"
)

type DBLayer interface {
	InsertMetric(ctx context.Context, metric models.MetricsEvent) error
	GetSessionByID(ctx context.Context, id string) (*models.Session, error)
	CountByType(ctx context.Context, eventID string, from, to time.Time) (map[string]int, error)
	CountOutboundByPlatform(ctx context.Context, eventID string, from, to time.Time) (map[string]int, error)
	CountValidSubmissions(ctx context.Context, eventID string, from, to time.Time) (total int, agreed int, err error)
}

type Publisher interface {
	Publish(topic, key string, payload interface{}) error
}

// Service is the analytics recorder: a pure append write side that never
// blocks or fails a caller's primary operation, and an aggregate read side.
type Service struct {
	DB           DBLayer
	Publisher    Publisher
	MetricsTopic string
	Logger       *logger.Logger
}

func NewService(db DBLayer, publisher Publisher, topic string, log *logger.Logger) *Service {
	return &Service{DB: db, Publisher: publisher, MetricsTopic: topic, Logger: log}
}

// Record appends one funnel fact. Fire-and-forget: storage and broker
// failures are logged and swallowed so the caller's state transition is never
// blocked. Delivery is at-least-once at best, by design.
func (s *Service) Record(ctx context.Context, eventID, sessionID, metricType, platform, qrSourceID string) {
	metric := models.MetricsEvent{
		ID:         uuid.New().String(),
		EventID:    eventID,
		SessionID:  sessionID,
		Type:       metricType,
		Platform:   platform,
		QRSourceID: qrSourceID,
		CreatedAt:  time.Now(),
	}

	if err := s.DB.InsertMetric(ctx, metric); err != nil {
		s.Logger.Warn("METRICS", fmt.Sprintf("Dropped %s metric for session %s: %v", metricType, sessionID, err))
	}

	if s.Publisher != nil {
		if err := s.Publisher.Publish(s.MetricsTopic, sessionID, metric); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s metric: %v", metricType, err))
		}
	}
}

// clientMetricTypes are the only types the batch endpoint accepts; scan and
// submit_complete are server-emitted.
var clientMetricTypes = map[string]bool{
	models.MetricCameraComplete: true,
	models.MetricSaveClick:      true,
	models.MetricOutboundClick:  true,
}

// RecordBatch resolves the session once and appends each recognized item.
// Unknown types are dropped, not errored.
func (s *Service) RecordBatch(ctx context.Context, req models.MetricsBatchRequest) error {
	sess, err := s.DB.GetSessionByID(ctx, req.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return fault.ErrInvalidSession
	}
	if err != nil {
		return fmt.Errorf("session lookup: %w", fault.ErrUnavailable)
	}

	for _, item := range req.Events {
		if !clientMetricTypes[item.Type] {
			continue
		}
		s.Record(ctx, sess.EventID, sess.ID, item.Type, item.Platform, sess.QRSourceID)
	}
	return nil
}

// Summarize aggregates the funnel for one event over [from, to). The consent
// agree rate is 0 when no valid submissions exist in the window, never an
// error or NaN.
func (s *Service) Summarize(ctx context.Context, eventID string, from, to time.Time) (*models.MetricsSummary, error) {
	counts, err := s.DB.CountByType(ctx, eventID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count metrics: %w", fault.ErrUnavailable)
	}

	outbound, err := s.DB.CountOutboundByPlatform(ctx, eventID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count outbound clicks: %w", fault.ErrUnavailable)
	}
	if outbound == nil {
		outbound = map[string]int{}
	}

	total, agreed, err := s.DB.CountValidSubmissions(ctx, eventID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", fault.ErrUnavailable)
	}

	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(agreed)/float64(total)*100) / 100
	}

	return &models.MetricsSummary{
		Scan:             counts[models.MetricScan],
		CameraComplete:   counts[models.MetricCameraComplete],
		SaveClick:        counts[models.MetricSaveClick],
		OutboundClick:    outbound,
		SubmitComplete:   counts[models.MetricSubmitComplete],
		ConsentAgreeRate: rate,
	}, nil
}
