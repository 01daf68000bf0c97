package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Funnel metric types. scan and submit_complete are emitted server-side; the
// batch endpoint accepts only the client-originated types.
const (
	MetricScan           = "scan"
	MetricCameraComplete = "camera_complete"
	MetricSaveClick      = "save_click"
	MetricOutboundClick  = "outbound_click"
	MetricSubmitComplete = "submit_complete"
)

// MetricsEvent is an append-only funnel fact. Rows are never updated or
// deleted and are read only in aggregate.
type MetricsEvent struct {
	bun.BaseModel `bun:"table:metrics_events"`

	ID         string    `bun:"id,pk"`
	EventID    string    `bun:"event_id,notnull"`
	SessionID  string    `bun:"session_id,notnull"`
	Type       string    `bun:"type,notnull"`
	Platform   string    `bun:"platform,nullzero"`
	QRSourceID string    `bun:"qr_source_id,nullzero"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type MetricsBatchRequest struct {
	SessionID string             `json:"session_id"`
	Events    []MetricsBatchItem `json:"events"`
}

type MetricsBatchItem struct {
	Type     string `json:"type"`
	Platform string `json:"platform,omitempty"`
}

// MetricsSummary is the aggregate read side for one event and date window.
type MetricsSummary struct {
	Scan             int            `json:"scan"`
	CameraComplete   int            `json:"camera_complete"`
	SaveClick        int            `json:"save_click"`
	OutboundClick    map[string]int `json:"outbound_click"`
	SubmitComplete   int            `json:"submit_complete"`
	ConsentAgreeRate float64        `json:"consent_agree_rate"`
}
