package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Session is one participant visit, scoped to one event. It carries no
// participant identity; its only derived property of interest is whether a
// Submission already references it.
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	ID         string    `bun:"id,pk"`
	EventID    string    `bun:"event_id,notnull"`
	QRSourceID string    `bun:"qr_source_id,nullzero"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// QRSource is a labeled entry point, used only for analytics attribution.
type QRSource struct {
	bun.BaseModel `bun:"table:qr_sources"`

	ID        string    `bun:"id,pk"`
	EventID   string    `bun:"event_id,notnull,unique:qr_sources_event_code"`
	Code      string    `bun:"code,notnull,unique:qr_sources_event_code"`
	Label     string    `bun:"label,nullzero"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type SessionStartRequest struct {
	EventToken   string `json:"event_token"`
	QRSourceCode string `json:"qr_source_code,omitempty"`
}

type SessionStartResponse struct {
	SessionID        string `json:"session_id"`
	AlreadySubmitted bool   `json:"already_submitted"`
}
