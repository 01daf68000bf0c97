package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event lifecycle statuses. Events are never deleted, only transitioned.
const (
	EventStatusDraft  = "draft"
	EventStatusActive = "active"
	EventStatusClosed = "closed"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID                   string    `bun:"id,pk"`
	TenantID             string    `bun:"tenant_id,notnull"`
	EventToken           string    `bun:"event_token,unique,notnull"`
	Name                 string    `bun:"name,notnull"`
	Status               string    `bun:"status,notnull,default:'draft'"`
	StartsAt             time.Time `bun:"starts_at,nullzero"`
	EndsAt               time.Time `bun:"ends_at,nullzero"`
	RulesText            string    `bun:"rules_text"`
	ShareCaptionTemplate string    `bun:"share_caption_template"`
	ShareHashtags        []string  `bun:"share_hashtags"`
	ShareTargets         []string  `bun:"share_targets"`
	SubmissionMaxPerUser int       `bun:"submission_max_per_person,notnull,default:1"`
	RetakeMaxCount       int       `bun:"retake_max_count,notnull,default:3"`
	RequireTicketCode    bool      `bun:"require_ticket_code,notnull,default:false"`
	ConsentTemplateID    string    `bun:"consent_template_id,nullzero"`
	CreatedAt            time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type ConsentTemplate struct {
	bun.BaseModel `bun:"table:consent_templates"`

	ID        string    `bun:"id,pk"`
	TenantID  string    `bun:"tenant_id,notnull"`
	Version   int       `bun:"version,notnull,default:1"`
	Text      string    `bun:"text,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Frame is an overlay image for an event. At most one frame per event may be
// active at a time (enforced by a partial unique index).
type Frame struct {
	bun.BaseModel `bun:"table:frames"`

	ID         string    `bun:"id,pk"`
	EventID    string    `bun:"event_id,notnull"`
	StorageKey string    `bun:"storage_key,notnull"`
	IsActive   bool      `bun:"is_active,notnull,default:false"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// EventPublic is the read-only projection returned to participants. Every
// field is present even when empty: the client validates consent gating, the
// retake ceiling and share targets against this single contract.
type EventPublic struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	StartsAt             *time.Time             `json:"starts_at"`
	EndsAt               *time.Time             `json:"ends_at"`
	RulesText            string                 `json:"rules_text"`
	ShareCaptionTemplate string                 `json:"share_caption_template"`
	ShareHashtags        []string               `json:"share_hashtags"`
	ShareTargets         []string               `json:"share_targets"`
	FrameActive          *FramePublic           `json:"frame_active"`
	ConsentTemplate      *ConsentTemplatePublic `json:"consent_template"`
	SubmissionPolicy     SubmissionPolicy       `json:"submission_policy"`
}

type FramePublic struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url"`
}

type ConsentTemplatePublic struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	Text    string `json:"text"`
}

type SubmissionPolicy struct {
	MaxSubmissionsPerPerson int  `json:"max_submissions_per_person"`
	AllowRetakeCount        int  `json:"allow_retake_count"`
	MaxCaptures             int  `json:"max_captures"`
	RequireTicketCode       bool `json:"require_ticket_code"`
}
