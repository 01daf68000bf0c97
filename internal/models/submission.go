package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Submission is the immutable, at-most-one-per-session commitment of a media
// asset plus consent to an event. The unique:submissions_event_session group
// is the correctness mechanism: concurrent submits for one session must lose
// at the storage layer, not at an application check.
type Submission struct {
	bun.BaseModel `bun:"table:submissions"`

	ID                string    `bun:"id,pk"`
	EventID           string    `bun:"event_id,notnull,unique:submissions_event_session"`
	SessionID         string    `bun:"session_id,notnull,unique:submissions_event_session"`
	MediaAssetID      string    `bun:"media_asset_id,notnull"`
	ContactEmail      string    `bun:"contact_email,nullzero"`
	ConsentAgreeReuse bool      `bun:"consent_agree_reuse,notnull,default:false"`
	ConsentTemplateID string    `bun:"consent_template_id,nullzero"`
	ConsentVersion    int       `bun:"consent_version,nullzero"`
	Status            string    `bun:"status,notnull,default:'valid'"`
	AdminTags         []string  `bun:"admin_tags"`
	AdminNote         string    `bun:"admin_note,nullzero"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

const SubmissionStatusValid = "valid"

type SubmitRequest struct {
	SessionID    string         `json:"session_id"`
	MediaAssetID string         `json:"media_asset_id"`
	Consent      SubmitConsent  `json:"consent"`
	Contact      *SubmitContact `json:"contact,omitempty"`
}

type SubmitConsent struct {
	AgreeReuse bool `json:"agree_reuse"`
}

type SubmitContact struct {
	Email string `json:"email"`
}

type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
	Locked       bool   `json:"locked"`
}
