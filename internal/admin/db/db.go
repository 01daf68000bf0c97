package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-photobooth/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
}

func (d *DB) ListEvents(ctx context.Context, tenantID string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEventForTenant is the ownership filter every admin operation goes
// through: tenant_id equality, nothing more.
func (d *DB) GetEventForTenant(ctx context.Context, eventID, tenantID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEventSettings writes the organizer-editable columns. Status moves
// through draft → active → closed; events are never deleted.
func (d *DB) UpdateEventSettings(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("name", "status", "starts_at", "ends_at", "rules_text",
			"share_caption_template", "share_hashtags", "share_targets",
			"submission_max_per_person", "retake_max_count",
			"require_ticket_code", "consent_template_id").
		Where("id = ?", event.ID).
		Where("tenant_id = ?", event.TenantID).
		Exec(ctx)
	return err
}

func (d *DB) ListFrames(ctx context.Context, eventID string) ([]models.Frame, error) {
	var frames []models.Frame
	err := d.Bun.NewSelect().
		Model(&frames).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return frames, nil
}

func (d *DB) ReserveFrame(ctx context.Context, frame models.Frame) error {
	_, err := d.Bun.NewInsert().Model(&frame).Exec(ctx)
	return err
}

func (d *DB) DeleteFrame(ctx context.Context, frameID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Frame)(nil)).
		Where("id = ?", frameID).
		Exec(ctx)
	return err
}

// FinalizeAndActivateFrame stamps the storage key and makes the frame the
// event's single active one. Deactivation and activation run in one
// transaction so the one-active-frame invariant never wobbles between
// statements.
func (d *DB) FinalizeAndActivateFrame(ctx context.Context, eventID, frameID, storageKey string) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.Frame)(nil)).
			Set("is_active = ?", false).
			Where("event_id = ?", eventID).
			Where("id != ?", frameID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.Frame)(nil)).
			Set("storage_key = ?", storageKey).
			Set("is_active = ?", true).
			Where("id = ?", frameID).
			Exec(ctx)
		return err
	})
}

func (d *DB) CreateQRSource(ctx context.Context, qr models.QRSource) error {
	_, err := d.Bun.NewInsert().Model(&qr).Exec(ctx)
	return err
}

func (d *DB) ListQRSources(ctx context.Context, eventID string) ([]models.QRSource, error) {
	var sources []models.QRSource
	err := d.Bun.NewSelect().
		Model(&sources).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func (d *DB) GetQRSource(ctx context.Context, eventID, qrID string) (*models.QRSource, error) {
	var qr models.QRSource
	err := d.Bun.NewSelect().
		Model(&qr).
		Where("id = ?", qrID).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

func (d *DB) ListSubmissions(ctx context.Context, eventID string, consentOnly bool) ([]models.Submission, error) {
	var submissions []models.Submission
	q := d.Bun.NewSelect().
		Model(&submissions).
		Where("event_id = ?", eventID).
		Where("status = ?", models.SubmissionStatusValid).
		Order("created_at DESC")
	if consentOnly {
		q = q.Where("consent_agree_reuse = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (d *DB) GetAssetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	err := d.Bun.NewSelect().
		Model(&asset).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// AnnotateSubmission writes organizer notes only. Media, consent and contact
// fields stay immutable after commit.
func (d *DB) AnnotateSubmission(ctx context.Context, eventID, submissionID string, tags []string, note string) error {
	sub := models.Submission{ID: submissionID, EventID: eventID, AdminTags: tags, AdminNote: note}
	res, err := d.Bun.NewUpdate().
		Model(&sub).
		Column("admin_tags", "admin_note").
		Where("id = ?", submissionID).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsNotFound reports whether err means the row was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
