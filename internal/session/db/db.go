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

func (d *DB) GetActiveEventByToken(ctx context.Context, token string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event_token = ?", token).
		Where("status = ?", models.EventStatusActive).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetQRSourceByCode resolves a QR code within one event's scope only.
// Codes from other events never match.
func (d *DB) GetQRSourceByCode(ctx context.Context, eventID, code string) (*models.QRSource, error) {
	var qr models.QRSource
	err := d.Bun.NewSelect().
		Model(&qr).
		Where("event_id = ?", eventID).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

func (d *DB) CreateSession(ctx context.Context, session models.Session) error {
	_, err := d.Bun.NewInsert().Model(&session).Exec(ctx)
	return err
}

func (d *DB) GetSessionByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := d.Bun.NewSelect().
		Model(&session).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmissionExists reports whether a submission already references the
// (event, session) pair.
func (d *DB) SubmissionExists(ctx context.Context, eventID, sessionID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Submission)(nil)).
		Where("event_id = ?", eventID).
		Where("session_id = ?", sessionID).
		Exists(ctx)
}
