package db

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-photobooth/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ErrDuplicateSubmission marks an insert the (event_id, session_id) unique
// constraint rejected. The constraint, not the application check, is what
// guarantees at-most-one submission per session.
var ErrDuplicateSubmission = errors.New("duplicate submission for session")

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

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) GetConsentTemplate(ctx context.Context, id string) (*models.ConsentTemplate, error) {
	var ct models.ConsentTemplate
	err := d.Bun.NewSelect().
		Model(&ct).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (d *DB) SubmissionExists(ctx context.Context, eventID, sessionID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Submission)(nil)).
		Where("event_id = ?", eventID).
		Where("session_id = ?", sessionID).
		Exists(ctx)
}

// InsertSubmission commits the submission. A second writer for the same
// session loses at the storage layer and gets ErrDuplicateSubmission.
func (d *DB) InsertSubmission(ctx context.Context, submission models.Submission) error {
	_, err := d.Bun.NewInsert().Model(&submission).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateSubmission
	}
	return err
}

// isUniqueViolation recognizes duplicate-key errors from both backends:
// Postgres in production (lib/pq code 23505) and SQLite in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
