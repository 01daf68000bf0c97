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

// GetActiveEventByToken looks up an event by public token, active status
// only. Draft, closed and unknown tokens are indistinguishable to the caller.
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

// GetActiveFrame returns the event's single active frame, or nil when the
// event has none.
func (d *DB) GetActiveFrame(ctx context.Context, eventID string) (*models.Frame, error) {
	var frame models.Frame
	err := d.Bun.NewSelect().
		Model(&frame).
		Where("event_id = ?", eventID).
		Where("is_active = ?", true).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &frame, nil
}
