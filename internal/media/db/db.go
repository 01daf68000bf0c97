package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-photobooth/internal/models"
)

type DB struct {
	Bun *bun.DB
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

func (d *DB) SubmissionExists(ctx context.Context, eventID, sessionID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Submission)(nil)).
		Where("event_id = ?", eventID).
		Where("session_id = ?", sessionID).
		Exists(ctx)
}

// ReserveAsset inserts the asset row before the binary write. StorageKey is
// empty until FinalizeAsset runs.
func (d *DB) ReserveAsset(ctx context.Context, asset models.MediaAsset) error {
	_, err := d.Bun.NewInsert().Model(&asset).Exec(ctx)
	return err
}

// FinalizeAsset stamps the real storage key after a successful binary write.
func (d *DB) FinalizeAsset(ctx context.Context, assetID, storageKey string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.MediaAsset)(nil)).
		Set("storage_key = ?", storageKey).
		Where("id = ?", assetID).
		Exec(ctx)
	return err
}

// DeleteAsset removes a reserved row whose binary write failed, so no asset
// row outlives its binary.
func (d *DB) DeleteAsset(ctx context.Context, assetID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.MediaAsset)(nil)).
		Where("id = ?", assetID).
		Exec(ctx)
	return err
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
