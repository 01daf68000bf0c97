package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-photobooth/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) InsertMetric(ctx context.Context, metric models.MetricsEvent) error {
	_, err := d.Bun.NewInsert().Model(&metric).Exec(ctx)
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

// CountByType returns per-type totals for one event over a window.
func (d *DB) CountByType(ctx context.Context, eventID string, from, to time.Time) (map[string]int, error) {
	type row struct {
		Type  string `bun:"type"`
		Count int    `bun:"count"`
	}
	var rows []row
	err := d.Bun.NewSelect().
		Model((*models.MetricsEvent)(nil)).
		ColumnExpr("type").
		ColumnExpr("COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		GroupExpr("type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}

// CountOutboundByPlatform breaks outbound_click totals down by platform.
func (d *DB) CountOutboundByPlatform(ctx context.Context, eventID string, from, to time.Time) (map[string]int, error) {
	type row struct {
		Platform string `bun:"platform"`
		Count    int    `bun:"count"`
	}
	var rows []row
	err := d.Bun.NewSelect().
		Model((*models.MetricsEvent)(nil)).
		ColumnExpr("platform").
		ColumnExpr("COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Where("type = ?", models.MetricOutboundClick).
		Where("platform IS NOT NULL AND platform != ''").
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		GroupExpr("platform").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Platform] = r.Count
	}
	return counts, nil
}

// CountValidSubmissions returns total valid submissions and how many carry
// reuse consent, for the consent_agree_rate derivation.
func (d *DB) CountValidSubmissions(ctx context.Context, eventID string, from, to time.Time) (total int, agreed int, err error) {
	total, err = d.Bun.NewSelect().
		Model((*models.Submission)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", models.SubmissionStatusValid).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}

	agreed, err = d.Bun.NewSelect().
		Model((*models.Submission)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", models.SubmissionStatusValid).
		Where("consent_agree_reuse = ?", true).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return total, agreed, nil
}
