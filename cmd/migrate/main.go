package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-photobooth/internal/config"
	"ms-photobooth/internal/database/migrations"
	"ms-photobooth/internal/models"
)

func main() {
	var (
		down = flag.Bool("down", false, "roll back all migrations")
		seed = flag.Bool("seed", false, "insert a demo event after migrating")
		dir  = flag.String("dir", "./migrations", "migrations directory")
	)
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(db, migrations.Options{MigrationsDir: *dir})
	defer runner.Close()

	if *down {
		log.Println("Rolling back migrations...")
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("Done.")
		return
	}

	log.Println("Running migrations...")
	if err := runner.MigrateUp(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if version, dirty, err := runner.Version(); err == nil {
		log.Printf("Schema version: %d (dirty=%v)", version, dirty)
	}

	if *seed {
		log.Println("Seeding demo data...")
		if err := seedDemo(ctx, db); err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
	}

	log.Println("Done.")
}

// seedDemo provisions one active event with a consent template and a QR
// source, enough to exercise the participant flow end to end.
func seedDemo(ctx context.Context, db *bun.DB) error {
	tenantID := "tenant-demo"

	template := models.ConsentTemplate{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Version:   1,
		Text:      "I agree to participate and allow my photo to be displayed at this event.",
		CreatedAt: time.Now(),
	}
	if _, err := db.NewInsert().Model(&template).Exec(ctx); err != nil {
		return err
	}

	event := models.Event{
		ID:                   uuid.New().String(),
		TenantID:             tenantID,
		EventToken:           strings.ReplaceAll(uuid.New().String(), "-", "")[:12],
		Name:                 "Launch Party 2026",
		Status:               models.EventStatusActive,
		RulesText:            "One photo per guest. Keep it friendly.",
		ShareCaptionTemplate: "Having a blast at {{event_name}}!",
		ShareHashtags:        []string{"#launchparty"},
		ShareTargets:         []string{"instagram", "x"},
		SubmissionMaxPerUser: 1,
		RetakeMaxCount:       3,
		ConsentTemplateID:    template.ID,
		CreatedAt:            time.Now(),
	}
	if _, err := db.NewInsert().Model(&event).Exec(ctx); err != nil {
		return err
	}

	source := models.QRSource{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Code:      "entrance",
		Label:     "Main entrance poster",
		CreatedAt: time.Now(),
	}
	if _, err := db.NewInsert().Model(&source).Exec(ctx); err != nil {
		return err
	}

	log.Printf("Seeded event %s (token %s)", event.ID, event.EventToken)
	return nil
}
