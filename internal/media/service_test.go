package media_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/flagcache"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/media"
	mediadb "ms-photobooth/internal/media/db"
	"ms-photobooth/internal/models"
)

// fakeBlobStore keeps blobs in memory and can be told to fail writes.
type fakeBlobStore struct {
	blobs    map[string][]byte
	failPuts bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	if f.failPuts {
		return errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	delete(f.blobs, key)
	return nil
}

func (f *fakeBlobStore) SignedReadURL(key string, ttl time.Duration) (string, error) {
	return "http://localhost/media/" + key + "?token=test", nil
}

func setupTestDB(t *testing.T) *mediadb.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	err = bunDB.ResetModel(context.Background(),
		(*models.Session)(nil),
		(*models.MediaAsset)(nil),
		(*models.Submission)(nil),
	)
	if err != nil {
		t.Fatalf("Failed to reset models: %v", err)
	}

	t.Cleanup(func() { bunDB.Close() })
	return &mediadb.DB{Bun: bunDB}
}

func seedSession(t *testing.T, dbLayer *mediadb.DB, sessionID string) {
	t.Helper()
	session := models.Session{ID: sessionID, EventID: "event-1", CreatedAt: time.Now()}
	if _, err := dbLayer.Bun.NewInsert().Model(&session).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}
}

func newService(dbLayer *mediadb.DB, blobs *fakeBlobStore) *media.Service {
	return media.NewService(dbLayer, blobs, flagcache.New(nil, 0), &logger.Logger{}, time.Hour)
}

func TestUploadReservesWritesAndFinalizes(t *testing.T) {
	dbLayer := setupTestDB(t)
	seedSession(t, dbLayer, "sess-1")
	blobs := newFakeBlobStore()
	svc := newService(dbLayer, blobs)
	ctx := context.Background()

	payload := []byte("jpeg bytes")
	resp, err := svc.Upload(ctx, "sess-1", "image/jpeg", int64(len(payload)), bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.MediaAssetID == "" {
		t.Fatal("Expected an asset id")
	}
	if resp.ReadURL == "" {
		t.Error("Expected a signed read URL")
	}

	asset, err := dbLayer.GetAssetByID(ctx, resp.MediaAssetID)
	if err != nil {
		t.Fatalf("Failed to read asset back: %v", err)
	}
	if asset.StorageKey == "" {
		t.Error("Asset row was not finalized with a storage key")
	}
	if !strings.HasSuffix(asset.StorageKey, ".jpg") {
		t.Errorf("Expected .jpg key, got %s", asset.StorageKey)
	}
	if asset.SessionID != "sess-1" || asset.EventID != "event-1" {
		t.Errorf("Asset bound to wrong session/event: %+v", asset)
	}

	if _, ok := blobs.blobs[asset.StorageKey]; !ok {
		t.Error("Blob not written under the finalized key")
	}
}

func TestUploadRejectsUnknownSession(t *testing.T) {
	dbLayer := setupTestDB(t)
	svc := newService(dbLayer, newFakeBlobStore())

	_, err := svc.Upload(context.Background(), "no-such-session", "image/jpeg", 4, strings.NewReader("data"))
	if !errors.Is(err, fault.ErrInvalidSession) {
		t.Errorf("Expected ErrInvalidSession, got %v", err)
	}
}

func TestUploadRejectsSubmittedSession(t *testing.T) {
	dbLayer := setupTestDB(t)
	seedSession(t, dbLayer, "sess-1")
	svc := newService(dbLayer, newFakeBlobStore())
	ctx := context.Background()

	sub := models.Submission{
		ID:           "sub-1",
		EventID:      "event-1",
		SessionID:    "sess-1",
		MediaAssetID: "asset-0",
		Status:       models.SubmissionStatusValid,
		CreatedAt:    time.Now(),
	}
	if _, err := dbLayer.Bun.NewInsert().Model(&sub).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert submission: %v", err)
	}

	_, err := svc.Upload(ctx, "sess-1", "image/jpeg", 4, strings.NewReader("data"))
	if !errors.Is(err, fault.ErrAlreadySubmitted) {
		t.Errorf("Expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestFailedBlobWriteCleansUpReservation(t *testing.T) {
	dbLayer := setupTestDB(t)
	seedSession(t, dbLayer, "sess-1")
	blobs := newFakeBlobStore()
	blobs.failPuts = true
	svc := newService(dbLayer, blobs)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "sess-1", "image/jpeg", 4, strings.NewReader("data"))
	if !errors.Is(err, fault.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}

	// The reserved row must be gone: no orphaned rows referencing missing
	// binaries.
	count, err := dbLayer.Bun.NewSelect().
		Model((*models.MediaAsset)(nil)).
		Where("session_id = ?", "sess-1").
		Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count assets: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no asset rows after failed write, got %d", count)
	}

	// The session is not poisoned: the retry upload succeeds.
	blobs.failPuts = false
	resp, err := svc.Upload(ctx, "sess-1", "image/jpeg", 4, strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Retry upload failed: %v", err)
	}
	if resp.MediaAssetID == "" {
		t.Error("Expected an asset id on retry")
	}
}

func TestUploadDefaultsContentType(t *testing.T) {
	dbLayer := setupTestDB(t)
	seedSession(t, dbLayer, "sess-1")
	svc := newService(dbLayer, newFakeBlobStore())

	resp, err := svc.Upload(context.Background(), "sess-1", "", 4, strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	asset, err := dbLayer.GetAssetByID(context.Background(), resp.MediaAssetID)
	if err != nil {
		t.Fatalf("Failed to read asset back: %v", err)
	}
	if asset.ContentType != "image/jpeg" {
		t.Errorf("Expected image/jpeg default, got %s", asset.ContentType)
	}
}
