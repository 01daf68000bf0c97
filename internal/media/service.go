package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/google/uuid"

	"ms-photobooth/internal/blob"
	"ms-photobooth/internal/fault"
	"ms-photobooth/internal/flagcache"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/models"
)

type DBLayer interface {
	GetSessionByID(ctx context.Context, id string) (*models.Session, error)
	SubmissionExists(ctx context.Context, eventID, sessionID string) (bool, error)
	ReserveAsset(ctx context.Context, asset models.MediaAsset) error
	FinalizeAsset(ctx context.Context, assetID, storageKey string) error
	DeleteAsset(ctx context.Context, assetID string) error
	GetAssetByID(ctx context.Context, id string) (*models.MediaAsset, error)
}

type Service struct {
	DB        DBLayer
	Blobs     blob.Store
	Submitted *flagcache.Cache
	Logger    *logger.Logger
	ReadTTL   time.Duration
}

func NewService(db DBLayer, blobs blob.Store, submitted *flagcache.Cache, log *logger.Logger, readTTL time.Duration) *Service {
	if readTTL <= 0 {
		readTTL = time.Hour
	}
	return &Service{DB: db, Blobs: blobs, Submitted: submitted, Logger: log, ReadTTL: readTTL}
}

// Upload persists one image for a session: the asset row is reserved first,
// then the binary is written, then the row is finalized with the real key.
// A failed binary write deletes the reservation. Uploads are only meaningful
// before submission, so a submitted session gets AlreadySubmitted.
func (s *Service) Upload(ctx context.Context, sessionID, contentType string, size int64, body io.Reader) (*models.UploadResponse, error) {
	sess, err := s.DB.GetSessionByID(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", fault.ErrUnavailable)
	}

	if s.Submitted.WasSubmitted(ctx, sessionID) {
		return nil, fault.ErrAlreadySubmitted
	}
	submitted, err := s.DB.SubmissionExists(ctx, sess.EventID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("submission probe: %w", fault.ErrUnavailable)
	}
	if submitted {
		return nil, fault.ErrAlreadySubmitted
	}

	if contentType == "" {
		contentType = "image/jpeg"
	}

	asset := models.MediaAsset{
		ID:          uuid.New().String(),
		EventID:     sess.EventID,
		SessionID:   sessionID,
		StorageKey:  "",
		ContentType: contentType,
		ByteSize:    size,
		CreatedAt:   time.Now(),
	}
	if err := s.DB.ReserveAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("reserve asset: %w", fault.ErrUnavailable)
	}

	storageKey := fmt.Sprintf("uploads/%s/%s%s", sess.EventID, asset.ID, extensionFor(contentType))
	if err := s.Blobs.Put(ctx, storageKey, contentType, body); err != nil {
		// No orphaned rows referencing missing binaries.
		if delErr := s.DB.DeleteAsset(ctx, asset.ID); delErr != nil {
			s.Logger.Error("MEDIA", fmt.Sprintf("Failed to clean up reserved asset %s: %v", asset.ID, delErr))
		}
		return nil, fmt.Errorf("blob write: %w", fault.ErrUnavailable)
	}

	if err := s.DB.FinalizeAsset(ctx, asset.ID, storageKey); err != nil {
		if delErr := s.Blobs.Delete(ctx, storageKey); delErr != nil {
			s.Logger.Error("MEDIA", fmt.Sprintf("Failed to delete blob %s after finalize error: %v", storageKey, delErr))
		}
		if delErr := s.DB.DeleteAsset(ctx, asset.ID); delErr != nil {
			s.Logger.Error("MEDIA", fmt.Sprintf("Failed to clean up reserved asset %s: %v", asset.ID, delErr))
		}
		return nil, fmt.Errorf("finalize asset: %w", fault.ErrUnavailable)
	}

	readURL, err := s.Blobs.SignedReadURL(storageKey, s.ReadTTL)
	if err != nil {
		s.Logger.Warn("MEDIA", fmt.Sprintf("Could not sign read URL for %s: %v", storageKey, err))
		readURL = ""
	}

	s.Logger.LogMedia("UPLOAD", asset.ID, fmt.Sprintf("session=%s bytes=%d", sessionID, size))

	return &models.UploadResponse{MediaAssetID: asset.ID, ReadURL: readURL}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}
