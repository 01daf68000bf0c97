package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MediaAsset is an uploaded image bound to a session. The row is reserved
// before the binary write and finalized with the real storage key afterwards,
// so an empty StorageKey marks an in-flight reservation. The session binding
// is immutable once created.
type MediaAsset struct {
	bun.BaseModel `bun:"table:media_assets"`

	ID          string    `bun:"id,pk"`
	EventID     string    `bun:"event_id,notnull"`
	SessionID   string    `bun:"session_id,notnull"`
	StorageKey  string    `bun:"storage_key,notnull,default:''"`
	ContentType string    `bun:"content_type,notnull"`
	ByteSize    int64     `bun:"byte_size,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type UploadResponse struct {
	MediaAssetID string `json:"media_asset_id"`
	ReadURL      string `json:"read_url"`
}
