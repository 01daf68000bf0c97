// Package blob holds the storage collaborator boundary. The core depends on
// Store only; Disk is the in-tree default implementation with JWT-signed,
// time-boxed read URLs.
package blob

import (
	"context"
	"io"
	"time"
)

type Store interface {
	// Put writes the binary under key, creating parent paths as needed.
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	// Delete removes the binary. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// SignedReadURL returns a read URL that expires after ttl.
	SignedReadURL(key string, ttl time.Duration) (string, error)
}
