package blob

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	return NewDisk(t.TempDir(), "http://localhost:8086", "test-sign-secret")
}

func TestPutAndOpenRoundTrip(t *testing.T) {
	disk := newTestDisk(t)
	ctx := context.Background()

	err := disk.Put(ctx, "uploads/event-1/asset-1.jpg", "image/jpeg", strings.NewReader("jpeg bytes"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	f, err := disk.Open("uploads/event-1/asset-1.jpg")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("Unexpected content: %q", data)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	disk := newTestDisk(t)
	ctx := context.Background()

	if err := disk.Put(ctx, "uploads/a.jpg", "image/jpeg", strings.NewReader("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := disk.Delete(ctx, "uploads/a.jpg"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := disk.Delete(ctx, "uploads/a.jpg"); err != nil {
		t.Errorf("Second delete must be a no-op, got %v", err)
	}
}

func TestTraversalKeysStayUnderRoot(t *testing.T) {
	disk := newTestDisk(t)

	path, err := disk.cleanKey("../../etc/passwd")
	if err != nil {
		t.Fatalf("cleanKey errored: %v", err)
	}
	if !strings.HasPrefix(path, disk.Root) {
		t.Errorf("Traversal escaped the root: %s", path)
	}

	if _, err := disk.cleanKey(""); err == nil {
		t.Error("Empty key must be rejected")
	}
}

func TestSignedReadURLVerifies(t *testing.T) {
	disk := newTestDisk(t)

	signed, err := disk.SignedReadURL("uploads/event-1/asset-1.jpg", time.Hour)
	if err != nil {
		t.Fatalf("SignedReadURL failed: %v", err)
	}

	parsed, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("Signed URL does not parse: %v", err)
	}
	token := parsed.Query().Get("token")
	if token == "" {
		t.Fatal("Signed URL carries no token")
	}

	if err := disk.VerifyReadToken("uploads/event-1/asset-1.jpg", token); err != nil {
		t.Errorf("Token must verify for its own key: %v", err)
	}
	if err := disk.VerifyReadToken("uploads/event-1/other.jpg", token); err == nil {
		t.Error("Token must not verify for a different key")
	}
}

func TestExpiredReadTokenIsRejected(t *testing.T) {
	disk := newTestDisk(t)

	signed, err := disk.SignedReadURL("uploads/a.jpg", -time.Minute)
	if err != nil {
		t.Fatalf("SignedReadURL failed: %v", err)
	}
	parsed, _ := url.Parse(signed)

	if err := disk.VerifyReadToken("uploads/a.jpg", parsed.Query().Get("token")); err == nil {
		t.Error("Expired token must be rejected")
	}
}

func TestForeignSecretIsRejected(t *testing.T) {
	disk := newTestDisk(t)
	other := NewDisk(t.TempDir(), "http://localhost:8086", "another-secret")

	signed, err := other.SignedReadURL("uploads/a.jpg", time.Hour)
	if err != nil {
		t.Fatalf("SignedReadURL failed: %v", err)
	}
	parsed, _ := url.Parse(signed)

	if err := disk.VerifyReadToken("uploads/a.jpg", parsed.Query().Get("token")); err == nil {
		t.Error("Token signed with a foreign secret must be rejected")
	}
}
