package qr_test

import (
	"bytes"
	"testing"

	"ms-photobooth/internal/qr"
)

func TestEntryURL(t *testing.T) {
	gen := qr.NewGenerator("http://localhost:8086")

	url := gen.EntryURL("abc123", "")
	if url != "http://localhost:8086/e/abc123" {
		t.Errorf("Unexpected entry URL: %s", url)
	}

	url = gen.EntryURL("abc123", "main entrance")
	if url != "http://localhost:8086/e/abc123?src=main+entrance" {
		t.Errorf("Source code not escaped: %s", url)
	}
}

func TestGeneratePNG(t *testing.T) {
	gen := qr.NewGenerator("http://localhost:8086")

	png, err := gen.GeneratePNG("abc123", "entrance")
	if err != nil {
		t.Fatalf("Failed to generate QR code: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("Generated QR code is empty")
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("Output is not a PNG")
	}
}

func TestGeneratePNGDiffersBySource(t *testing.T) {
	gen := qr.NewGenerator("http://localhost:8086")

	png1, err := gen.GeneratePNG("abc123", "entrance")
	if err != nil {
		t.Fatalf("Failed to generate first QR code: %v", err)
	}
	png2, err := gen.GeneratePNG("abc123", "bar")
	if err != nil {
		t.Fatalf("Failed to generate second QR code: %v", err)
	}

	if bytes.Equal(png1, png2) {
		t.Error("QR codes for different sources should be different")
	}
}
