package qr

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// Generator renders entry-point QR codes for events. The encoded content is a
// plain participant URL; sessions are anonymous so there is nothing to sign.
type Generator struct {
	baseURL string
}

func NewGenerator(baseURL string) *Generator {
	return &Generator{baseURL: baseURL}
}

// EntryURL builds the participant URL for an event token, optionally tagged
// with a QR-source code for analytics attribution.
func (g *Generator) EntryURL(eventToken, sourceCode string) string {
	u := fmt.Sprintf("%s/e/%s", g.baseURL, eventToken)
	if sourceCode != "" {
		u += "?src=" + url.QueryEscape(sourceCode)
	}
	return u
}

// GeneratePNG renders the entry URL as a QR PNG.
func (g *Generator) GeneratePNG(eventToken, sourceCode string) ([]byte, error) {
	return qrcode.Encode(g.EntryURL(eventToken, sourceCode), qrcode.Medium, 256)
}
