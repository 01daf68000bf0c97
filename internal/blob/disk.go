package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Disk stores binaries under a root directory and signs read URLs with an
// HMAC JWT carrying the key and expiry.
type Disk struct {
	Root    string
	BaseURL string
	secret  []byte
}

func NewDisk(root, baseURL, signSecret string) *Disk {
	return &Disk{
		Root:    root,
		BaseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(signSecret),
	}
}

// cleanKey rejects traversal outside the root.
func (d *Disk) cleanKey(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", errors.New("empty storage key")
	}
	return filepath.Join(d.Root, cleaned), nil
}

func (d *Disk) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	path, err := d.cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (d *Disk) Delete(ctx context.Context, key string) error {
	path, err := d.cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (d *Disk) SignedReadURL(key string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"key": key,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(d.secret)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/media/%s?token=%s", d.BaseURL, key, url.QueryEscape(signed)), nil
}

// VerifyReadToken checks a signed read token against the requested key and
// returns an error when the token is invalid, expired, or for another key.
func (d *Disk) VerifyReadToken(key, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return errors.New("invalid read token")
	}
	if claims["key"] != key {
		return errors.New("read token does not match key")
	}
	return nil
}

// Open returns the binary for a key.
func (d *Disk) Open(key string) (*os.File, error) {
	path, err := d.cleanKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}
