package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"adgen/internal/config"
	"adgen/internal/services"
)

// Bucket is a directory of objects served under a public base URL.
type Bucket struct {
	root    string
	baseURL string
}

// New returns a bucket rooted at root whose objects are reachable under
// publicBaseURL.
func New(root, publicBaseURL string) (*Bucket, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "open bucket", "storage directory is required", nil)
	}
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if !strings.HasPrefix(base, "https://") {
		return nil, services.Wrap(services.ErrConfiguration, "", "open bucket", "public base url must be https", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket dir: %w", err)
	}
	return &Bucket{root: root, baseURL: base}, nil
}

// NewFromConfig opens the bucket described by cfg.
func NewFromConfig(cfg *config.Config) (*Bucket, error) {
	return New(cfg.Paths.StorageDir, cfg.Storage.PublicBaseURL)
}

// Root returns the bucket directory.
func (b *Bucket) Root() string {
	return b.root
}

// Put stores data under key and returns its public URL. contentType is
// recorded only through the key's extension.
func (b *Bucket) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", services.Wrap(services.ErrValidation, "", "put object", "refusing to store an empty object", nil)
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return "", services.Wrap(services.ErrValidation, "", "put object",
			fmt.Sprintf("unsupported content type %q", contentType), nil)
	}

	target := filepath.Join(b.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := writeVerified(target, data); err != nil {
		return "", fmt.Errorf("write object %s: %w", clean, err)
	}
	return b.URL(clean), nil
}

// Get returns the bytes stored under key.
func (b *Bucket) Get(key string) ([]byte, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "", "get object", "object "+clean+" not found", nil)
	}
	return data, err
}

// URL returns the public URL of key.
func (b *Bucket) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return b.baseURL + "/" + strings.Join(segments, "/")
}

// Handler serves bucket objects read-only, for deployments that expose the
// daemon itself behind the public base URL.
func (b *Bucket) Handler() http.Handler {
	return http.FileServer(http.Dir(b.root))
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "", "object key", "object key is required", nil)
	}
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") || strings.Contains(key, "..") {
		return "", services.Wrap(services.ErrValidation, "", "object key", fmt.Sprintf("invalid object key %q", key), nil)
	}
	return clean, nil
}

// writeVerified writes data to a temp file, checks size and hash, and renames
// it over target.
func writeVerified(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	want := sha256.Sum256(data)
	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), bytes.NewReader(data))
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if written != int64(len(data)) {
		return fmt.Errorf("size mismatch: wrote %d of %d bytes", written, len(data))
	}
	if !bytes.Equal(hasher.Sum(nil), want[:]) {
		return errors.New("hash mismatch after write")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, target)
}
