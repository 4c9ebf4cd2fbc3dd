package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"sosyal-api/domain"
)

// ErrForeignPhotoURL is returned when a delete targets a URL outside the
// store's base path.
var ErrForeignPhotoURL = errors.New("photo url does not belong to this store")

// DiskPhotoStore persists photo binaries under a media directory and hands
// out URL paths for them. The directory is served as static files by the API
// process.
type DiskPhotoStore struct {
	dir     string
	baseURL string
}

// NewDiskPhotoStore ensures the media directory exists. baseURL is the URL
// path prefix the directory is served under, e.g. "/media".
func NewDiskPhotoStore(dir, baseURL string) (*DiskPhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskPhotoStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Save writes one photo and returns its public URL path. The filename is a
// fresh UUID; the uploader's name is never trusted.
func (s *DiskPhotoStore) Save(ctx context.Context, photo domain.PhotoUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext, ok := photoExtensions[photo.ContentType()]
	if !ok {
		return "", domain.ErrPhotoFormat
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), photo.Data, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// Delete removes a previously saved photo by its URL path. Deleting a URL
// that is already gone is not an error.
func (s *DiskPhotoStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := s.fileFor(url)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove photo: %w", err)
	}
	return nil
}

// Dir exposes the media directory so the server can mount it.
func (s *DiskPhotoStore) Dir() string { return s.dir }

func (s *DiskPhotoStore) fileFor(url string) (string, error) {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return "", fmt.Errorf("%w: %s", ErrForeignPhotoURL, url)
	}
	name := path.Base(url)
	// Base never contains separators, so traversal out of the dir is not
	// possible; reject anything degenerate anyway.
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: %s", ErrForeignPhotoURL, url)
	}
	return name, nil
}
