package images

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// URLPath is the path prefix under which stored images are served.
const URLPath = "/images"

// Store persists compressed profile images and tells where they can be downloaded.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Remove(ctx context.Context, name string) error
}

// DiskStore keeps images in a local directory that the HTTP router serves under URLPath.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates a store writing to dir. baseURL is the public address of the service.
func NewDiskStore(dir string, baseURL string) *DiskStore {
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir returns the directory the images are written to.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes the image and returns its public URL.
func (s *DiskStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create image directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("could not write image: %w", err)
	}
	return s.baseURL + URLPath + "/" + url.PathEscape(name), nil
}

// Remove deletes a stored image. Removing an image that does not exist is not an error.
func (s *DiskStore) Remove(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not remove image: %w", err)
	}
	return nil
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid image name %q", name)
	}
	return nil
}
