package uploads

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath rejects object paths that would escape the storage root.
var ErrUnsafePath = errors.New("unsafe object path")

// BlobStore persists uploaded objects.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader) error
}

// FSStore writes objects under a base directory on the local filesystem.
type FSStore struct {
	BaseDir string
}

// Put streams the object to disk, creating parent directories as needed.
func (s *FSStore) Put(_ context.Context, path string, r io.Reader) error {
	clean := filepath.Clean(path)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return ErrUnsafePath
	}
	dst := filepath.Join(s.BaseDir, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return f.Sync()
}
