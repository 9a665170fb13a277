package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/vbonduro/sitecheck/internal/blobstore"
)

const mediaRoute = "/media/"

// Store keeps blobs on the local filesystem. File names are the xxh3 hash of
// the content, so uploading the same bytes twice to one directory yields the
// same key.
type Store struct {
	basePath  string
	publicURL string
}

func New(basePath, publicBaseURL string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{basePath: basePath, publicURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Upload writes data to a temporary file and links it into place. Linking
// fails when the content is already stored, which is how created is decided.
func (s *Store) Upload(ctx context.Context, dir, mimeType string, data []byte) (string, bool, error) {
	ext, ok := blobstore.ExtForMIME(mimeType)
	if !ok {
		return "", false, fmt.Errorf("%w: %s", blobstore.ErrUnsupportedType, mimeType)
	}

	key := fmt.Sprintf("%016x%s", xxh3.Hash(data), ext)
	if dir = strings.Trim(dir, "/"); dir != "" {
		key = dir + "/" + key
	}
	filePath, err := s.safeJoin(key)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", false, fmt.Errorf("failed to create media directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return "", false, fmt.Errorf("failed to create file: %w", err)
	}
	defer removeWithLog(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		if cerr := tmp.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		return "", false, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("failed to close file: %w", err)
	}

	err = os.Link(tmp.Name(), filePath)
	switch {
	case err == nil:
		return key, true, nil
	case errors.Is(err, fs.ErrExist):
		return key, false, nil
	default:
		return "", false, fmt.Errorf("failed to store file: %w", err)
	}
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", blobstore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, blobstore.MIMEForKey(key), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return blobstore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *Store) URL(key string) string {
	return s.publicURL + mediaRoute + key
}

func (s *Store) KeyFromURL(url string) (string, bool) {
	prefix := s.publicURL + mediaRoute
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if _, err := s.safeJoin(key); err != nil {
		return "", false
	}
	return key, true
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *Store) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func removeWithLog(name string) {
	if err := os.Remove(name); err != nil {
		slog.Error("failed to remove temporary file", "path", name, "error", err)
	}
}
