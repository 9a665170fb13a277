// Package blobstore stores uploaded files: inspection evidence, work report
// photos and common plumbing documents.
package blobstore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound        = errors.New("blob not found")
	ErrUnsupportedType = errors.New("unsupported media type")
)

type Store interface {
	// Upload stores data under dir and returns its key. Keys are derived from
	// the content, so created is false when identical bytes were already
	// stored under dir and the key is shared with an earlier upload.
	Upload(ctx context.Context, dir, mimeType string, data []byte) (key string, created bool, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	// URL is the public download URL of key.
	URL(key string) string
	// KeyFromURL reverses URL. It reports false for URLs this store did not issue.
	KeyFromURL(url string) (string, bool)
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",

	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// ExtForMIME returns the file extension stored for an accepted file type.
func ExtForMIME(mimeType string) (string, bool) {
	ext, ok := extensions[mimeType]
	return ext, ok
}

// MIMEForKey maps a stored key back to its media type.
func MIMEForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ext == ".jpeg" {
		return "image/jpeg"
	}
	for mimeType, e := range extensions {
		if e == ext {
			return mimeType
		}
	}
	return "application/octet-stream"
}

func IsImage(mimeType string) bool {
	_, ok := extensions[mimeType]
	return ok && strings.HasPrefix(mimeType, "image/")
}

func IsVideo(mimeType string) bool {
	_, ok := extensions[mimeType]
	return ok && strings.HasPrefix(mimeType, "video/")
}

// IsDocument reports whether mimeType is an accepted office or PDF document.
func IsDocument(mimeType string) bool {
	_, ok := extensions[mimeType]
	return ok && strings.HasPrefix(mimeType, "application/")
}
