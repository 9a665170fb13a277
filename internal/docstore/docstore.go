// Package docstore defines the hierarchical document store used for all
// persisted state, plus the helpers shared by its backends.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Store is a schema-less store of JSON-like documents addressed by
// slash-separated paths. A document's collection is its path minus the last
// segment.
type Store interface {
	Get(ctx context.Context, path string) (*Snapshot, error)
	// Set writes data at path. With merge, data is deep-merged into the existing
	// document (nested maps merged, every other value replaced); without merge
	// the document is replaced.
	Set(ctx context.Context, path string, data map[string]any, merge bool) error
	Query(ctx context.Context, collection string, q Query) ([]*Snapshot, error)
	Delete(ctx context.Context, path string) error
}

type Snapshot struct {
	Path      string         `json:"path"`
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Split validates path and returns its collection and document id.
func Split(path string) (collection, id string, err error) {
	if path == "" {
		return "", "", fmt.Errorf("empty document path")
	}
	segments := strings.Split(path, "/")
	if len(segments) < 2 {
		return "", "", fmt.Errorf("document path %q has no collection", path)
	}
	for _, s := range segments {
		if s == "" || s == "." || s == ".." {
			return "", "", fmt.Errorf("invalid document path %q", path)
		}
	}
	last := len(segments) - 1
	return strings.Join(segments[:last], "/"), segments[last], nil
}

// Join builds a path from segments, rejecting segments that contain a slash.
func Join(segments ...string) (string, error) {
	for _, s := range segments {
		if s == "" || strings.Contains(s, "/") || s == "." || s == ".." {
			return "", fmt.Errorf("invalid path segment %q", s)
		}
	}
	return strings.Join(segments, "/"), nil
}

// Merge deep-merges src into a copy of dst.
func Merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = Merge(dstMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}
